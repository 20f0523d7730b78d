package ledger

import (
	"math/big"
	"sync"
	"time"
)

// ManualClock is a settable time source for pinning unlock boundaries in
// tests.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock starts a clock frozen at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

// Now returns the current frozen instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward (or backward, for negative d).
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// SeedBalance force-sets an account balance on the in-memory engine,
// bypassing mint. Test helper only; it leaves total supply untouched.
func SeedBalance(l Ledger, account Address, amount *big.Int) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[account] = new(big.Int).Set(amount)
	}
}

// TestAddress builds a deterministic address from a single byte tag.
func TestAddress(tag byte) Address {
	var a Address
	for i := range a {
		a[i] = tag
	}
	return a
}
