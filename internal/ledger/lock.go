package ledger

import "math/big"

// Lock is one entry in an account's lock registry. Entries are never
// removed; releasing a lock clears Live but keeps the slot so indices of
// later locks stay stable.
type Lock struct {
	Index      uint64
	Amount     *big.Int
	UnlockTime int64
	Live       bool
}

// lockBook is the per-account append-only lock registry plus a running
// total of live-locked funds, kept so availability checks stay O(1).
type lockBook struct {
	locks       []Lock
	lockedTotal *big.Int
}

func newLockBook() *lockBook {
	return &lockBook{lockedTotal: new(big.Int)}
}

// append records a new live lock and returns its stable index.
func (b *lockBook) append(amount *big.Int, unlockTime int64) uint64 {
	idx := uint64(len(b.locks))
	b.locks = append(b.locks, Lock{
		Index:      idx,
		Amount:     new(big.Int).Set(amount),
		UnlockTime: unlockTime,
		Live:       true,
	})
	b.lockedTotal.Add(b.lockedTotal, amount)
	return idx
}

// get returns a copy of the lock at the index, dead or alive.
func (b *lockBook) get(index uint64) (Lock, error) {
	if index >= uint64(len(b.locks)) {
		return Lock{}, ErrLockNotFound
	}
	lk := b.locks[index]
	lk.Amount = new(big.Int).Set(lk.Amount)
	return lk, nil
}

// release marks the lock dead and returns the freed amount. The slot
// stays in place.
func (b *lockBook) release(index uint64) (*big.Int, error) {
	if index >= uint64(len(b.locks)) {
		return nil, ErrLockNotFound
	}
	lk := &b.locks[index]
	if !lk.Live {
		return nil, ErrAlreadyUnlocked
	}
	lk.Live = false
	b.lockedTotal.Sub(b.lockedTotal, lk.Amount)
	return new(big.Int).Set(lk.Amount), nil
}

// total returns a copy of the live-locked sum.
func (b *lockBook) total() *big.Int {
	return new(big.Int).Set(b.lockedTotal)
}

// count returns how many locks were ever created, dead ones included.
func (b *lockBook) count() uint64 {
	return uint64(len(b.locks))
}

// active returns copies of the live locks in index order.
func (b *lockBook) active() []Lock {
	out := []Lock{}
	for _, lk := range b.locks {
		if !lk.Live {
			continue
		}
		lk.Amount = new(big.Int).Set(lk.Amount)
		out = append(out, lk)
	}
	return out
}
