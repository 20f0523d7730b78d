package ledger

import (
	"context"
	"math/big"
	"sync"
	"time"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	now      func() time.Time
	balances map[Address]*big.Int
	books    map[Address]*lockBook
	supply   *big.Int
}

// NewInMemory creates the canonical in-memory engine. The mutex serializes
// mutating calls so each operation's read-validate-write sequence runs to
// completion; queries take the read lock and only ever observe committed
// state.
func NewInMemory() Ledger {
	return NewInMemoryWithClock(time.Now)
}

// NewInMemoryWithClock builds an engine on an injected time source. Tests
// use a manual clock to pin unlock boundaries exactly.
func NewInMemoryWithClock(now func() time.Time) Ledger {
	return &inMemoryLedger{
		now:      now,
		balances: make(map[Address]*big.Int),
		books:    make(map[Address]*lockBook),
		supply:   new(big.Int),
	}
}

// balanceRef returns the stored balance, creating the zero entry on first
// use. Accounts come into being implicitly on first credit.
func (l *inMemoryLedger) balanceRef(a Address) *big.Int {
	b, ok := l.balances[a]
	if !ok {
		b = new(big.Int)
		l.balances[a] = b
	}
	return b
}

func (l *inMemoryLedger) book(a Address) *lockBook {
	bk, ok := l.books[a]
	if !ok {
		bk = newLockBook()
		l.books[a] = bk
	}
	return bk
}

func (l *inMemoryLedger) credit(a Address, amount *big.Int) {
	b := l.balanceRef(a)
	b.Add(b, amount)
}

// debit is the defensive gross-balance primitive. The available-balance
// check runs before it, so ErrInsufficientFunds should be unreachable.
func (l *inMemoryLedger) debit(a Address, amount *big.Int) error {
	b := l.balanceRef(a)
	if b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	return nil
}

// available computes balance minus live-locked total. Callers hold the lock.
func (l *inMemoryLedger) available(a Address) *big.Int {
	av := new(big.Int)
	if b, ok := l.balances[a]; ok {
		av.Set(b)
	}
	if bk, ok := l.books[a]; ok {
		av.Sub(av, bk.lockedTotal)
	}
	return av
}

func (l *inMemoryLedger) Mint(_ context.Context, to Address, amount *big.Int) (MintResult, error) {
	if err := validAmount(amount); err != nil {
		return MintResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := new(big.Int).Add(l.supply, amount)
	if next.Cmp(maxSupply) > 0 {
		return MintResult{}, ErrInvalidAmount
	}

	l.credit(to, amount)
	l.supply.Set(next)

	return MintResult{
		Balance:     new(big.Int).Set(l.balances[to]),
		TotalSupply: new(big.Int).Set(l.supply),
	}, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, from, to Address, amount *big.Int) (TransferResult, error) {
	if err := validAmount(amount); err != nil {
		return TransferResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Checked against available funds, not the gross balance. Self
	// transfers are allowed and net to zero but still pass through here.
	if l.available(from).Cmp(amount) < 0 {
		return TransferResult{}, ErrInsufficientAvailable
	}

	if err := l.debit(from, amount); err != nil {
		return TransferResult{}, err
	}
	l.credit(to, amount)

	return TransferResult{
		FromBalance: new(big.Int).Set(l.balances[from]),
		ToBalance:   new(big.Int).Set(l.balances[to]),
	}, nil
}

func (l *inMemoryLedger) LockTokens(_ context.Context, account Address, amount *big.Int, duration time.Duration) (LockResult, error) {
	if err := validAmount(amount); err != nil {
		return LockResult{}, err
	}
	if duration <= 0 {
		return LockResult{}, ErrInvalidDuration
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available(account).Cmp(amount) < 0 {
		return LockResult{}, ErrInsufficientAvailable
	}

	unlockTime := l.now().Unix() + int64(duration/time.Second)
	bk := l.book(account)
	idx := bk.append(amount, unlockTime)

	return LockResult{
		Index:      idx,
		UnlockTime: unlockTime,
		Available:  l.available(account),
		Locked:     bk.total(),
	}, nil
}

func (l *inMemoryLedger) UnlockTokens(_ context.Context, account Address, index uint64) (UnlockResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bk, ok := l.books[account]
	if !ok {
		return UnlockResult{}, ErrLockNotFound
	}
	lk, err := bk.get(index)
	if err != nil {
		return UnlockResult{}, err
	}
	if !lk.Live {
		return UnlockResult{}, ErrAlreadyUnlocked
	}
	// Inclusive boundary: a lock is releasable exactly at its unlock time.
	if l.now().Unix() < lk.UnlockTime {
		return UnlockResult{}, ErrStillLocked
	}

	amount, err := bk.release(index)
	if err != nil {
		return UnlockResult{}, err
	}

	return UnlockResult{
		Amount:    amount,
		Available: l.available(account),
		Locked:    bk.total(),
	}, nil
}

func (l *inMemoryLedger) BalanceOf(_ context.Context, account Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (l *inMemoryLedger) AvailableBalance(_ context.Context, account Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.available(account), nil
}

func (l *inMemoryLedger) LockedBalance(_ context.Context, account Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bk, ok := l.books[account]; ok {
		return bk.total(), nil
	}
	return new(big.Int), nil
}

func (l *inMemoryLedger) Balances(_ context.Context, account Address) (View, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v := View{Balance: new(big.Int), Available: new(big.Int), Locked: new(big.Int)}
	if b, ok := l.balances[account]; ok {
		v.Balance.Set(b)
	}
	if bk, ok := l.books[account]; ok {
		v.Locked.Set(bk.lockedTotal)
	}
	v.Available.Sub(v.Balance, v.Locked)
	return v, nil
}

func (l *inMemoryLedger) LockCount(_ context.Context, account Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bk, ok := l.books[account]; ok {
		return bk.count(), nil
	}
	return 0, nil
}

func (l *inMemoryLedger) ActiveLocks(_ context.Context, account Address) ([]Lock, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bk, ok := l.books[account]; ok {
		return bk.active(), nil
	}
	return []Lock{}, nil
}

func (l *inMemoryLedger) GetLock(_ context.Context, account Address, index uint64) (Lock, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bk, ok := l.books[account]
	if !ok {
		return Lock{}, ErrLockNotFound
	}
	return bk.get(index)
}

func (l *inMemoryLedger) TotalSupply(_ context.Context) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply), nil
}
