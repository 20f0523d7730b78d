package ledger

import (
	"context"
	"math/big"
	"time"
)

// maxSupply caps the total supply at the 256-bit range token amounts
// operate in; a mint that would push past it is rejected.
var maxSupply = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MintResult captures the outcome of a supply issuance.
type MintResult struct {
	Balance     *big.Int
	TotalSupply *big.Int
}

// TransferResult captures the post-transfer gross balances.
type TransferResult struct {
	FromBalance *big.Int
	ToBalance   *big.Int
}

// LockResult reports the index assigned to a new lock and the account's
// availability after it took effect.
type LockResult struct {
	Index      uint64
	UnlockTime int64
	Available  *big.Int
	Locked     *big.Int
}

// UnlockResult reports the freed amount and the account's availability
// after the lock died.
type UnlockResult struct {
	Amount    *big.Int
	Available *big.Int
	Locked    *big.Int
}

// View is a consistent snapshot of one account's holdings. The invariant
// Available + Locked == Balance holds in every reachable state.
type View struct {
	Balance   *big.Int
	Available *big.Int
	Locked    *big.Int
}

// Ledger is the balance and time-lock accounting engine implemented by
// backends (in-memory, Postgres). Mutating operations validate every
// precondition against committed state and apply their writes as a single
// atomic unit; a failed call leaves state untouched. Transfers and locks
// are checked against the available balance, not the gross balance: funds
// committed to a live lock cannot be moved or re-locked until the lock's
// unlock time has passed (boundary inclusive).
type Ledger interface {
	Mint(ctx context.Context, to Address, amount *big.Int) (MintResult, error)
	Transfer(ctx context.Context, from, to Address, amount *big.Int) (TransferResult, error)
	LockTokens(ctx context.Context, account Address, amount *big.Int, duration time.Duration) (LockResult, error)
	UnlockTokens(ctx context.Context, account Address, index uint64) (UnlockResult, error)

	BalanceOf(ctx context.Context, account Address) (*big.Int, error)
	AvailableBalance(ctx context.Context, account Address) (*big.Int, error)
	LockedBalance(ctx context.Context, account Address) (*big.Int, error)
	Balances(ctx context.Context, account Address) (View, error)
	LockCount(ctx context.Context, account Address) (uint64, error)
	ActiveLocks(ctx context.Context, account Address) ([]Lock, error)
	GetLock(ctx context.Context, account Address, index uint64) (Lock, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
}

// validAmount rejects nil, zero and negative amounts up front so no
// operation ever sees them.
func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
