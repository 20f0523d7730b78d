package ledger

import "errors"

var (
	// ErrInvalidAmount rejects nil, zero or negative amounts, and mints
	// that would push total supply past its cap.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDuration rejects non-positive lock durations.
	ErrInvalidDuration = errors.New("invalid lock duration")

	// ErrInsufficientAvailable means the amount exceeds the account's
	// unlocked portion. The gross balance may well cover it.
	ErrInsufficientAvailable = errors.New("amount exceeds available balance")

	// ErrInsufficientFunds means the gross balance itself is too small.
	// The available check runs first, so hitting this signals a bug.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLockNotFound means no lock was ever created at the index.
	ErrLockNotFound = errors.New("lock not found")

	// ErrAlreadyUnlocked means the lock at the index was already released.
	ErrAlreadyUnlocked = errors.New("lock already unlocked")

	// ErrStillLocked means the lock's unlock time has not been reached.
	ErrStillLocked = errors.New("tokens are still locked")
)
