package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balances and lock registries in PostgreSQL.
// Amounts are NUMERIC(78,0) so the full 256-bit range fits; every
// mutating operation runs inside a transaction with the affected balance
// rows locked FOR UPDATE, which serializes the read-validate-write
// sequence per account.
type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgres constructs a Postgres-backed engine.
func NewPostgres(db *pgxpool.Pool) *PostgresLedger {
	return NewPostgresWithClock(db, time.Now)
}

// NewPostgresWithClock constructs a Postgres-backed engine on an injected
// time source.
func NewPostgresWithClock(db *pgxpool.Pool, now func() time.Time) *PostgresLedger {
	return &PostgresLedger{db: db, now: now}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS balances (
            address TEXT PRIMARY KEY,
            balance NUMERIC(78,0) NOT NULL DEFAULT 0
        );
        CREATE TABLE IF NOT EXISTS locks (
            address     TEXT NOT NULL,
            idx         BIGINT NOT NULL,
            amount      NUMERIC(78,0) NOT NULL,
            unlock_time BIGINT NOT NULL,
            live        BOOLEAN NOT NULL DEFAULT TRUE,
            PRIMARY KEY (address, idx)
        );
        CREATE TABLE IF NOT EXISTS token_supply (
            id    INT PRIMARY KEY,
            total NUMERIC(78,0) NOT NULL DEFAULT 0
        )`)
	return err
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed numeric %q", s)
	}
	return v, nil
}

// balanceForUpdate creates the zero balance row if missing and locks it
// for the remainder of the transaction.
func balanceForUpdate(ctx context.Context, tx pgx.Tx, account Address) (*big.Int, error) {
	if _, err := tx.Exec(ctx, `INSERT INTO balances (address, balance) VALUES ($1, 0)
        ON CONFLICT (address) DO NOTHING`, account.String()); err != nil {
		return nil, err
	}
	var raw string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM balances WHERE address = $1 FOR UPDATE`,
		account.String()).Scan(&raw); err != nil {
		return nil, err
	}
	return parseNumeric(raw)
}

func lockedTotalTx(ctx context.Context, tx pgx.Tx, account Address) (*big.Int, error) {
	var raw string
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM locks
        WHERE address = $1 AND live`, account.String()).Scan(&raw); err != nil {
		return nil, err
	}
	return parseNumeric(raw)
}

func (l *PostgresLedger) Mint(ctx context.Context, to Address, amount *big.Int) (MintResult, error) {
	if err := validAmount(amount); err != nil {
		return MintResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MintResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO token_supply (id, total) VALUES (1, 0)
        ON CONFLICT (id) DO NOTHING`); err != nil {
		return MintResult{}, err
	}
	var rawSupply string
	if err := tx.QueryRow(ctx, `SELECT total::text FROM token_supply WHERE id = 1 FOR UPDATE`).Scan(&rawSupply); err != nil {
		return MintResult{}, err
	}
	supply, err := parseNumeric(rawSupply)
	if err != nil {
		return MintResult{}, err
	}

	next := new(big.Int).Add(supply, amount)
	if next.Cmp(maxSupply) > 0 {
		return MintResult{}, ErrInvalidAmount
	}

	balance, err := balanceForUpdate(ctx, tx, to)
	if err != nil {
		return MintResult{}, err
	}
	balance.Add(balance, amount)

	if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $2 WHERE address = $1`,
		to.String(), balance.String()); err != nil {
		return MintResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE token_supply SET total = $1 WHERE id = 1`, next.String()); err != nil {
		return MintResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return MintResult{}, err
	}
	return MintResult{Balance: balance, TotalSupply: next}, nil
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to Address, amount *big.Int) (TransferResult, error) {
	if err := validAmount(amount); err != nil {
		return TransferResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if from == to {
		// Net no-op but still subject to the availability check.
		balance, err := balanceForUpdate(ctx, tx, from)
		if err != nil {
			return TransferResult{}, err
		}
		locked, err := lockedTotalTx(ctx, tx, from)
		if err != nil {
			return TransferResult{}, err
		}
		if new(big.Int).Sub(balance, locked).Cmp(amount) < 0 {
			return TransferResult{}, ErrInsufficientAvailable
		}
		if err := tx.Commit(ctx); err != nil {
			return TransferResult{}, err
		}
		return TransferResult{FromBalance: balance, ToBalance: new(big.Int).Set(balance)}, nil
	}

	// Lock rows in a stable order to avoid deadlocks between opposing
	// transfers.
	first, second := from, to
	if second.String() < first.String() {
		first, second = second, first
	}
	firstBal, err := balanceForUpdate(ctx, tx, first)
	if err != nil {
		return TransferResult{}, err
	}
	secondBal, err := balanceForUpdate(ctx, tx, second)
	if err != nil {
		return TransferResult{}, err
	}
	fromBal, toBal := firstBal, secondBal
	if first != from {
		fromBal, toBal = secondBal, firstBal
	}

	locked, err := lockedTotalTx(ctx, tx, from)
	if err != nil {
		return TransferResult{}, err
	}
	if new(big.Int).Sub(fromBal, locked).Cmp(amount) < 0 {
		return TransferResult{}, ErrInsufficientAvailable
	}
	if fromBal.Cmp(amount) < 0 {
		return TransferResult{}, ErrInsufficientFunds
	}

	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)

	if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $2 WHERE address = $1`,
		from.String(), fromBal.String()); err != nil {
		return TransferResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $2 WHERE address = $1`,
		to.String(), toBal.String()); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{FromBalance: fromBal, ToBalance: toBal}, nil
}

func (l *PostgresLedger) LockTokens(ctx context.Context, account Address, amount *big.Int, duration time.Duration) (LockResult, error) {
	if err := validAmount(amount); err != nil {
		return LockResult{}, err
	}
	if duration <= 0 {
		return LockResult{}, ErrInvalidDuration
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return LockResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := balanceForUpdate(ctx, tx, account)
	if err != nil {
		return LockResult{}, err
	}
	locked, err := lockedTotalTx(ctx, tx, account)
	if err != nil {
		return LockResult{}, err
	}
	available := new(big.Int).Sub(balance, locked)
	if available.Cmp(amount) < 0 {
		return LockResult{}, ErrInsufficientAvailable
	}

	// The balance row is locked, so the count cannot move under us and
	// the next index is stable.
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM locks WHERE address = $1`,
		account.String()).Scan(&count); err != nil {
		return LockResult{}, err
	}

	unlockTime := l.now().Unix() + int64(duration/time.Second)
	if _, err := tx.Exec(ctx, `INSERT INTO locks (address, idx, amount, unlock_time, live)
        VALUES ($1, $2, $3, $4, TRUE)`,
		account.String(), count, amount.String(), unlockTime); err != nil {
		return LockResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LockResult{}, err
	}
	return LockResult{
		Index:      uint64(count),
		UnlockTime: unlockTime,
		Available:  available.Sub(available, amount),
		Locked:     locked.Add(locked, amount),
	}, nil
}

func (l *PostgresLedger) UnlockTokens(ctx context.Context, account Address, index uint64) (UnlockResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return UnlockResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := balanceForUpdate(ctx, tx, account)
	if err != nil {
		return UnlockResult{}, err
	}

	var (
		rawAmount  string
		unlockTime int64
		live       bool
	)
	err = tx.QueryRow(ctx, `SELECT amount::text, unlock_time, live FROM locks
        WHERE address = $1 AND idx = $2 FOR UPDATE`,
		account.String(), int64(index)).Scan(&rawAmount, &unlockTime, &live)
	if errors.Is(err, pgx.ErrNoRows) {
		return UnlockResult{}, ErrLockNotFound
	}
	if err != nil {
		return UnlockResult{}, err
	}
	if !live {
		return UnlockResult{}, ErrAlreadyUnlocked
	}
	if l.now().Unix() < unlockTime {
		return UnlockResult{}, ErrStillLocked
	}

	amount, err := parseNumeric(rawAmount)
	if err != nil {
		return UnlockResult{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE locks SET live = FALSE WHERE address = $1 AND idx = $2`,
		account.String(), int64(index)); err != nil {
		return UnlockResult{}, err
	}

	locked, err := lockedTotalTx(ctx, tx, account)
	if err != nil {
		return UnlockResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{
		Amount:    amount,
		Available: new(big.Int).Sub(balance, locked),
		Locked:    locked,
	}, nil
}

func (l *PostgresLedger) BalanceOf(ctx context.Context, account Address) (*big.Int, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT COALESCE((SELECT balance FROM balances WHERE address = $1), 0)::text`,
		account.String()).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return parseNumeric(raw)
}

func (l *PostgresLedger) AvailableBalance(ctx context.Context, account Address) (*big.Int, error) {
	v, err := l.Balances(ctx, account)
	if err != nil {
		return nil, err
	}
	return v.Available, nil
}

func (l *PostgresLedger) LockedBalance(ctx context.Context, account Address) (*big.Int, error) {
	v, err := l.Balances(ctx, account)
	if err != nil {
		return nil, err
	}
	return v.Locked, nil
}

// Balances reads gross and locked totals in one statement so the snapshot
// is consistent.
func (l *PostgresLedger) Balances(ctx context.Context, account Address) (View, error) {
	const query = `
        SELECT COALESCE((SELECT balance FROM balances WHERE address = $1), 0)::text,
               COALESCE((SELECT SUM(amount) FROM locks WHERE address = $1 AND live), 0)::text`
	var rawBalance, rawLocked string
	if err := l.db.QueryRow(ctx, query, account.String()).Scan(&rawBalance, &rawLocked); err != nil {
		return View{}, err
	}
	balance, err := parseNumeric(rawBalance)
	if err != nil {
		return View{}, err
	}
	locked, err := parseNumeric(rawLocked)
	if err != nil {
		return View{}, err
	}
	return View{
		Balance:   balance,
		Available: new(big.Int).Sub(balance, locked),
		Locked:    locked,
	}, nil
}

func (l *PostgresLedger) LockCount(ctx context.Context, account Address) (uint64, error) {
	var count int64
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM locks WHERE address = $1`,
		account.String()).Scan(&count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (l *PostgresLedger) ActiveLocks(ctx context.Context, account Address) ([]Lock, error) {
	rows, err := l.db.Query(ctx, `SELECT idx, amount::text, unlock_time FROM locks
        WHERE address = $1 AND live ORDER BY idx`, account.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locks := []Lock{}
	for rows.Next() {
		var (
			idx       int64
			rawAmount string
			unlockAt  int64
		)
		if err := rows.Scan(&idx, &rawAmount, &unlockAt); err != nil {
			return nil, err
		}
		amount, err := parseNumeric(rawAmount)
		if err != nil {
			return nil, err
		}
		locks = append(locks, Lock{Index: uint64(idx), Amount: amount, UnlockTime: unlockAt, Live: true})
	}
	return locks, rows.Err()
}

func (l *PostgresLedger) GetLock(ctx context.Context, account Address, index uint64) (Lock, error) {
	var (
		rawAmount string
		unlockAt  int64
		live      bool
	)
	err := l.db.QueryRow(ctx, `SELECT amount::text, unlock_time, live FROM locks
        WHERE address = $1 AND idx = $2`, account.String(), int64(index)).Scan(&rawAmount, &unlockAt, &live)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lock{}, ErrLockNotFound
	}
	if err != nil {
		return Lock{}, err
	}
	amount, err := parseNumeric(rawAmount)
	if err != nil {
		return Lock{}, err
	}
	return Lock{Index: index, Amount: amount, UnlockTime: unlockAt, Live: live}, nil
}

func (l *PostgresLedger) TotalSupply(ctx context.Context) (*big.Int, error) {
	var raw string
	if err := l.db.QueryRow(ctx, `SELECT COALESCE((SELECT total FROM token_supply WHERE id = 1), 0)::text`).Scan(&raw); err != nil {
		return nil, err
	}
	return parseNumeric(raw)
}
