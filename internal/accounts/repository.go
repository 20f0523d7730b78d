package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

// ErrNotFound indicates no account is registered for the address.
var ErrNotFound = errors.New("account not found")

// ErrExists indicates the address is already registered.
var ErrExists = errors.New("account already registered")

// Repository persists account registrations.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByAddress(ctx context.Context, address ledger.Address) (Account, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the accounts table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS accounts (
            id         UUID PRIMARY KEY,
            address    TEXT NOT NULL UNIQUE,
            label      TEXT NOT NULL DEFAULT '',
            pin_hash   BYTEA NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`)
	return err
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	id, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, address, label, pin_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		id, account.Address.String(), account.Label, account.PINHash, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// FindByAddress fetches the registration for a ledger address.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address ledger.Address) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, address, label, pin_hash, created_at
        FROM accounts WHERE address = $1`, address.String())

	var (
		a         Account
		id        uuid.UUID
		rawAddr   string
		createdAt time.Time
	)
	if err := row.Scan(&id, &rawAddr, &a.Label, &a.PINHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	addr, err := ledger.ParseAddress(rawAddr)
	if err != nil {
		return Account{}, err
	}
	a.ID = id.String()
	a.Address = addr
	a.CreatedAt = createdAt.UTC()
	return a, nil
}
