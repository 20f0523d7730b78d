package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

// ErrBadCredentials indicates the PIN did not match the registration.
var ErrBadCredentials = errors.New("invalid credentials")

// Service manages account registration and credential checks.
type Service struct {
	repo Repository
}

// NewService creates a new accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Credentials carry a registration or login attempt.
type Credentials struct {
	Address string
	Label   string
	PIN     string
}

// Register binds a ledger address to a hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	address, err := ledger.ParseAddress(creds.Address)
	if err != nil {
		return Account{}, err
	}
	if len(creds.PIN) < 4 {
		return Account{}, errors.New("PIN must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		ID:        uuid.New().String(),
		Address:   address,
		Label:     creds.Label,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Authenticate verifies the PIN for a registered address.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	address, err := ledger.ParseAddress(creds.Address)
	if err != nil {
		return Account{}, err
	}
	account, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrBadCredentials
		}
		return Account{}, err
	}
	if bcrypt.CompareHashAndPassword(account.PINHash, []byte(creds.PIN)) != nil {
		return Account{}, ErrBadCredentials
	}
	return account, nil
}
