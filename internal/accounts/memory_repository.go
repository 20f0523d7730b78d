package accounts

import (
	"context"
	"sync"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[ledger.Address]Account
}

// NewMemoryRepository constructs an in-memory repository for dev mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[ledger.Address]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[account.Address]; exists {
		return ErrExists
	}
	r.storage[account.Address] = account
	return nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address ledger.Address) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.storage[address]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}
