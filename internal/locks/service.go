package locks

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/notification"
)

// Service manages time locks on the caller's own balance. Locking does
// not move funds anywhere; it only restricts how much of the balance is
// spendable until the unlock time passes.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a lock service.
func NewService(l ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: l, notifier: notifier}
}

// Lock commits part of the caller's available balance until now+duration.
func (s *Service) Lock(ctx context.Context, caller ledger.Address, amount *big.Int, duration time.Duration) (ledger.LockResult, error) {
	return s.ledger.LockTokens(ctx, caller, amount, duration)
}

// Unlock releases the caller's matured lock at the given index.
func (s *Service) Unlock(ctx context.Context, caller ledger.Address, index uint64) (ledger.UnlockResult, error) {
	res, err := s.ledger.UnlockTokens(ctx, caller, index)
	if err != nil {
		return ledger.UnlockResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindUnlock,
			Destination: caller.String(),
			Body:        fmt.Sprintf("Lock %d released %s tokens", index, res.Amount),
		})
	}
	return res, nil
}

// Active returns the caller's live locks and total-ever count.
func (s *Service) Active(ctx context.Context, account ledger.Address) ([]ledger.Lock, uint64, error) {
	active, err := s.ledger.ActiveLocks(ctx, account)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.ledger.LockCount(ctx, account)
	if err != nil {
		return nil, 0, err
	}
	return active, count, nil
}
