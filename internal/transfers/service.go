package transfers

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/notification"
)

// ErrNotOwner indicates the caller tried to move funds out of an account
// it does not control.
var ErrNotOwner = errors.New("caller does not own the source account")

// Service posts availability-checked transfers on the accounting engine.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(l ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: l, notifier: notifier}
}

// Input captures the data needed to move tokens between accounts.
type Input struct {
	Caller    ledger.Address
	From      ledger.Address
	To        ledger.Address
	Amount    *big.Int
	Reference string
}

// Receipt describes the outcome of a completed transfer.
type Receipt struct {
	Reference   string
	FromBalance *big.Int
	ToBalance   *big.Int
	CompletedAt time.Time
}

// Transfer moves tokens from the caller's account. Only the unlocked
// portion of the balance is spendable; the engine enforces that.
func (s *Service) Transfer(ctx context.Context, input Input) (Receipt, error) {
	if input.Caller != input.From {
		return Receipt{}, ErrNotOwner
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}

	res, err := s.ledger.Transfer(ctx, input.From, input.To, input.Amount)
	if err != nil {
		return Receipt{}, err
	}

	if s.notifier != nil && input.From != input.To {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransfer,
			Destination: input.To.String(),
			Body:        fmt.Sprintf("You received %s from %s", input.Amount, input.From),
		})
	}

	return Receipt{
		Reference:   input.Reference,
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		CompletedAt: time.Now().UTC(),
	}, nil
}
