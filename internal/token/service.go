package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/vesta-dapp/vesta_ledger/internal/authz"
	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/notification"
)

// ErrMintNotAuthorized indicates the caller is not the designated mint
// authority.
var ErrMintNotAuthorized = errors.New("caller is not allowed to mint")

// Info describes the token and its current supply.
type Info struct {
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply *big.Int
}

// LocksView pairs an account's live locks with its total-ever lock count.
// Dead locks keep their indices, so Count can exceed len(Active).
type LocksView struct {
	Count  uint64
	Active []ledger.Lock
}

// Service exposes token metadata, authorized supply issuance and account
// views over the accounting engine.
type Service struct {
	ledger   ledger.Ledger
	policy   authz.Policy
	notifier notification.Notifier

	name     string
	symbol   string
	decimals int
}

// NewService builds a token service instance.
func NewService(l ledger.Ledger, policy authz.Policy, notifier notification.Notifier, name, symbol string, decimals int) *Service {
	return &Service{
		ledger:   l,
		policy:   policy,
		notifier: notifier,
		name:     name,
		symbol:   symbol,
		decimals: decimals,
	}
}

// Decimals returns the token's decimal scaling for boundary formatting.
func (s *Service) Decimals() int {
	return s.decimals
}

// Info returns token metadata together with the current total supply.
func (s *Service) Info(ctx context.Context) (Info, error) {
	supply, err := s.ledger.TotalSupply(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: s.name, Symbol: s.symbol, Decimals: s.decimals, TotalSupply: supply}, nil
}

// MintInput captures a supply issuance request.
type MintInput struct {
	Caller ledger.Address
	To     ledger.Address
	Amount *big.Int
}

// Mint issues new supply to the target account after the authorization
// policy admits the caller.
func (s *Service) Mint(ctx context.Context, input MintInput) (ledger.MintResult, error) {
	if !s.policy.CanMint(input.Caller) {
		return ledger.MintResult{}, ErrMintNotAuthorized
	}

	res, err := s.ledger.Mint(ctx, input.To, input.Amount)
	if err != nil {
		return ledger.MintResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindMint,
			Destination: input.To.String(),
			Body:        fmt.Sprintf("Minted %s %s to your account", FormatUnits(input.Amount, s.decimals), s.symbol),
		})
	}
	return res, nil
}

// Balances returns the total/available/locked snapshot for an account.
// Unknown accounts simply report zeroes.
func (s *Service) Balances(ctx context.Context, account ledger.Address) (ledger.View, error) {
	return s.ledger.Balances(ctx, account)
}

// Locks returns the live locks and total-ever count for an account.
func (s *Service) Locks(ctx context.Context, account ledger.Address) (LocksView, error) {
	active, err := s.ledger.ActiveLocks(ctx, account)
	if err != nil {
		return LocksView{}, err
	}
	count, err := s.ledger.LockCount(ctx, account)
	if err != nil {
		return LocksView{}, err
	}
	return LocksView{Count: count, Active: active}, nil
}
