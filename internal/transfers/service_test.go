package transfers

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/notification"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func TestTransferSuccess(t *testing.T) {
	led := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(led, notifier)

	ctx := context.Background()
	from := ledger.TestAddress(0x11)
	to := ledger.TestAddress(0x22)
	ledger.SeedBalance(led, from, big.NewInt(10_000))

	res, err := svc.Transfer(ctx, Input{Caller: from, From: from, To: to, Amount: big.NewInt(2_000)})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if res.FromBalance.Cmp(big.NewInt(8_000)) != 0 || res.ToBalance.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.Reference == "" {
		t.Fatal("expected a generated reference")
	}
	if notifier.last.Kind != notification.KindTransfer {
		t.Fatalf("expected notification to be sent")
	}
}

func TestTransferRejectsForeignSource(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, nil)

	ctx := context.Background()
	owner := ledger.TestAddress(0x11)
	thief := ledger.TestAddress(0x33)
	ledger.SeedBalance(led, owner, big.NewInt(10_000))

	if _, err := svc.Transfer(ctx, Input{Caller: thief, From: owner, To: thief, Amount: big.NewInt(1)}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ownership refusal, got %v", err)
	}
}

func TestTransferBlockedByLock(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, nil)

	ctx := context.Background()
	from := ledger.TestAddress(0x11)
	to := ledger.TestAddress(0x22)
	ledger.SeedBalance(led, from, big.NewInt(10_000))
	if _, err := led.LockTokens(ctx, from, big.NewInt(5_000), time.Hour); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := svc.Transfer(ctx, Input{Caller: from, From: from, To: to, Amount: big.NewInt(6_000)}); !errors.Is(err, ledger.ErrInsufficientAvailable) {
		t.Fatalf("expected insufficient available, got %v", err)
	}

	if _, err := svc.Transfer(ctx, Input{Caller: from, From: from, To: to, Amount: big.NewInt(5_000)}); err != nil {
		t.Fatalf("transfer within available failed: %v", err)
	}
}
