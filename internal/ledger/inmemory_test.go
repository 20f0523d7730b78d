package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"
)

func newTestLedger() (Ledger, *ManualClock) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	return NewInMemoryWithClock(clk.Now), clk
}

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestMintCreditsBalanceAndSupply(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA1)

	res, err := l.Mint(ctx, a, bi(10_000))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if res.Balance.Cmp(bi(10_000)) != 0 {
		t.Fatalf("expected balance 10000, got %s", res.Balance)
	}
	if res.TotalSupply.Cmp(bi(10_000)) != 0 {
		t.Fatalf("expected supply 10000, got %s", res.TotalSupply)
	}

	available, _ := l.AvailableBalance(ctx, a)
	locked, _ := l.LockedBalance(ctx, a)
	if available.Cmp(bi(10_000)) != 0 || locked.Sign() != 0 {
		t.Fatalf("expected available 10000 / locked 0, got %s / %s", available, locked)
	}

	if _, err := l.Mint(ctx, a, bi(0)); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount for zero mint, got %v", err)
	}
	if _, err := l.Mint(ctx, a, bi(-5)); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount for negative mint, got %v", err)
	}
}

func TestMintRejectsSupplyOverflow(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA2)

	almostMax := new(big.Int).Sub(maxSupply, bi(10))
	if _, err := l.Mint(ctx, a, almostMax); err != nil {
		t.Fatalf("mint near cap failed: %v", err)
	}
	if _, err := l.Mint(ctx, a, bi(11)); err != ErrInvalidAmount {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
	// The failed mint must not have changed anything.
	supply, _ := l.TotalSupply(ctx)
	if supply.Cmp(almostMax) != 0 {
		t.Fatalf("supply changed by rejected mint: %s", supply)
	}
}

func TestTransferChecksAvailableNotGross(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a, b := TestAddress(0xA3), TestAddress(0xB3)

	if _, err := l.Mint(ctx, a, bi(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	res, err := l.LockTokens(ctx, a, bi(1_000), time.Hour)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if res.Index != 0 {
		t.Fatalf("expected first lock index 0, got %d", res.Index)
	}
	if res.Available.Cmp(bi(9_000)) != 0 || res.Locked.Cmp(bi(1_000)) != 0 {
		t.Fatalf("unexpected post-lock view: available %s locked %s", res.Available, res.Locked)
	}

	// Gross balance covers 9500, available does not.
	if _, err := l.Transfer(ctx, a, b, bi(9_500)); err != ErrInsufficientAvailable {
		t.Fatalf("expected insufficient available, got %v", err)
	}

	// Exactly the available amount passes the inclusive boundary.
	out, err := l.Transfer(ctx, a, b, bi(9_000))
	if err != nil {
		t.Fatalf("transfer of full available amount failed: %v", err)
	}
	if out.FromBalance.Cmp(bi(1_000)) != 0 || out.ToBalance.Cmp(bi(9_000)) != 0 {
		t.Fatalf("unexpected balances: %s / %s", out.FromBalance, out.ToBalance)
	}

	if _, err := l.Transfer(ctx, a, b, bi(1)); err != ErrInsufficientAvailable {
		t.Fatalf("expected insufficient available after draining, got %v", err)
	}
}

func TestUnlockLifecycle(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA4)

	if _, err := l.Mint(ctx, a, bi(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(1_000), 3600*time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}

	clk.Advance(1800 * time.Second)
	if _, err := l.UnlockTokens(ctx, a, 0); err != ErrStillLocked {
		t.Fatalf("expected still locked halfway through, got %v", err)
	}

	clk.Advance(1800 * time.Second)
	res, err := l.UnlockTokens(ctx, a, 0)
	if err != nil {
		t.Fatalf("unlock at deadline failed: %v", err)
	}
	if res.Amount.Cmp(bi(1_000)) != 0 {
		t.Fatalf("expected freed amount 1000, got %s", res.Amount)
	}
	if res.Available.Cmp(bi(10_000)) != 0 || res.Locked.Sign() != 0 {
		t.Fatalf("unexpected post-unlock view: %s / %s", res.Available, res.Locked)
	}

	if _, err := l.UnlockTokens(ctx, a, 0); err != ErrAlreadyUnlocked {
		t.Fatalf("expected already unlocked on repeat, got %v", err)
	}
}

func TestUnlockBoundaryIsInclusive(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA5)

	if _, err := l.Mint(ctx, a, bi(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(500), 60*time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}

	clk.Advance(59 * time.Second)
	if _, err := l.UnlockTokens(ctx, a, 0); err != ErrStillLocked {
		t.Fatalf("expected still locked one second early, got %v", err)
	}

	clk.Advance(time.Second)
	if _, err := l.UnlockTokens(ctx, a, 0); err != nil {
		t.Fatalf("unlock exactly at unlock time failed: %v", err)
	}
}

func TestLockExactAvailableBoundary(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA6)

	if _, err := l.Mint(ctx, a, bi(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(1_001), time.Hour); err != ErrInsufficientAvailable {
		t.Fatalf("expected insufficient available for balance+1, got %v", err)
	}
	res, err := l.LockTokens(ctx, a, bi(1_000), time.Hour)
	if err != nil {
		t.Fatalf("locking the full available amount failed: %v", err)
	}
	if res.Available.Sign() != 0 {
		t.Fatalf("expected zero available after full lock, got %s", res.Available)
	}
	if _, err := l.LockTokens(ctx, a, bi(1), time.Hour); err != ErrInsufficientAvailable {
		t.Fatalf("expected re-lock of locked funds to fail, got %v", err)
	}
}

func TestMultipleLocksAreIndependent(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA7)

	if _, err := l.Mint(ctx, a, bi(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	first, err := l.LockTokens(ctx, a, bi(1_000), time.Hour)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	second, err := l.LockTokens(ctx, a, bi(2_000), 2*time.Hour)
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if first.Index != 0 || second.Index != 1 {
		t.Fatalf("expected indices 0 and 1, got %d and %d", first.Index, second.Index)
	}

	count, _ := l.LockCount(ctx, a)
	if count != 2 {
		t.Fatalf("expected lock count 2, got %d", count)
	}
	locked, _ := l.LockedBalance(ctx, a)
	if locked.Cmp(bi(3_000)) != 0 {
		t.Fatalf("expected locked 3000, got %s", locked)
	}

	clk.Advance(time.Hour)
	if _, err := l.UnlockTokens(ctx, a, 0); err != nil {
		t.Fatalf("unlock first: %v", err)
	}

	locked, _ = l.LockedBalance(ctx, a)
	if locked.Cmp(bi(2_000)) != 0 {
		t.Fatalf("expected locked 2000 after first unlock, got %s", locked)
	}
	active, _ := l.ActiveLocks(ctx, a)
	if len(active) != 1 || active[0].Index != 1 {
		t.Fatalf("expected only lock 1 live, got %+v", active)
	}
	// Total-ever count is unchanged by the release.
	count, _ = l.LockCount(ctx, a)
	if count != 2 {
		t.Fatalf("expected lock count still 2, got %d", count)
	}
}

func TestUnlockUnknownLock(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xA8)

	if _, err := l.UnlockTokens(ctx, a, 0); err != ErrLockNotFound {
		t.Fatalf("expected lock not found on empty registry, got %v", err)
	}

	if _, err := l.Mint(ctx, a, bi(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(100), time.Minute); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := l.UnlockTokens(ctx, a, 7); err != ErrLockNotFound {
		t.Fatalf("expected lock not found past the arena end, got %v", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a, b := TestAddress(0xA9), TestAddress(0xB9)

	if _, err := l.Transfer(ctx, a, b, bi(0)); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount for zero transfer, got %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(0), time.Hour); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount for zero lock, got %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(10), 0); err != ErrInvalidDuration {
		t.Fatalf("expected invalid duration for zero duration, got %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(10), -time.Minute); err != ErrInvalidDuration {
		t.Fatalf("expected invalid duration for negative duration, got %v", err)
	}
}

func TestSelfTransfer(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xAA)

	if _, err := l.Mint(ctx, a, bi(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(600), time.Hour); err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Net no-op on the balance, still bounded by availability.
	res, err := l.Transfer(ctx, a, a, bi(400))
	if err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	if res.FromBalance.Cmp(bi(1_000)) != 0 || res.ToBalance.Cmp(bi(1_000)) != 0 {
		t.Fatalf("self transfer moved funds: %s / %s", res.FromBalance, res.ToBalance)
	}
	if _, err := l.Transfer(ctx, a, a, bi(401)); err != ErrInsufficientAvailable {
		t.Fatalf("expected self transfer above available to fail, got %v", err)
	}
}

func TestConservationAcrossOperations(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a, b, c := TestAddress(0x01), TestAddress(0x02), TestAddress(0x03)

	if _, err := l.Mint(ctx, a, bi(50_000)); err != nil {
		t.Fatalf("mint a: %v", err)
	}
	if _, err := l.Mint(ctx, b, bi(20_000)); err != nil {
		t.Fatalf("mint b: %v", err)
	}
	if _, err := l.Transfer(ctx, a, c, bi(5_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := l.LockTokens(ctx, b, bi(7_000), time.Minute); err != nil {
		t.Fatalf("lock: %v", err)
	}
	clk.Advance(time.Minute)
	if _, err := l.UnlockTokens(ctx, b, 0); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	total := new(big.Int)
	for _, addr := range []Address{a, b, c} {
		v, err := l.Balances(ctx, addr)
		if err != nil {
			t.Fatalf("balances %s: %v", addr, err)
		}
		// Available + Locked must equal the gross balance for every account.
		sum := new(big.Int).Add(v.Available, v.Locked)
		if sum.Cmp(v.Balance) != 0 {
			t.Fatalf("account %s: available %s + locked %s != balance %s", addr, v.Available, v.Locked, v.Balance)
		}
		total.Add(total, v.Balance)
	}

	supply, _ := l.TotalSupply(ctx)
	if total.Cmp(supply) != 0 || supply.Cmp(bi(70_000)) != 0 {
		t.Fatalf("conservation violated: balances sum %s, supply %s", total, supply)
	}
}

func TestQueriesOnUnknownAccount(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	ghost := TestAddress(0xEE)

	balance, err := l.BalanceOf(ctx, ghost)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s err %v", balance, err)
	}
	view, err := l.Balances(ctx, ghost)
	if err != nil || view.Balance.Sign() != 0 || view.Available.Sign() != 0 || view.Locked.Sign() != 0 {
		t.Fatalf("expected all-zero view, got %+v err %v", view, err)
	}
	count, err := l.LockCount(ctx, ghost)
	if err != nil || count != 0 {
		t.Fatalf("expected zero lock count, got %d err %v", count, err)
	}
	active, err := l.ActiveLocks(ctx, ghost)
	if err != nil || len(active) != 0 {
		t.Fatalf("expected empty lock list, got %+v err %v", active, err)
	}
}

func TestActiveLocksViewRoundTrip(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xAB)

	if _, err := l.Mint(ctx, a, bi(5_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	res, err := l.LockTokens(ctx, a, bi(1_234), 90*time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	active, _ := l.ActiveLocks(ctx, a)
	if len(active) != 1 {
		t.Fatalf("expected one active lock, got %d", len(active))
	}
	got := active[0]
	if got.Index != res.Index || got.Amount.Cmp(bi(1_234)) != 0 || got.UnlockTime != res.UnlockTime {
		t.Fatalf("lock view does not match creation: %+v vs %+v", got, res)
	}

	clk.Advance(90 * time.Second)
	if _, err := l.UnlockTokens(ctx, a, res.Index); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	active, _ = l.ActiveLocks(ctx, a)
	if len(active) != 0 {
		t.Fatalf("expected no active locks after unlock, got %+v", active)
	}
	count, _ := l.LockCount(ctx, a)
	if count != 1 {
		t.Fatalf("expected total-ever count 1, got %d", count)
	}
}

func TestGetLockReportsDeadLocks(t *testing.T) {
	l, clk := newTestLedger()
	ctx := context.Background()
	a := TestAddress(0xAC)

	if _, err := l.Mint(ctx, a, bi(300)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.LockTokens(ctx, a, bi(300), time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}
	clk.Advance(time.Second)
	if _, err := l.UnlockTokens(ctx, a, 0); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	lk, err := l.GetLock(ctx, a, 0)
	if err != nil {
		t.Fatalf("get lock: %v", err)
	}
	if lk.Live {
		t.Fatalf("released lock still reported live")
	}
	if lk.Amount.Cmp(bi(300)) != 0 {
		t.Fatalf("dead lock lost its amount: %s", lk.Amount)
	}
}

func TestConcurrentTransfersKeepLedgerBalanced(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	a, b := TestAddress(0xD0), TestAddress(0xD1)

	if _, err := l.Mint(ctx, a, bi(100_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Transfer(ctx, a, b, bi(500)); err != nil {
				t.Errorf("transfer %s failed: %v", fmt.Sprintf("tx-%d", i), err)
			}
		}(i)
	}
	wg.Wait()

	balA, _ := l.BalanceOf(ctx, a)
	balB, _ := l.BalanceOf(ctx, b)
	total := new(big.Int).Add(balA, balB)
	if total.Cmp(bi(100_000)) != 0 {
		t.Fatalf("ledger not balanced after concurrency, total=%s", total)
	}
	if balB.Cmp(bi(workers*500)) != 0 {
		t.Fatalf("expected %d delivered, got %s", workers*500, balB)
	}
}
