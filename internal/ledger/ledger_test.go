package ledger

import (
	"context"
	"testing"

	"spotscheduler/internal/model"
)

func newTestAccount() *model.Account {
	acc := model.NewAccount("test", 1000, 100)
	acc.Portfolio["BTC-USDT"] = &model.Position{InstID: "BTC-USDT", Status: model.StatusTrading}
	return acc
}

func TestApplyAccountIsIdempotentPerTransition(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Orders = append(p.Orders, model.Order{Side: model.SideBuy, State: model.StateLive})
	l := New(0.001)

	l.ApplyAccount(context.Background(), acc)
	afterFirst := acc.Balance.Available

	// Run again with no state change: must not re-apply the effect.
	l.ApplyAccount(context.Background(), acc)
	if acc.Balance.Available != afterFirst {
		t.Fatalf("expected idempotent re-run, balance changed from %v to %v", afterFirst, acc.Balance.Available)
	}
}

func TestBuyLiveReservesSpendable(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Orders = append(p.Orders, model.Order{Side: model.SideBuy, State: model.StateLive})
	l := New(0)
	l.ApplyAccount(context.Background(), acc)
	if acc.Balance.Available != 900 {
		t.Fatalf("expected available reduced by spendable to 900, got %v", acc.Balance.Available)
	}
}

func TestBuyCancelledReleasesReservation(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Orders = append(p.Orders, model.Order{Side: model.SideBuy, State: model.StateLive})
	l := New(0)
	l.ApplyAccount(context.Background(), acc)

	p.Orders[0].State = model.StateCancelled
	l.ApplyAccount(context.Background(), acc)
	if acc.Balance.Available != 1000 {
		t.Fatalf("expected reservation released back to 1000, got %v", acc.Balance.Available)
	}
}

func TestSellFilledRecordsEarnings(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Orders = append(p.Orders,
		model.Order{Side: model.SideBuy, State: model.StateLive},
		model.Order{Side: model.SideBuy, State: model.StateFilled},
	)
	l := New(0)
	l.ApplyAccount(context.Background(), acc)
	l.ApplyAccount(context.Background(), acc) // no-op: the first pass already applied both buy orders

	p.Orders = append(p.Orders, model.Order{Side: model.SideSell, State: model.StateFilled, Px: 2, Sz: 60})
	l.ApplyAccount(context.Background(), acc)

	if p.Earnings <= 0 {
		t.Fatalf("expected positive earnings on a profitable sell, got %v", p.Earnings)
	}
	if acc.Trades != 2 {
		t.Fatalf("expected 2 recorded trades (buy fill + sell fill), got %d", acc.Trades)
	}
}

func TestCleanupEvictsExitedWithNoBalance(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Status = model.StatusExited
	p.Balance = 0
	l := New(0)
	l.Cleanup(acc, 2.0)
	if _, ok := acc.Portfolio["BTC-USDT"]; ok {
		t.Fatal("expected exited position with no balance to be evicted")
	}
}

func TestCleanupRetainsExitedWithRemainingBalance(t *testing.T) {
	acc := newTestAccount()
	p := acc.Portfolio["BTC-USDT"]
	p.Status = model.StatusExited
	p.Balance = 5.0
	l := New(0)
	l.Cleanup(acc, 2.0)
	if _, ok := acc.Portfolio["BTC-USDT"]; !ok {
		t.Fatal("expected exited position with remaining balance to be retained")
	}
}
