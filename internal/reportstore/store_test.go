package reportstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spotscheduler/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndQueryReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &model.Report{
		RoundID: "r1", InstID: "BTC-USDT", BuyPrice: 100, SellPrice: 110,
		Earnings: 10, Reason: model.ExitCashout, Highest: 12, HighestElapsed: 35,
		Strategy: "hash1", TS: time.Now().UTC(),
	}
	if err := s.SaveReport(ctx, r); err != nil {
		t.Fatalf("save report: %v", err)
	}

	got, err := s.ReportsFor(ctx, "BTC-USDT", "hash1")
	if err != nil {
		t.Fatalf("query reports: %v", err)
	}
	if len(got) != 1 || got[0].RoundID != "r1" {
		t.Fatalf("expected one report r1, got %+v", got)
	}
}

func TestSeedThresholdsFallsBackWhenNoHistory(t *testing.T) {
	s := openTestStore(t)
	strat := model.DefaultStrategy()
	strat.Hash = "hash1"
	strat.SellFloor = 0.5
	strat.Timeout = 40

	cfg, err := s.SeedThresholds(context.Background(), "BTC-USDT", strat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SellFloor != 0.5 || cfg.Timeout != 40 {
		t.Fatalf("expected strategy defaults, got %+v", cfg)
	}
}

func TestSeedThresholdsAdoptsReplayWhenSignificant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	strat := model.DefaultStrategy()
	strat.Hash = "hash1"

	for i, h := range []float64{0.3, 0.9, 1.5} {
		r := &model.Report{
			RoundID: model.Itoa(i), InstID: "BTC-USDT", Highest: h, HighestElapsed: 60 + i*5,
			Strategy: "hash1", TS: time.Now().UTC(),
		}
		if err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("save report: %v", err)
		}
	}

	cfg, err := s.SeedThresholds(ctx, "BTC-USDT", strat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// stddev(highest) = stddev(0.3, 0.9, 1.5) ~= 0.49 >= 0.1: adopted.
	if cfg.SellFloor < 0.48 || cfg.SellFloor > 0.50 {
		t.Fatalf("expected replayed sell_floor ~0.49 to be adopted, got %v", cfg.SellFloor)
	}
	// stddev(highest_elapsed) = stddev(60, 65, 70) ~= 4s < 30s: strategy default kept.
	if cfg.Timeout != strat.Timeout {
		t.Fatalf("expected timeout to fall back to strategy default %d, got %d", strat.Timeout, cfg.Timeout)
	}
}

func TestLiveOrdersReturnsOnlyLiveState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	live := model.Order{ClOrdID: "a", InstID: "BTC-USDT", State: model.StateLive}
	filled := model.Order{ClOrdID: "b", InstID: "BTC-USDT", State: model.StateFilled}
	if err := s.SaveOrder(ctx, "BTC-USDT", &live); err != nil {
		t.Fatalf("save order: %v", err)
	}
	if err := s.SaveOrder(ctx, "BTC-USDT", &filled); err != nil {
		t.Fatalf("save order: %v", err)
	}

	orders, err := s.LiveOrders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].ClOrdID != "a" {
		t.Fatalf("expected only the live order, got %+v", orders)
	}
}
