package candle

import (
	"context"
	"testing"
	"time"

	"spotscheduler/internal/clock"
	"spotscheduler/internal/model"
)

type fakeStore struct {
	candles map[string][]model.Candlestick
}

func (f *fakeStore) WriteCandle(ctx context.Context, c model.Candlestick) error { return nil }
func (f *fakeStore) QueryCandles(ctx context.Context, instid string, limit int) ([]model.Candlestick, error) {
	cs := f.candles[instid]
	if len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return cs, nil
}
func (f *fakeStore) QueryAllInstIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) WriteTicker(ctx context.Context, t model.Ticker) error { return nil }
func (f *fakeStore) QueryTickers(ctx context.Context) (map[string]model.Ticker, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func TestAssembleMergesSyntheticCandleAndTruncates(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{candles: map[string][]model.Candlestick{
		"BTC-USDT": {
			{InstID: "BTC-USDT", TS: base.Add(-3 * time.Minute), Open: 100, Close: 101, High: 102, Low: 99, Change: 1},
			{InstID: "BTC-USDT", TS: base.Add(-2 * time.Minute), Open: 101, Close: 102, High: 103, Low: 100, Change: 1},
			{InstID: "BTC-USDT", TS: base.Add(-1 * time.Minute), Open: 102, Close: 103, High: 104, Low: 101, Change: 1},
		},
	}}
	clk := clock.NewFrozen(base)
	a := New(store, clk)

	trades := []model.Trade{
		{InstID: "BTC-USDT", Price: 104, Size: 1, TS: base},
		{InstID: "BTC-USDT", Price: 106, Size: 2, TS: base.Add(10 * time.Second)},
		{InstID: "BTC-USDT", Price: 105, Size: 1, TS: base.Add(20 * time.Second)},
	}

	pos, err := a.Assemble(context.Background(), "BTC-USDT", 3, trades)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pos.Candlesticks) != 3 {
		t.Fatalf("expected window truncated to 3, got %d", len(pos.Candlesticks))
	}
	last := pos.Candlesticks[len(pos.Candlesticks)-1]
	if !last.TS.Equal(base) {
		t.Fatalf("expected last candle to be the synthetic current minute, got ts=%v", last.TS)
	}
	if last.Open != 104 || last.Close != 105 || last.High != 106 || last.Low != 104 {
		t.Fatalf("synthetic candle folded incorrectly: %+v", last)
	}
	if pos.Price != 105 {
		t.Fatalf("expected position price to be last close 105, got %v", pos.Price)
	}
}

func TestAssembleNoTradesKeepsHistoricalOnly(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	store := &fakeStore{candles: map[string][]model.Candlestick{
		"ETH-USDT": {
			{InstID: "ETH-USDT", TS: base.Add(-1 * time.Minute), Open: 10, Close: 11, High: 12, Low: 9, Change: 10},
		},
	}}
	clk := clock.NewFrozen(base)
	a := New(store, clk)

	pos, err := a.Assemble(context.Background(), "ETH-USDT", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pos.Candlesticks) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(pos.Candlesticks))
	}
}
