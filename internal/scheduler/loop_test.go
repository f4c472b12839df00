package scheduler

import (
	"context"
	"testing"
	"time"

	"spotscheduler/internal/candle"
	"spotscheduler/internal/clock"
	"spotscheduler/internal/ledger"
	"spotscheduler/internal/model"
	"spotscheduler/internal/strategy"
)

type fakeCandleStore struct {
	candles map[string][]model.Candlestick
	tickers map[string]model.Ticker
}

func (f *fakeCandleStore) WriteCandle(ctx context.Context, c model.Candlestick) error { return nil }
func (f *fakeCandleStore) QueryCandles(ctx context.Context, instid string, limit int) ([]model.Candlestick, error) {
	return f.candles[instid], nil
}
func (f *fakeCandleStore) QueryAllInstIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.candles))
	for id := range f.candles {
		ids = append(ids, id)
	}
	return ids, nil
}
func (f *fakeCandleStore) WriteTicker(ctx context.Context, t model.Ticker) error { return nil }
func (f *fakeCandleStore) QueryTickers(ctx context.Context) (map[string]model.Ticker, error) {
	return f.tickers, nil
}
func (f *fakeCandleStore) Close() error { return nil }

type fakeExecutor struct{}

func (fakeExecutor) Submit(ctx context.Context, o *model.Order, expTimeoutSeconds int) error {
	o.ID = "sim-" + o.ClOrdID
	o.State = model.StateLive
	return nil
}
func (fakeExecutor) PollState(ctx context.Context, o *model.Order) (model.OrderState, error) {
	return model.StateFilled, nil
}
func (fakeExecutor) Balance(ctx context.Context, ccy string) (float64, error) { return 1000, nil }

func newTestLoop(t *testing.T) (*Loop, *fakeCandleStore) {
	base := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	cs := &fakeCandleStore{candles: map[string][]model.Candlestick{
		"BTC-USDT": {
			{InstID: "BTC-USDT", TS: base.Add(-4 * time.Minute), Change: 1, High: 101, Low: 99, Vol: 200},
			{InstID: "BTC-USDT", TS: base.Add(-3 * time.Minute), Change: 1, High: 101, Low: 99, Vol: 200},
			{InstID: "BTC-USDT", TS: base.Add(-2 * time.Minute), Change: 1, High: 101, Low: 99, Vol: 200},
			{InstID: "BTC-USDT", TS: base.Add(-1 * time.Minute), Change: 1, High: 101, Low: 99, Close: 100, Vol: 200},
			{InstID: "BTC-USDT", TS: base, Change: 1, High: 101, Low: 99, Close: 100, Vol: 200},
		},
	}}

	strat := model.DefaultStrategy()
	strat.MinVol = 0
	strat.MinChange = 0
	strat.MinDeviation = 0
	strat.MinChangeLastCandle = 0
	strat.PortfolioSize = 5
	strat.Top = 5

	clk := clock.NewFrozen(base)
	deps := Deps{
		CandleStore: cs,
		ReportStore: nil,
		Assembler:   candle.New(cs, clk),
		Engine:      strategy.NewEngine(nil),
		Executor:    fakeExecutor{},
		Ledger:      ledger.New(0),
		Clock:       clk,
		WindowSize:  5,
		Concurrency: 4,
	}
	account := model.NewAccount("test", 1000, 100)
	return New(deps, account, strat), cs
}

func TestIterateBuysFromTopCandidates(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.iterate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := l.account.Portfolio["BTC-USDT"]; !ok {
		t.Fatal("expected BTC-USDT to have been bought into the portfolio")
	}
}

func TestReconcileNoOpWithoutReportStore(t *testing.T) {
	l, _ := newTestLoop(t)
	if err := l.Reconcile(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
