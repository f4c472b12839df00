package position

import (
	"testing"

	"spotscheduler/internal/model"
)

func tradingPosition(change float64, timeout int) *model.Position {
	return &model.Position{Status: model.StatusTrading, Change: change, Timeout: timeout}
}

func TestEvaluateTimeoutTakesPriority(t *testing.T) {
	strat := model.DefaultStrategy()
	p := tradingPosition(-10, 0) // would also trip stoploss, timeout must win
	reason, exit := Evaluate(p, strat, true)
	if !exit || reason != model.ExitTimeout {
		t.Fatalf("expected Timeout, got %s exit=%v", reason, exit)
	}
}

func TestEvaluateStoploss(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.Stoploss = 3.0
	p := tradingPosition(-3.5, 30)
	reason, exit := Evaluate(p, strat, true)
	if !exit || reason != model.ExitStoploss {
		t.Fatalf("expected Stoploss, got %s exit=%v", reason, exit)
	}
}

func TestEvaluateCashout(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.Timeout = 40
	strat.Cashout = 10
	p := tradingPosition(12, 10) // timeout < 40-5
	reason, exit := Evaluate(p, strat, true)
	if !exit || reason != model.ExitCashout {
		t.Fatalf("expected Cashout, got %s exit=%v", reason, exit)
	}
}

func TestEvaluateNoneWhenHealthy(t *testing.T) {
	strat := model.DefaultStrategy()
	p := tradingPosition(1, 30)
	reason, exit := Evaluate(p, strat, true)
	if exit {
		t.Fatalf("expected no exit, got %s", reason)
	}
}

func TestEvaluateLowChangeWhenRecentCandlesStall(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.Timeframe = 5 // needs 2 of the most recent 5 candles flat
	p := tradingPosition(1, 30)
	p.Candlesticks = []model.Candlestick{
		{Change: 1}, {Change: 0}, {Change: 0}, {Change: 1}, {Change: 1},
	}
	reason, exit := Evaluate(p, strat, true)
	if !exit || reason != model.ExitLowChange {
		t.Fatalf("expected LowChange, got %s exit=%v", reason, exit)
	}
}

func TestEvaluateIgnoresNonTradingPositions(t *testing.T) {
	strat := model.DefaultStrategy()
	p := &model.Position{Status: model.StatusWaiting, Change: -100, Timeout: 0}
	_, exit := Evaluate(p, strat, true)
	if exit {
		t.Fatal("expected Waiting positions to never be flagged for exit")
	}
}
