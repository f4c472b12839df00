package position

import "spotscheduler/internal/model"

// Evaluate implements the first-match-wins exit ladder: Timeout beats
// Stoploss beats Cashout beats FloorReached beats LowChange; returns
// (reason, true) when p should be sold, or (ExitNone, false) otherwise.
// foundInTopK reports whether p's instrument is still present in this
// iteration's ranked candidate list, which gates FloorReached.
func Evaluate(p *model.Position, strat model.Strategy, foundInTopK bool) (model.ExitReason, bool) {
	if p.Status != model.StatusTrading {
		return model.ExitNone, false
	}

	sellFloor := strat.SellFloor
	if p.Config.SellFloor > 0 {
		sellFloor = p.Config.SellFloor
	}
	timeout := strat.Timeout
	if p.Config.Timeout > 0 {
		timeout = p.Config.Timeout
	}

	switch {
	case p.Timeout <= 0:
		return model.ExitTimeout, true
	case p.Change <= -strat.Stoploss:
		return model.ExitStoploss, true
	case p.Change >= strat.Cashout && p.Timeout < timeout-5:
		return model.ExitCashout, true
	case sellFloor > 0 && p.Change >= sellFloor && p.Timeout < timeout-5 && !foundInTopK:
		return model.ExitFloorReached, true
	case stalledChangeCount(p.Candlesticks) >= strat.Timeframe/2:
		return model.ExitLowChange, true
	}
	return model.ExitNone, false
}

// stalledChangeCount returns how many of the most recent 5 candles (fewer
// if the window is shorter) have zero change.
func stalledChangeCount(candles []model.Candlestick) int {
	n := len(candles)
	start := n - 5
	if start < 0 {
		start = 0
	}
	zero := 0
	for _, c := range candles[start:] {
		if c.Change == 0 {
			zero++
		}
	}
	return zero
}
