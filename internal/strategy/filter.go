// Package strategy filters the assembled candle windows down to tradeable
// candidates and ranks them into a priority order for buying.
package strategy

import (
	"sort"

	"spotscheduler/internal/model"
)

// IsValid reports whether p clears every gate a candidate must pass before
// it can be considered for a buy: not deny-listed, a gap-free candle
// window, at least windowSize/2 (rounded down) candles showing
// above-spendable volume and at least as many showing positive change,
// bounded deviation, and minimum last-candle volume/change.
func IsValid(p *model.Position, strat model.Strategy, windowSize int, spendable float64) bool {
	if contains(strat.DenyList, p.InstID) {
		return false
	}
	if len(p.Candlesticks) != windowSize {
		return false
	}

	half := windowSize / 2
	volAboveSpendable, positiveChange := 0, 0
	for _, c := range p.Candlesticks {
		if c.Vol > spendable {
			volAboveSpendable++
		}
		if c.Change > 0 {
			positiveChange++
		}
	}
	if volAboveSpendable < half {
		return false
	}
	if positiveChange < half {
		return false
	}

	if p.Change < strat.MinChange {
		return false
	}
	if strat.MaxDeviation > 0 && p.StdDeviation > strat.MaxDeviation {
		return false
	}
	if p.StdDeviation < strat.MinDeviation {
		return false
	}

	last := p.Candlesticks[len(p.Candlesticks)-1]
	if last.Vol < spendable {
		return false
	}
	if last.Change < strat.MinChangeLastCandle {
		return false
	}
	if p.Vol < strat.MinVol {
		return false
	}
	return true
}

// Filter retains only the candidates that pass IsValid.
func Filter(candidates []*model.Position, strat model.Strategy, windowSize int, spendable float64) []*model.Position {
	out := make([]*model.Position, 0, len(candidates))
	for _, c := range candidates {
		if IsValid(c, strat, windowSize, spendable) {
			out = append(out, c)
		}
	}
	return out
}

// Rank sorts candidates by std_deviation descending, tie-broken by change
// descending, then instid ascending — the deterministic ordering the
// scheduler buys down from.
func Rank(candidates []*model.Position) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.StdDeviation != b.StdDeviation {
			return a.StdDeviation > b.StdDeviation
		}
		if a.Change != b.Change {
			return a.Change > b.Change
		}
		return a.InstID < b.InstID
	})
}

// Top filters, ranks, and truncates candidates to the strategy's top_k.
func Top(candidates []*model.Position, strat model.Strategy, windowSize int, spendable float64) []*model.Position {
	filtered := Filter(candidates, strat, windowSize, spendable)
	Rank(filtered)
	if strat.Top > 0 && len(filtered) > strat.Top {
		filtered = filtered[:strat.Top]
	}
	return filtered
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
