// Package candle assembles the rolling candlestick window each instrument
// is ranked and managed against, merging the store's persisted minute
// candles with a synthetic bar for the still-forming minute.
package candle

import (
	"context"
	"math"
	"sort"

	"spotscheduler/internal/clock"
	"spotscheduler/internal/model"
)

// Assembler builds a per-instrument candlestick window on demand.
type Assembler struct {
	store model.CandleStore
	clock clock.Clock
}

// New creates an Assembler backed by store, using clk to determine the
// boundary of the currently-forming minute.
func New(store model.CandleStore, clk clock.Clock) *Assembler {
	return &Assembler{store: store, clock: clk}
}

// Assemble builds the rolling window for instid: up to `window` of the most
// recent completed minute candles, plus a synthetic candle for the current
// partial minute folded from trades, then recomputes the window-level
// aggregates (Vol, Range, Change, StdDeviation).
func (a *Assembler) Assemble(ctx context.Context, instid string, window int, trades []model.Trade) (*model.Position, error) {
	historical, err := a.store.QueryCandles(ctx, instid, window)
	if err != nil {
		return nil, err
	}

	merged := mergeCandle(historical, a.foldPartial(instid, trades))
	sort.Slice(merged, func(i, j int) bool { return merged[i].TS.Before(merged[j].TS) })
	if len(merged) > window {
		merged = merged[len(merged)-window:]
	}

	p := &model.Position{
		InstID:       instid,
		Candlesticks: merged,
		Status:       model.StatusWaiting,
	}
	if len(merged) > 0 {
		last := merged[len(merged)-1]
		p.Price = last.Close
	}
	recomputeAggregates(p)
	return p, nil
}

// foldPartial folds trades belonging to the current open minute into a
// single synthetic candle: open=first print, close=last print,
// high/low=extremes, vol=sum(size*price).
func (a *Assembler) foldPartial(instid string, trades []model.Trade) *model.Candlestick {
	bucket := clock.MinuteFloor(a.clock.Now())
	var open, high, low, close, vol float64
	var seen bool
	for _, t := range trades {
		if t.InstID != instid || clock.MinuteFloor(t.TS) != bucket {
			continue
		}
		if !seen {
			open = t.Price
			high = t.Price
			low = t.Price
			seen = true
		}
		if t.Price > high {
			high = t.Price
		}
		if t.Price < low {
			low = t.Price
		}
		close = t.Price
		vol += t.Size * t.Price
	}
	if !seen {
		return nil
	}
	return &model.Candlestick{
		InstID: instid,
		TS:     bucket,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Vol:    vol,
		Change: model.ChangePct(open, close),
		Range:  model.RangePct(high, low),
	}
}

// mergeCandle inserts or replaces synthetic into historical keyed by minute.
func mergeCandle(historical []model.Candlestick, synthetic *model.Candlestick) []model.Candlestick {
	if synthetic == nil {
		return historical
	}
	out := make([]model.Candlestick, 0, len(historical)+1)
	replaced := false
	for _, c := range historical {
		if c.TS.Equal(synthetic.TS) {
			out = append(out, *synthetic)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, *synthetic)
	}
	return out
}

// recomputeAggregates recomputes the window-level summary fields on p from
// p.Candlesticks: Vol is the sum of per-candle volume, Range is the
// high/low range across the whole window, Change is the sum of per-candle
// change percentages, and StdDeviation is the population standard
// deviation of those per-candle change percentages.
func recomputeAggregates(p *model.Position) {
	n := len(p.Candlesticks)
	if n == 0 {
		return
	}
	var vol, changeSum float64
	high := p.Candlesticks[0].High
	low := p.Candlesticks[0].Low
	changes := make([]float64, n)
	for i, c := range p.Candlesticks {
		vol += c.Vol
		changeSum += c.Change
		changes[i] = c.Change
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	p.Vol = vol
	p.Range = model.RangePct(high, low)
	p.Change = changeSum
	p.StdDeviation = stdDeviation(changes)
}

func stdDeviation(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range xs {
		d := mean - x
		sumSq += d * d
	}
	return math.Sqrt(sumSq / n)
}

// BatchAssemble assembles windows for many instruments concurrently, bounded
// to at most `concurrency` outstanding store queries, and returns once every
// instrument has been assembled.
func BatchAssemble(ctx context.Context, a *Assembler, instids []string, window, concurrency int, trades []model.Trade) (map[string]*model.Position, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	type result struct {
		instid string
		pos    *model.Position
		err    error
	}
	in := make(chan string)
	out := make(chan result)
	workers := concurrency
	if workers > len(instids) {
		workers = len(instids)
	}
	if workers == 0 {
		return map[string]*model.Position{}, nil
	}
	for i := 0; i < workers; i++ {
		go func() {
			for instid := range in {
				pos, err := a.Assemble(ctx, instid, window, trades)
				out <- result{instid: instid, pos: pos, err: err}
			}
		}()
	}
	go func() {
		defer close(in)
		for _, id := range instids {
			select {
			case in <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make(map[string]*model.Position, len(instids))
	var firstErr error
	for range instids {
		r := <-out
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		results[r.instid] = r.pos
	}
	return results, firstErr
}
