// Package position derives a Position's lifecycle status from its orders
// and evaluates when it should be flagged for exit.
package position

import "spotscheduler/internal/model"

// Advance recomputes p.Status from p's orders, following the
// Waiting -> Buying -> Trading -> Selling -> Exited derivation:
//   - no orders at all: Waiting
//   - a Live buy order and no filled buy yet: Buying
//   - a filled buy and no sell order yet (or a non-live sell): Trading
//   - a Live sell order: Selling
//   - a filled sell order: Exited
func Advance(p *model.Position) {
	var boughtFilled, soldFilled bool
	var buyLive, sellLive bool
	for i := range p.Orders {
		o := &p.Orders[i]
		switch o.Side {
		case model.SideBuy:
			if o.State == model.StateFilled {
				boughtFilled = true
			}
			if o.State == model.StateLive {
				buyLive = true
			}
		case model.SideSell:
			if o.State == model.StateFilled {
				soldFilled = true
			}
			if o.State == model.StateLive {
				sellLive = true
			}
		}
	}

	switch {
	case soldFilled:
		p.Status = model.StatusExited
	case sellLive:
		p.Status = model.StatusSelling
	case boughtFilled:
		p.Status = model.StatusTrading
	case buyLive:
		p.Status = model.StatusBuying
	default:
		p.Status = model.StatusWaiting
	}
}

// CanBuy reports whether p is eligible to receive a new buy order: it must
// not already carry a Live order on either side, and must still be Waiting.
func CanBuy(p *model.Position) bool {
	if p.Status != model.StatusWaiting {
		return false
	}
	return p.LiveOrder(model.SideBuy) == nil && p.LiveOrder(model.SideSell) == nil
}

// CanSell reports whether p is eligible to receive a new sell order: it
// must be Trading (bought, not yet sold) with no Live sell order already
// outstanding.
func CanSell(p *model.Position) bool {
	if p.Status != model.StatusTrading {
		return false
	}
	return p.LiveOrder(model.SideSell) == nil
}
