// Package exchange submits and polls orders against an OKX-style spot
// exchange, or simulates their lifecycle deterministically in paper mode.
package exchange

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spotscheduler/internal/model"
)

// NewClOrdID generates an idempotency key: a v4 UUID with hyphens stripped,
// matching the exchange's client-order-id format.
func NewClOrdID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewOrder builds an Order for side against p. For a buy, amount is the
// quote-currency spendable allocation and size is derived by dividing it by
// the current price; for a sell, amount already IS the token size to
// liquidate (the position's held balance) and is used as-is. Size is always
// floored to 6 decimal places so the submitted size never rounds up past
// what the account or position can cover.
func NewOrder(p *model.Position, side model.Side, ordType model.OrderType, price, amount float64, strategyHash string, now time.Time) model.Order {
	sz := decimal.NewFromFloat(amount)
	if side == model.SideBuy && price > 0 {
		sz = sz.Div(decimal.NewFromFloat(price))
	}
	sz = sz.Truncate(6)

	return model.Order{
		InstID:   p.InstID,
		TdMode:   "cash",
		ClOrdID:  NewClOrdID(),
		Side:     side,
		OrdType:  ordType,
		Px:       price,
		Sz:       sz.InexactFloat64(),
		TS:       now,
		State:    model.StateCreated,
		Strategy: strategyHash,
	}
}

// ForceMarket reports whether a sell order has been retried enough times
// that it should be resubmitted at market instead of limit/IOC, per the
// five-retry escalation rule.
func ForceMarket(o *model.Order) bool {
	return o.Side == model.SideSell && o.RetryCount >= 5
}
