package model

import "time"

// Side is the trade direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) String() string { return string(s) }

// OrderType mirrors the exchange's order-type vocabulary.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeIOC    OrderType = "ioc"
	OrderTypeLimit  OrderType = "limit"
)

// OrderState is the lifecycle state of a submitted order, as reported by
// the exchange's order-status endpoint.
type OrderState string

const (
	StateCreated         OrderState = "created"
	StateFailed          OrderState = "failed"
	StateLive            OrderState = "live"
	StatePartiallyFilled OrderState = "partially_filled"
	StateCancelled       OrderState = "cancelled"
	StateFilled          OrderState = "filled"
)

func (s OrderState) String() string { return string(s) }

// Order is a single order placed against a Position, one half of a
// buy/sell round trip. PrevState tracks the last state the ledger already
// applied balance effects for — the edge-triggered accounting key.
type Order struct {
	ID         string     `json:"id"`          // exchange order id, empty until acked
	InstID     string     `json:"instid"`
	TdMode     string     `json:"td_mode"`     // trade mode, e.g. "cash"
	ClOrdID    string     `json:"cl_ord_id"`   // client-generated idempotency key
	Side       Side       `json:"side"`
	OrdType    OrderType  `json:"ord_type"`
	Px         float64    `json:"px"`          // order price; sent to the exchange only for limit and ioc
	Sz         float64    `json:"sz"`          // order size
	TS         time.Time  `json:"ts"`
	State      OrderState `json:"state"`
	PrevState  OrderState `json:"prev_state"`
	Strategy   string     `json:"strategy"`    // strategy config hash
	RetryCount int        `json:"retry_count"` // sell retries before forcing market
}

// NeedsAccounting reports whether this order's current state has not yet
// had its balance effect applied by the ledger.
func (o *Order) NeedsAccounting() bool { return o.State != o.PrevState }

// MarkAccounted locks in the current state as accounted for.
func (o *Order) MarkAccounted() { o.PrevState = o.State }
