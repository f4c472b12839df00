package exchange

import "spotscheduler/internal/model"

// apiResponse is the generic OKX response envelope: code "0" means success,
// data holds the typed payload array.
type apiResponse[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

// orderAck is the payload returned by a successful order submission.
type orderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// orderDetail is the payload returned by the order-status poll endpoint.
type orderDetail struct {
	OrdID     string `json:"ordId"`
	ClOrdID   string `json:"clOrdId"`
	InstID    string `json:"instId"`
	State     string `json:"state"`
	Side      string `json:"side"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	AvgPx     string `json:"avgPx"`
	FillSz    string `json:"fillSz"`
}

// balanceDetail is a single-currency balance line from the balance endpoint.
type balanceDetail struct {
	Ccy       string `json:"ccy"`
	AvailBal  string `json:"availBal"`
	CashBal   string `json:"cashBal"`
}

// balancePayload wraps the balance endpoint's nested details array.
type balancePayload struct {
	Details []balanceDetail `json:"details"`
}

// serverTime is the payload returned by the public time endpoint.
type serverTime struct {
	TS string `json:"ts"`
}

// toOrderState maps the exchange's state vocabulary onto model.OrderState,
// falling back to Cancelled for any state byte we don't recognize — an
// order we can't confirm live is treated as gone rather than stuck.
func toOrderState(s string) model.OrderState {
	switch s {
	case "live":
		return model.StateLive
	case "partially_filled":
		return model.StatePartiallyFilled
	case "filled":
		return model.StateFilled
	default:
		return model.StateCancelled
	}
}
