package model

import (
	"encoding/json"
	"time"
)

// Candlestick is a single OHLCV bar for one instrument at one-minute
// resolution (or a synthetic partial bar for the in-progress minute).
// Prices and sizes are float64: spot markets quote arbitrary decimal
// precision, unlike paise-denominated equities.
type Candlestick struct {
	InstID string    `json:"instid"`
	TS     time.Time `json:"ts"` // minute bucket start, UTC
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Vol    float64   `json:"vol"`
	Change float64   `json:"change"` // 100*(close-open)/open
	Range  float64   `json:"range"`  // 100*(high-low)/low
}

// Key returns a unique key for this candle's instrument.
func (c *Candlestick) Key() string { return c.InstID }

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candlestick) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// ChangePct returns 100*(close-open)/open. Returns 0 if open is 0.
func ChangePct(open, close float64) float64 {
	if open == 0 {
		return 0
	}
	return 100 * (close - open) / open
}

// RangePct returns 100*(high-low)/low. Returns 0 if low is 0.
func RangePct(high, low float64) float64 {
	if low == 0 {
		return 0
	}
	return 100 * (high - low) / low
}
