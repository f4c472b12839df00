package model

import "time"

// Ticker is a single 24h-stats tick for an instrument, as published by the
// exchange's public tickers feed. The scheduler loop copies its 24h volume
// and change onto the assembled candidates.
type Ticker struct {
	InstID    string    `json:"instid"`
	Price     float64   `json:"price"`      // last traded price
	Size      float64   `json:"size"`       // last traded size
	Vol24h    float64   `json:"vol24h"`     // rolling 24h volume
	Change24h float64   `json:"change24h"`  // rolling 24h change pct
	TS        time.Time `json:"ts"`         // exchange-provided event time
}

// CanonicalTS returns the best available timestamp for this ticker.
func (t *Ticker) CanonicalTS() time.Time {
	return t.TS
}
