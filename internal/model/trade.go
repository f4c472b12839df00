package model

import "time"

// Trade is a single executed print on the exchange's public trade feed,
// used by the candle assembler to fold the in-progress minute before the
// store has persisted a completed candlestick for it.
type Trade struct {
	InstID string    `json:"instid"`
	Price  float64   `json:"price"`
	Size   float64   `json:"size"`
	TS     time.Time `json:"ts"`
}
