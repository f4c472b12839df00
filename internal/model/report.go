package model

import (
	"fmt"
	"time"
)

// Report is the closing summary of one completed round trip, persisted so
// that future positions on the same instrument can replay the historical
// distribution of outcomes (see reportstore.SeedThresholds).
type Report struct {
	RoundID        string     `json:"round_id"`
	InstID         string     `json:"instid"`
	BuyPrice       float64    `json:"buy_price"`
	SellPrice      float64    `json:"sell_price"`
	Earnings       float64    `json:"earnings"`
	Reason         ExitReason `json:"reason"`
	Highest        float64    `json:"highest"`         // peak change pct observed while open
	HighestElapsed int        `json:"highest_elapsed"` // seconds elapsed when Highest was set
	Lowest         float64    `json:"lowest"`
	LowestElapsed  int        `json:"lowest_elapsed"`
	Change         float64    `json:"change"` // final change pct
	TimeLeft       int        `json:"time_left"`
	Strategy       string     `json:"strategy"` // strategy hash
	TS             time.Time  `json:"ts"`
}

// NewReport seeds a Report from the position it closes out, at exit time.
func NewReport(roundID, strategyHash string, p *Position) *Report {
	return &Report{
		RoundID:  roundID,
		InstID:   p.InstID,
		BuyPrice: p.BuyPrice,
		Change:   p.Change,
		TimeLeft: p.Timeout,
		Strategy: strategyHash,
		Reason:   ExitNone,
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("[%s] %s buy=%.8f sell=%.8f earnings=%.4f reason=%s change=%.2f%%",
		r.RoundID, r.InstID, r.BuyPrice, r.SellPrice, r.Earnings, r.Reason, r.Change)
}
