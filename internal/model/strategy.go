package model

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// Strategy is the immutable set of trading knobs a scheduler run operates
// under. Its Hash binds every persisted order/report/strategy row to the
// exact parameters that produced it, so a config change never silently
// contaminates historical replay data.
type Strategy struct {
	Hash                string   `json:"hash,omitempty"`
	Top                 int      `json:"top"`
	PortfolioSize       int      `json:"portfolio_size"`
	Timeframe           int      `json:"timeframe"` // minutes
	Cooldown            int      `json:"cooldown"`  // seconds
	Timeout             int      `json:"timeout"`   // seconds
	MinVol              float64  `json:"min_vol"`
	MinChange           float64  `json:"min_change"`
	MinChangeLastCandle float64  `json:"min_change_last_candle"`
	MinDeviation        float64  `json:"min_deviation"`
	MaxDeviation        float64  `json:"max_deviation"`
	DenyList            []string `json:"deny_list,omitempty"`
	Cashout             float64  `json:"cashout"`
	Quickstart          bool     `json:"quickstart"`
	Stoploss            float64  `json:"stoploss"`
	AvoidAfterStoploss  bool     `json:"avoid_after_stoploss"`
	SellFloor           float64  `json:"sell_floor"`
	OrderType           string   `json:"order_type"`
}

// DefaultStrategy mirrors the reference defaults: a conservative 5-min
// timeframe, 5-wide portfolio, modest thresholds.
func DefaultStrategy() Strategy {
	return Strategy{
		Top:                 5,
		PortfolioSize:       5,
		Timeframe:           5,
		Cooldown:            40,
		Timeout:             40,
		MinVol:              5 * 3500,
		MinChange:           0.1,
		MinChangeLastCandle: 0.1,
		MinDeviation:        0.1,
		MaxDeviation:        0,
		Cashout:             10.0,
		Quickstart:          false,
		Stoploss:            3.0,
		AvoidAfterStoploss:  false,
		SellFloor:           0,
		OrderType:           "limit",
	}
}

// GetHash computes and returns a SHA-1 digest of the strategy's canonical
// JSON encoding, excluding the Hash field itself.
func (s Strategy) GetHash() (string, error) {
	s.Hash = ""
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}
