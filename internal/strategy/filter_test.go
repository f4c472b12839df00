package strategy

import (
	"testing"

	"spotscheduler/internal/model"
)

func candidate(instid string, vol, change, stddev float64, windowSize int) *model.Position {
	cs := make([]model.Candlestick, windowSize)
	for i := range cs {
		cs[i] = model.Candlestick{InstID: instid, Change: change}
	}
	return &model.Position{
		InstID:       instid,
		Vol:          vol,
		Change:       change,
		StdDeviation: stddev,
		Candlesticks: cs,
	}
}

func TestIsValidRejectsDenyListed(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.DenyList = []string{"BTC-USDT"}
	p := candidate("BTC-USDT", 100000, 1, 1, 5)
	if IsValid(p, strat, 5, 0) {
		t.Fatal("expected deny-listed instrument to be invalid")
	}
}

func TestIsValidRejectsShortWindow(t *testing.T) {
	strat := model.DefaultStrategy()
	p := candidate("ETH-USDT", 100000, 1, 1, 3)
	if IsValid(p, strat, 5, 0) {
		t.Fatal("expected short window to be invalid")
	}
}

func TestIsValidRejectsOutOfBandDeviation(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.MinDeviation = 0.1
	strat.MaxDeviation = 2.0
	p := candidate("ETH-USDT", 100000, 1, 5.0, 5)
	if IsValid(p, strat, 5, 0) {
		t.Fatal("expected over-max-deviation candidate to be invalid")
	}
}

func TestIsValidRejectsWhenVolumeBelowSpendableForMajorityOfWindow(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.MinVol = 0
	strat.MinChange = 0
	strat.MinDeviation = 0
	strat.MinChangeLastCandle = 0
	p := candidate("ETH-USDT", 100000, 1, 1, 5)
	for i := range p.Candlesticks {
		p.Candlesticks[i].Vol = 10 // below spendable for every candle
	}
	if IsValid(p, strat, 5, 50) {
		t.Fatal("expected candidate with low per-candle volume to be invalid")
	}
}

func TestIsValidAcceptsWhenMajorityOfWindowClearsSpendable(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.MinVol = 0
	strat.MinChange = 0
	strat.MinDeviation = 0
	strat.MinChangeLastCandle = 0
	p := candidate("ETH-USDT", 100000, 1, 1, 5)
	for i := range p.Candlesticks {
		p.Candlesticks[i].Vol = 100 // clears spendable for every candle
	}
	if !IsValid(p, strat, 5, 50) {
		t.Fatal("expected candidate with ample per-candle volume to be valid")
	}
}

func TestRankOrdersByDeviationThenChangeThenInstID(t *testing.T) {
	a := candidate("AAA", 0, 1, 2, 1)
	b := candidate("BBB", 0, 3, 2, 1)
	c := candidate("CCC", 0, 1, 5, 1)
	pool := []*model.Position{a, b, c}
	Rank(pool)
	if pool[0] != c || pool[1] != b || pool[2] != a {
		t.Fatalf("unexpected rank order: %v %v %v", pool[0].InstID, pool[1].InstID, pool[2].InstID)
	}
}

func TestTopTruncatesToK(t *testing.T) {
	strat := model.DefaultStrategy()
	strat.Top = 1
	strat.MinVol = 0
	strat.MinChange = 0
	strat.MinDeviation = 0
	strat.MinChangeLastCandle = 0
	pool := []*model.Position{
		candidate("A", 0, 1, 3, 1),
		candidate("B", 0, 1, 9, 1),
	}
	top := Top(pool, strat, 1, 0)
	if len(top) != 1 || top[0].InstID != "B" {
		t.Fatalf("expected top-1 to be B, got %+v", top)
	}
}
