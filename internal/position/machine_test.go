package position

import (
	"testing"

	"spotscheduler/internal/model"
)

func TestAdvanceWaitingWithNoOrders(t *testing.T) {
	p := &model.Position{}
	Advance(p)
	if p.Status != model.StatusWaiting {
		t.Fatalf("expected Waiting, got %s", p.Status)
	}
}

func TestAdvanceBuyingOnLiveBuy(t *testing.T) {
	p := &model.Position{Orders: []model.Order{{Side: model.SideBuy, State: model.StateLive}}}
	Advance(p)
	if p.Status != model.StatusBuying {
		t.Fatalf("expected Buying, got %s", p.Status)
	}
}

func TestAdvanceTradingOnFilledBuy(t *testing.T) {
	p := &model.Position{Orders: []model.Order{{Side: model.SideBuy, State: model.StateFilled}}}
	Advance(p)
	if p.Status != model.StatusTrading {
		t.Fatalf("expected Trading, got %s", p.Status)
	}
}

func TestAdvanceSellingOnLiveSell(t *testing.T) {
	p := &model.Position{Orders: []model.Order{
		{Side: model.SideBuy, State: model.StateFilled},
		{Side: model.SideSell, State: model.StateLive},
	}}
	Advance(p)
	if p.Status != model.StatusSelling {
		t.Fatalf("expected Selling, got %s", p.Status)
	}
}

func TestAdvanceExitedOnFilledSell(t *testing.T) {
	p := &model.Position{Orders: []model.Order{
		{Side: model.SideBuy, State: model.StateFilled},
		{Side: model.SideSell, State: model.StateFilled},
	}}
	Advance(p)
	if p.Status != model.StatusExited {
		t.Fatalf("expected Exited, got %s", p.Status)
	}
}

func TestCanBuyRejectsExistingLiveOrder(t *testing.T) {
	p := &model.Position{Status: model.StatusWaiting, Orders: []model.Order{{Side: model.SideBuy, State: model.StateLive}}}
	Advance(p)
	if CanBuy(p) {
		t.Fatal("expected CanBuy to be false once a buy order exists")
	}
}
