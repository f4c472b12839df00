package exchange

import (
	"context"
	"testing"

	"spotscheduler/internal/model"
)

func TestSimSubmitAcksLive(t *testing.T) {
	s := NewSim(1, 1000)
	o := &model.Order{InstID: "BTC-USDT", Side: model.SideBuy, Px: 100, Sz: 1}
	if err := s.Submit(context.Background(), o, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State != model.StateLive || o.ID == "" {
		t.Fatalf("expected live order with an id, got %+v", o)
	}
}

func TestSimPollStateIsDeterministicForASeed(t *testing.T) {
	run := func() []model.OrderState {
		s := NewSim(42, 1000)
		var states []model.OrderState
		for i := 0; i < 20; i++ {
			o := &model.Order{State: model.StateLive}
			st, err := s.PollState(context.Background(), o)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			states = append(states, st)
		}
		return states
	}
	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different sequence at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSimPollStateOnlyResolvesLiveOrders(t *testing.T) {
	s := NewSim(1, 1000)
	o := &model.Order{State: model.StateCancelled}
	st, err := s.PollState(context.Background(), o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != model.StateCancelled {
		t.Fatalf("expected non-live order returned unchanged, got %s", st)
	}
}
