package exchange

import (
	"context"
	"math/rand"
	"sync"

	"spotscheduler/internal/model"
)

// Sim simulates order execution with the same state-transition shape a
// real exchange exhibits: orders ack as Live on submit, then transition to
// Filled or Cancelled on poll. Fill probability is 1/6 per poll (matching
// the observed live fill-vs-cancel rate so simulation-mode runs exercise
// the same downstream ledger/report code paths a live run would).
type Sim struct {
	mu      sync.Mutex
	rng     *rand.Rand
	balance float64
}

// NewSim creates a Sim seeded deterministically so repeated runs with the
// same seed reproduce identical fill/cancel sequences.
func NewSim(seed int64, startingBalance float64) *Sim {
	return &Sim{rng: rand.New(rand.NewSource(seed)), balance: startingBalance}
}

// Submit immediately acks o as Live with a synthetic exchange id.
func (s *Sim) Submit(ctx context.Context, o *model.Order, expTimeoutSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = NewClOrdID()
	o.State = model.StateLive
	return nil
}

// PollState resolves a Live order: a 1-in-6 draw fills it, otherwise it is
// cancelled. Any order not Live is returned unchanged.
func (s *Sim) PollState(ctx context.Context, o *model.Order) (model.OrderState, error) {
	if o.State != model.StateLive {
		return o.State, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Intn(6) == 0 {
		if o.Side == model.SideBuy {
			s.balance -= o.Px * o.Sz
		} else {
			s.balance += o.Px * o.Sz
		}
		return model.StateFilled, nil
	}
	return model.StateCancelled, nil
}

// Balance returns the simulated account balance.
func (s *Sim) Balance(ctx context.Context, ccy string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}
