package exchange

import (
	"context"

	"spotscheduler/internal/model"
)

// Executor is the common surface the scheduler drives orders through,
// satisfied by both the live Client and the paper-trading Sim so the
// scheduler loop never branches on execution mode.
type Executor interface {
	Submit(ctx context.Context, o *model.Order, expTimeoutSeconds int) error
	PollState(ctx context.Context, o *model.Order) (model.OrderState, error)
	Balance(ctx context.Context, ccy string) (float64, error)
}
