package scheduler

import (
	"context"
	"log/slog"

	"spotscheduler/internal/model"
	"spotscheduler/internal/position"
)

// Reconcile runs once before the first iteration: every order the report
// store last saw as Live is re-polled against the executor (or, in
// simulation mode, treated as resolved since the simulator carries no
// durable exchange-side state across a restart), the resulting state is
// folded into whatever position it belongs to, and ledger effects are
// applied before trading resumes. This prevents a crash between "order
// submitted" and "order accounted for" from silently losing balance state.
func (l *Loop) Reconcile(ctx context.Context) error {
	if l.deps.ReportStore == nil {
		return nil
	}
	liveOrders, err := l.deps.ReportStore.LiveOrders(ctx)
	if err != nil {
		return err
	}
	if len(liveOrders) == 0 {
		return nil
	}
	slog.Info("reconciling live orders from a previous run", "count", len(liveOrders))

	byInstID := make(map[string][]model.Order)
	for _, o := range liveOrders {
		byInstID[o.InstID] = append(byInstID[o.InstID], o)
	}

	for instid, orders := range byInstID {
		p, ok := l.account.Portfolio[instid]
		if !ok {
			p = &model.Position{InstID: instid, Status: model.StatusWaiting}
			l.account.Portfolio[instid] = p
		}
		for _, o := range orders {
			state, err := l.deps.Executor.PollState(ctx, &o)
			if err != nil {
				slog.Warn("reconcile poll failed, treating order as cancelled", "instid", instid, "order", o.ClOrdID, "err", err)
				state = model.StateCancelled
			}
			o.State = state
			p.Orders = appendOrReplace(p.Orders, o)
			if err := l.deps.ReportStore.SaveOrder(ctx, instid, &o); err != nil {
				slog.Warn("reconcile save order failed", "instid", instid, "err", err)
			}
		}
		position.Advance(p)
	}

	l.deps.Ledger.ApplyAccount(ctx, l.account)
	return nil
}

func appendOrReplace(orders []model.Order, o model.Order) []model.Order {
	for i := range orders {
		if orders[i].ClOrdID == o.ClOrdID {
			orders[i] = o
			return orders
		}
	}
	return append(orders, o)
}
