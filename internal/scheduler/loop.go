// Package scheduler drives the trading loop: candle assembly, candidate
// ranking, order placement, ledger accounting, exit evaluation, and
// observer publication, in that fixed order every iteration.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"spotscheduler/internal/candle"
	"spotscheduler/internal/clock"
	"spotscheduler/internal/exchange"
	"spotscheduler/internal/ledger"
	"spotscheduler/internal/metrics"
	"spotscheduler/internal/model"
	"spotscheduler/internal/notification"
	"spotscheduler/internal/observer"
	"spotscheduler/internal/position"
	"spotscheduler/internal/risk"
	"spotscheduler/internal/strategy"
)

const notifyInterval = 30 * time.Minute

// Cooldowns gates buy-side re-entry for instruments that recently exited,
// backed by a TTL so expiry needs no per-iteration decrement bookkeeping.
// Satisfied by *redis.Cache.
type Cooldowns interface {
	OnCooldown(ctx context.Context, instid string) bool
	SetCooldown(ctx context.Context, instid string, ttl time.Duration) error
}

// Deps bundles the Loop's collaborators so it can be constructed without a
// long positional argument list.
type Deps struct {
	CandleStore  model.CandleStore
	ReportStore  model.ReportStore
	Assembler    *candle.Assembler
	Engine       *strategy.Engine
	Executor     exchange.Executor
	Ledger       *ledger.Ledger
	Publisher    *observer.Publisher
	Notifier     notification.Notifier
	Clock        clock.Clock
	WindowSize   int
	Concurrency  int
	Risk         *risk.Manager
	Metrics      *metrics.Metrics
	Cooldowns    Cooldowns
}

// Loop is the single-threaded scheduler: a cooperative driver over one
// Account under one Strategy.
type Loop struct {
	deps      Deps
	account   *model.Account
	strategy  model.Strategy
	lastNotify time.Time
	cycles    int
}

// New creates a Loop for account under strategy.
func New(deps Deps, account *model.Account, strat model.Strategy) *Loop {
	if deps.WindowSize <= 0 {
		deps.WindowSize = 5
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 5000
	}
	if deps.Risk == nil {
		deps.Risk = risk.NewManager(risk.Limits{
			MaxOpenPositions: strat.PortfolioSize,
			MaxDailyLoss:     -50, // account.Change is a percentage; halt buys once down 50%
			MaxSpendable:     account.Balance.Spendable,
		})
	}
	return &Loop{deps: deps, account: account, strategy: strat}
}

// Run executes iterations until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Reconcile(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := l.iterate(ctx); err != nil {
			slog.Error("scheduler iteration failed", "err", err)
		}
		l.cycles++
	}
}

// iterate runs exactly one pass of the fifteen-step loop body.
func (l *Loop) iterate(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if l.deps.Metrics != nil {
			l.deps.Metrics.IterationDur.Observe(time.Since(start).Seconds())
			l.deps.Metrics.Iterations.Inc()
			l.deps.Metrics.PortfolioSize.Set(float64(len(l.account.Portfolio)))
			l.deps.Metrics.AccountBalance.Set(l.account.Balance.Current)
			l.deps.Metrics.AccountEarnings.Set(l.account.Earnings)
		}
	}()

	now := l.deps.Clock.Now()

	// 1-2: discover instruments, assemble candle windows for all of them.
	instids, err := l.deps.CandleStore.QueryAllInstIDs(ctx)
	if err != nil {
		if l.deps.Metrics != nil {
			l.deps.Metrics.IterationError.Inc()
		}
		return err
	}
	pool, err := candle.BatchAssemble(ctx, l.deps.Assembler, instids, l.deps.WindowSize, l.deps.Concurrency, nil)
	if err != nil {
		slog.Warn("candle assembly had errors", "err", err)
		if l.deps.Metrics != nil {
			l.deps.Metrics.CandleAssembleErrors.Inc()
		}
	}

	// 3: attach 24h ticker stats.
	tickers, err := l.deps.CandleStore.QueryTickers(ctx)
	if err == nil {
		for id, t := range tickers {
			if p, ok := pool[id]; ok {
				p.Vol24h = t.Vol24h
				p.Change24h = t.Change24h
			}
		}
	}

	// 4: filter + rank candidates.
	candidates := make([]*model.Position, 0, len(pool))
	for _, p := range pool {
		candidates = append(candidates, p)
	}
	topK := l.deps.Engine.Candidates(candidates, l.strategy, l.deps.WindowSize, l.account.Balance.Spendable)
	topKSet := make(map[string]bool, len(topK))
	for _, c := range topK {
		topKSet[c.InstID] = true
	}

	// 4b: refresh candle windows for already-open positions so timeout-reset
	// and exit evaluation see this iteration's data.
	for instid, p := range l.account.Portfolio {
		if fresh, ok := pool[instid]; ok {
			p.Candlesticks = fresh.Candlesticks
			p.Price = fresh.Price
			p.Change = fresh.Change
			p.StdDeviation = fresh.StdDeviation
			p.Vol = fresh.Vol
		}
	}

	// 5: buy into the portfolio from topK.
	l.buyTokens(ctx, topK, now)

	// 6-7: timeout bookkeeping (reset on continued top-K membership + last
	// candle momentum, else decrement).
	l.updateTimeouts(topKSet)

	// 9: poll outstanding orders, advance position state machine.
	l.updateOrders(ctx)

	// 10: exactly-once ledger accounting.
	l.deps.Ledger.ApplyAccount(ctx, l.account)

	// 11: evaluate exit reasons for Trading positions.
	l.tagExits(topKSet)

	// 12: submit sells for flagged positions.
	l.sellTokens(ctx, now)

	// 13: evict settled, drained-out positions.
	l.deps.Ledger.Cleanup(l.account, 2.0)

	// 14: publish state to observers.
	l.publish(candidates)

	// 15: push alerts.
	l.notify(ctx, now)

	return nil
}

func (l *Loop) buyTokens(ctx context.Context, topK []*model.Position, now time.Time) {
	// Quickstart overrides cooldown gating for the process's first iteration
	// only, so a cold-started portfolio doesn't sit idle waiting out stale
	// cooldown timers from a previous run.
	quickstart := l.strategy.Quickstart && l.cycles == 0

	for _, c := range topK {
		if _, exists := l.account.Portfolio[c.InstID]; exists {
			continue
		}
		if l.account.IsDenied(c.InstID) {
			continue
		}
		if !quickstart && l.deps.Cooldowns != nil && l.deps.Cooldowns.OnCooldown(ctx, c.InstID) {
			continue
		}
		if l.account.Balance.Available < l.account.Balance.Spendable {
			continue
		}
		if ok, reason := l.deps.Risk.CanBuy(l.account, l.account.Balance.Spendable); !ok {
			slog.Warn("buy blocked by risk limits", "instid", c.InstID, "reason", reason)
			break
		}

		c.RoundID = exchange.NewClOrdID()
		c.Timeout = l.strategy.Timeout
		c.Cooldown = l.strategy.Cooldown
		c.Strategy = l.strategy.Hash
		c.Status = model.StatusWaiting

		ordType := model.OrderTypeIOC
		if l.strategy.OrderType == string(model.OrderTypeMarket) {
			ordType = model.OrderTypeMarket
		}
		order := exchange.NewOrder(c, model.SideBuy, ordType, c.Price, l.account.Balance.Spendable, l.strategy.Hash, now)
		if err := l.deps.Executor.Submit(ctx, &order, l.strategy.Timeout); err != nil {
			slog.Warn("buy submit failed", "instid", c.InstID, "err", err)
		}
		if l.deps.Metrics != nil {
			l.deps.Metrics.OrdersSubmitted.WithLabelValues(string(model.SideBuy)).Inc()
		}
		c.Orders = append(c.Orders, order)
		position.Advance(c)
		l.account.Portfolio[c.InstID] = c

		if l.deps.ReportStore != nil {
			_ = l.deps.ReportStore.SaveOrder(ctx, c.InstID, &order)
		}
	}
}

// updateTimeouts resets a Trading position's timeout to its configured full
// value when its instrument is still in this iteration's top-K and its last
// candle shows continued positive momentum; otherwise the timeout decrements
// by one tick, counting down toward a forced Timeout exit.
func (l *Loop) updateTimeouts(topKSet map[string]bool) {
	for instid, p := range l.account.Portfolio {
		if p.Status != model.StatusTrading {
			continue
		}
		lastCandlePositive := false
		if n := len(p.Candlesticks); n > 0 {
			lastCandlePositive = p.Candlesticks[n-1].Change > l.strategy.MinChange
		}
		if topKSet[instid] && lastCandlePositive {
			timeout := l.strategy.Timeout
			if p.Config.Timeout > 0 {
				timeout = p.Config.Timeout
			}
			p.Timeout = timeout
			continue
		}
		p.Timeout--
	}
}

func (l *Loop) updateOrders(ctx context.Context) {
	for _, p := range l.account.Portfolio {
		for i := range p.Orders {
			o := &p.Orders[i]
			// Poll only orders whose Live state the ledger has already
			// accounted for, so each transition gets its own ledger pass.
			if o.State != model.StateLive || o.PrevState != model.StateLive {
				continue
			}
			state, err := l.deps.Executor.PollState(ctx, o)
			if err != nil {
				slog.Warn("poll order failed", "instid", p.InstID, "order", o.ClOrdID, "err", err)
				continue
			}
			o.State = state
			if l.deps.Metrics != nil {
				switch state {
				case model.StateFilled:
					l.deps.Metrics.OrdersFilled.WithLabelValues(string(o.Side)).Inc()
					l.deps.Metrics.OrderRoundtrip.Observe(l.deps.Clock.Now().Sub(o.TS).Seconds())
				case model.StateCancelled, model.StateFailed:
					l.deps.Metrics.OrdersFailed.WithLabelValues(string(o.Side), string(state)).Inc()
				}
			}
			if l.deps.ReportStore != nil {
				_ = l.deps.ReportStore.SaveOrder(ctx, p.InstID, o)
			}
		}
		position.Advance(p)
	}
}

func (l *Loop) tagExits(topKSet map[string]bool) {
	for _, p := range l.account.Portfolio {
		reason, exit := position.Evaluate(p, l.strategy, topKSet[p.InstID])
		if exit {
			p.ExitReason = reason
			if l.deps.Metrics != nil {
				l.deps.Metrics.ExitReasons.WithLabelValues(string(reason)).Inc()
			}
		}
	}
}

func (l *Loop) sellTokens(ctx context.Context, now time.Time) {
	for _, p := range l.account.Portfolio {
		if p.ExitReason == model.ExitNone || !position.CanSell(p) {
			continue
		}
		ordType := model.OrderTypeIOC
		last := p.LastOrder()
		if last != nil && exchange.ForceMarket(last) {
			ordType = model.OrderTypeMarket
		}
		order := exchange.NewOrder(p, model.SideSell, ordType, p.Price, p.Balance, p.Strategy, now)
		if last != nil && last.Side == model.SideSell {
			order.RetryCount = last.RetryCount + 1
		}
		if err := l.deps.Executor.Submit(ctx, &order, 0); err != nil {
			slog.Warn("sell submit failed", "instid", p.InstID, "err", err)
		}
		p.Orders = append(p.Orders, order)
		position.Advance(p)
		if l.deps.ReportStore != nil {
			_ = l.deps.ReportStore.SaveOrder(ctx, p.InstID, &order)
		}

		if p.Status == model.StatusExited {
			l.finalizeReport(ctx, p)
			if l.deps.Cooldowns != nil {
				if err := l.deps.Cooldowns.SetCooldown(ctx, p.InstID, time.Duration(l.strategy.Cooldown)*time.Second); err != nil {
					slog.Warn("set cooldown failed", "instid", p.InstID, "err", err)
				}
			}
			if p.ExitReason == model.ExitStoploss && l.strategy.AvoidAfterStoploss {
				l.account.Deny(p.InstID)
			}
		}
	}
}

func (l *Loop) finalizeReport(ctx context.Context, p *model.Position) {
	if l.deps.ReportStore == nil {
		return
	}
	r := model.NewReport(p.RoundID, p.Strategy, p)
	r.SellPrice = p.Price
	r.Earnings = p.Earnings
	r.Reason = p.ExitReason
	r.Highest = p.Change
	r.TimeLeft = p.Timeout
	r.TS = l.deps.Clock.Now()
	p.Report = r
	_ = l.deps.ReportStore.SaveReport(ctx, r)
}

func (l *Loop) publish(candidates []*model.Position) {
	if l.deps.Publisher == nil {
		return
	}
	portfolio := make([]*model.Position, 0, len(l.account.Portfolio))
	for _, p := range l.account.Portfolio {
		portfolio = append(portfolio, p)
	}
	l.deps.Publisher.Offer(observer.Snapshot{
		Account:   l.account,
		Portfolio: portfolio,
		Tokens:    candidates,
	})
}

func (l *Loop) notify(ctx context.Context, now time.Time) {
	if l.deps.Notifier == nil {
		return
	}
	for _, p := range l.account.Portfolio {
		switch p.ExitReason {
		case model.ExitStoploss:
			l.deps.Notifier.Send(ctx, notification.Alert{
				Level: notification.AlertWarning, Title: "stoploss hit",
				Message: p.InstID + " change=" + formatPct(p.Change),
			})
		case model.ExitCashout:
			l.deps.Notifier.Send(ctx, notification.Alert{
				Level: notification.AlertInfo, Title: "cashout",
				Message: p.InstID + " change=" + formatPct(p.Change),
			})
		}
	}

	if l.lastNotify.IsZero() {
		l.lastNotify = now
	}
	if now.Sub(l.lastNotify) >= notifyInterval {
		l.deps.Notifier.Send(ctx, notification.Alert{
			Level: notification.AlertInfo, Title: "balance",
			Message: "current=" + formatPct(l.account.Balance.Current) + " change=" + formatPct(l.account.Change),
		})
		l.lastNotify = now
	}
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
