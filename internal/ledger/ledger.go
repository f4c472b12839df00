// Package ledger applies exactly-once balance effects to the account as
// orders transition state, and retains or evicts positions from the
// tracked portfolio.
package ledger

import (
	"context"
	"strings"

	"spotscheduler/internal/exchange"
	"spotscheduler/internal/model"
)

// Ledger owns the fee schedule used to compute balance effects.
type Ledger struct {
	TakerFee float64
	// Executor, when set, is used to fetch a Filled buy's settled position
	// balance from the exchange instead of computing it from spendable/price.
	// Sim-mode ledgers leave this nil and always compute.
	Executor exchange.Executor
}

// New creates a Ledger with the given taker fee rate, computing filled-buy
// position balances rather than fetching them live.
func New(takerFee float64) *Ledger {
	return &Ledger{TakerFee: takerFee}
}

// NewWithExecutor creates a Ledger that refreshes filled-buy position
// balances from executor's live balance endpoint.
func NewWithExecutor(takerFee float64, executor exchange.Executor) *Ledger {
	return &Ledger{TakerFee: takerFee, Executor: executor}
}

// ApplyAccount walks every order on every position in account.Portfolio and
// applies a balance effect exactly once per state transition: an order
// whose State already equals PrevState is skipped, otherwise its effect is
// applied and PrevState is advanced to State. This guarantees idempotent,
// exactly-once accounting regardless of how many times ApplyAccount runs
// per iteration. Once transitions are applied, account.Balance.Current,
// account.Change and account.Earnings are reconciled from the resulting
// state.
func (l *Ledger) ApplyAccount(ctx context.Context, account *model.Account) {
	for _, p := range account.Portfolio {
		l.applyPosition(ctx, account, p)
	}
	l.reconcile(account)
}

func (l *Ledger) applyPosition(ctx context.Context, account *model.Account, p *model.Position) {
	for i := range p.Orders {
		o := &p.Orders[i]
		if !o.NeedsAccounting() {
			continue
		}
		l.applyOrder(ctx, account, p, o)
		o.MarkAccounted()
	}
}

// applyOrder applies the balance effect for a single state transition.
func (l *Ledger) applyOrder(ctx context.Context, account *model.Account, p *model.Position, o *model.Order) {
	switch {
	case o.Side == model.SideBuy && o.State == model.StateLive:
		account.Balance.Available -= account.Balance.Spendable

	case o.Side == model.SideBuy && o.State == model.StateFilled:
		fee := account.Balance.Spendable * l.TakerFee
		account.FeeSpend += fee
		p.FeesDeducted += fee
		p.BuyPrice = o.Px
		account.Trades++
		p.Balance = l.settledBuyBalance(ctx, p, account.Balance.Spendable-fee, o.Px)

	case o.Side == model.SideBuy && (o.State == model.StateCancelled || (o.State == model.StateFailed && o.PrevState == model.StateLive)):
		// A buy that failed without ever going Live reserved nothing.
		account.Balance.Available += account.Balance.Spendable

	case o.Side == model.SideSell && o.State == model.StateFilled:
		proceeds := o.Px * o.Sz
		fee := proceeds * l.TakerFee
		account.FeeSpend += fee
		p.FeesDeducted += fee
		net := proceeds - fee
		p.Balance -= o.Sz
		account.Balance.Available += net
		earnings := net - account.Balance.Spendable
		p.Earnings = earnings
		account.Trades++

	case o.Side == model.SideSell && o.State == model.StateFailed && l.Executor != nil:
		if bal, err := l.Executor.Balance(ctx, baseCurrency(p.InstID)); err == nil {
			p.Balance = bal
		}
	}
}

// settledBuyBalance returns the token quantity a filled buy settles into:
// fetched live from the exchange when Executor is set, else computed from
// the fee-adjusted spend divided by fill price.
func (l *Ledger) settledBuyBalance(ctx context.Context, p *model.Position, spendableAfterFee, price float64) float64 {
	if l.Executor != nil {
		if bal, err := l.Executor.Balance(ctx, baseCurrency(p.InstID)); err == nil {
			return bal
		}
	}
	if price <= 0 {
		return 0
	}
	return spendableAfterFee / price
}

// reconcile recomputes account.Balance.Current, account.Change (as a
// percentage of start) and account.Earnings from the available balance,
// value still tied up in open buy orders, and the mark-to-market value of
// every held position.
func (l *Ledger) reconcile(account *model.Account) {
	openOrderValue := 0.0
	positionsValue := 0.0
	for _, p := range account.Portfolio {
		if p.LiveOrder(model.SideBuy) != nil {
			openOrderValue += account.Balance.Spendable
		}
		positionsValue += p.Balance * p.Price
	}
	account.Balance.Current = account.Balance.Available + openOrderValue + positionsValue
	if account.Balance.Start != 0 {
		account.Change = 100 * (account.Balance.Current - account.Balance.Start) / account.Balance.Start
	}
	account.Earnings = account.Balance.Current - account.Balance.Start
}

// baseCurrency extracts the base asset from an "instid" like "BTC-USDT".
func baseCurrency(instid string) string {
	if i := strings.Index(instid, "-"); i >= 0 {
		return instid[:i]
	}
	return instid
}

// Cleanup retains a position in the portfolio only while it is still
// Waiting/Buying/Trading/Selling (has a live order or hasn't traded yet) or
// still carries meaningful remaining balance; Exited positions with
// negligible balance are evicted.
func (l *Ledger) Cleanup(account *model.Account, minRemainingBalance float64) {
	for key, p := range account.Portfolio {
		if p.Status != model.StatusExited {
			continue
		}
		if p.LiveOrder(model.SideBuy) != nil || p.LiveOrder(model.SideSell) != nil {
			continue
		}
		if p.Balance > minRemainingBalance {
			continue
		}
		delete(account.Portfolio, key)
	}
}
