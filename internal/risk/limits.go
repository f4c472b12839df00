// Package risk validates prospective buys against account-level exposure
// limits before the scheduler lets an order reach the exchange.
package risk

import "spotscheduler/internal/model"

// Limits defines configurable risk management thresholds for one account.
type Limits struct {
	MaxOpenPositions int     // max number of concurrent positions
	MaxDailyLoss     float64 // account.Change (percent of start) below which buys are blocked
	MaxSpendable     float64 // max per-position allocation
}

// DefaultLimits returns conservative default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxOpenPositions: 5,
		MaxDailyLoss:     -100,
		MaxSpendable:     500,
	}
}

// Manager validates prospective buys against Limits.
type Manager struct {
	limits Limits
}

// NewManager creates a Manager with the given limits.
func NewManager(limits Limits) *Manager {
	return &Manager{limits: limits}
}

// CanBuy reports whether account may open one more position of size
// spendable. Returns false with a reason if any limit would be violated.
func (m *Manager) CanBuy(account *model.Account, spendable float64) (bool, string) {
	if len(account.Portfolio) >= m.limits.MaxOpenPositions {
		return false, "max open positions reached"
	}
	if spendable > m.limits.MaxSpendable {
		return false, "spendable exceeds max position size"
	}
	if account.Change < m.limits.MaxDailyLoss {
		return false, "max daily loss reached"
	}
	return true, ""
}
