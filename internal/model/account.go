package model

// Balance tracks the account's spot balance in the quote currency.
type Balance struct {
	Start     float64 `json:"start"`     // balance at process start
	Current   float64 `json:"current"`   // current total balance (available + deployed)
	Available float64 `json:"available"` // exchange-reported available balance
	Spendable float64 `json:"spendable"` // per-position allocation
}

// Account is the single trading account this process manages.
type Account struct {
	Name      string              `json:"name"`
	Balance   Balance             `json:"balance"`
	Earnings  float64             `json:"earnings"`
	Trades    int                 `json:"trades"`
	FeeSpend  float64             `json:"fee_spend"`
	Change    float64             `json:"change"` // 100*(Current-Start)/Start
	DenyList  []string            `json:"deny_list"`
	Portfolio map[string]*Position `json:"portfolio"`
}

// NewAccount creates an Account seeded with the given starting balance.
func NewAccount(name string, startBalance, spendable float64) *Account {
	return &Account{
		Name: name,
		Balance: Balance{
			Start:     startBalance,
			Current:   startBalance,
			Available: startBalance,
			Spendable: spendable,
		},
		Portfolio: make(map[string]*Position),
	}
}

// IsDenied reports whether instid is on the deny-list.
func (a *Account) IsDenied(instid string) bool {
	for _, d := range a.DenyList {
		if d == instid {
			return true
		}
	}
	return false
}

// Deny appends instid to the deny-list if not already present.
func (a *Account) Deny(instid string) {
	if !a.IsDenied(instid) {
		a.DenyList = append(a.DenyList, instid)
	}
}
