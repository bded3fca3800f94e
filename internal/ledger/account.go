package ledger

import "github.com/shopspring/decimal"

// Account holds the balances of one client.
//
// The zero value (apart from Client) is a valid, empty, unlocked account.
// All mutators return true when the change was applied and false when it was
// refused; a refused call leaves the account untouched. Negative amounts are
// always refused so that Available and Held can never go below zero.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// NewAccount returns an empty, unlocked account for client.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Deposit credits amount to the available balance.
// Refused on a locked account.
func (a *Account) Deposit(amount decimal.Decimal) bool {
	if a.Locked || amount.IsNegative() {
		return false
	}
	a.Available = a.Available.Add(amount)
	a.updateTotal()
	return true
}

// Withdraw debits amount from the available balance.
// Refused on a locked account or when available funds are insufficient.
func (a *Account) Withdraw(amount decimal.Decimal) bool {
	if a.Locked || amount.IsNegative() || a.Available.LessThan(amount) {
		return false
	}
	a.Available = a.Available.Sub(amount)
	a.updateTotal()
	return true
}

// Hold moves amount from available to held (dispute).
// Refused on a locked account or when available funds are insufficient.
func (a *Account) Hold(amount decimal.Decimal) bool {
	if a.Locked || amount.IsNegative() || a.Available.LessThan(amount) {
		return false
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	a.updateTotal()
	return true
}

// Release moves amount from held back to available (resolve).
// Refused on a locked account or when held funds are insufficient.
func (a *Account) Release(amount decimal.Decimal) bool {
	if a.Locked || amount.IsNegative() || a.Held.LessThan(amount) {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	a.updateTotal()
	return true
}

// Chargeback removes amount from held and locks the account for good.
// Refused on an already locked account or when held funds are insufficient.
func (a *Account) Chargeback(amount decimal.Decimal) bool {
	if a.Locked || amount.IsNegative() || a.Held.LessThan(amount) {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.updateTotal()
	a.Locked = true
	return true
}

// Balanced reports whether Total == Available + Held.
func (a *Account) Balanced() bool {
	return a.Total.Equal(a.Available.Add(a.Held))
}

func (a *Account) updateTotal() {
	a.Total = a.Available.Add(a.Held)
}
