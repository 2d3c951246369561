// Package ledger holds the balance update rules that keep a user's cash
// and online balances, monthly budget and category totals consistent
// with the expense and income records behind them.
//
// Every create, edit and delete is expressed as a Delta computed by Diff.
// Deltas are applied as relative adjustments, never as absolute values.
package ledger

import (
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
)

// Kind distinguishes spend records from inflow records.
type Kind int

const (
	KindExpense Kind = iota + 1
	KindIncome
)

// Entry is the part of an expense or income record the rules care about.
type Entry struct {
	Kind        Kind
	Amount      int64
	PaymentType models.PaymentType
	CategoryID  string
}

// ExpenseEntry builds the ledger view of an expense.
func ExpenseEntry(e *models.Expense) *Entry {
	return &Entry{Kind: KindExpense, Amount: e.Amount, PaymentType: e.PaymentType, CategoryID: e.CategoryID}
}

// IncomeEntry builds the ledger view of an income.
func IncomeEntry(i *models.Income) *Entry {
	return &Entry{Kind: KindIncome, Amount: i.Amount, PaymentType: i.PaymentType}
}

// Balances is a snapshot of a user's three counters.
type Balances struct {
	Cash   int64
	Online int64
	Budget int64
}

// BalancesOf snapshots u.
func BalancesOf(u *models.User) Balances {
	return Balances{Cash: u.CashBalance, Online: u.OnlineBalance, Budget: u.MonthlyBudget}
}

// Pool returns the balance selected by paymentType.
func (b Balances) Pool(paymentType models.PaymentType) int64 {
	if paymentType == models.PaymentTypeCash {
		return b.Cash
	}
	return b.Online
}

// Delta is the signed adjustment one event makes to a user's counters and
// to the totals of the categories it touches.
type Delta struct {
	Cash       int64
	Online     int64
	Budget     int64
	Categories map[string]int64
}

// IsZero reports whether applying d would change nothing.
func (d Delta) IsZero() bool {
	return d.Cash == 0 && d.Online == 0 && d.Budget == 0 && len(d.Categories) == 0
}

// Pool returns the adjustment to the balance selected by paymentType.
func (d Delta) Pool(paymentType models.PaymentType) int64 {
	if paymentType == models.PaymentTypeCash {
		return d.Cash
	}
	return d.Online
}

// Apply returns b adjusted by d.
func (d Delta) Apply(b Balances) Balances {
	return Balances{
		Cash:   b.Cash + d.Cash,
		Online: b.Online + d.Online,
		Budget: b.Budget + d.Budget,
	}
}

// Diff computes the delta that moves the ledger from before to after.
// A nil before is a create, a nil after is a delete, and both set is an
// edit, computed as reverting before and then applying after. This covers
// payment type and category reassignment without special cases.
func Diff(before, after *Entry) Delta {
	d := Delta{}
	if before != nil {
		d.add(before, -1)
	}
	if after != nil {
		d.add(after, 1)
	}
	for id, v := range d.Categories {
		if v == 0 {
			delete(d.Categories, id)
		}
	}
	if len(d.Categories) == 0 {
		d.Categories = nil
	}
	return d
}

func (d *Delta) add(e *Entry, sign int64) {
	amount := sign * e.Amount
	switch e.Kind {
	case KindExpense:
		d.addPool(e.PaymentType, -amount)
		d.Budget -= amount
		if e.CategoryID != "" {
			if d.Categories == nil {
				d.Categories = make(map[string]int64)
			}
			d.Categories[e.CategoryID] += amount
		}
	case KindIncome:
		// Budget tracks spend only.
		d.addPool(e.PaymentType, amount)
	}
}

func (d *Delta) addPool(paymentType models.PaymentType, amount int64) {
	if paymentType == models.PaymentTypeCash {
		d.Cash += amount
	} else {
		d.Online += amount
	}
}

// CheckFunds rejects d when it would take more out of a balance or the
// monthly budget than b currently holds. Only decreases are checked;
// increases are always allowed. Balance is checked before budget.
func CheckFunds(b Balances, d Delta) error {
	if d.Cash < 0 && -d.Cash > b.Cash {
		return apperrors.ErrInsufficientBalance
	}
	if d.Online < 0 && -d.Online > b.Online {
		return apperrors.ErrInsufficientBalance
	}
	if d.Budget < 0 && -d.Budget > b.Budget {
		return apperrors.ErrBudgetExceeded
	}
	return nil
}
