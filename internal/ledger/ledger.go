// Package ledger defines the income and expense records kept per user and the
// time windows used to select them.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes the two record collections of a user's ledger.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Income is a single income entry.
type Income struct {
	ID        string          `json:"id"`
	UserID    string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      time.Time       `json:"date"`
	Frequency string          `json:"frequency"`
	Name      string          `json:"name"`
}

// Expense is a single expense entry. Category is always one of the closed set.
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Name        string          `json:"name"`
}

// Entry is the kind-agnostic view of a record that aggregation works on.
type Entry struct {
	ID     string
	Kind   Kind
	Amount decimal.Decimal
	Date   time.Time
}

// Entry returns the aggregation view of the income.
func (i *Income) Entry() Entry {
	return Entry{ID: i.ID, Kind: KindIncome, Amount: i.Amount, Date: i.Date}
}

// Entry returns the aggregation view of the expense.
func (e *Expense) Entry() Entry {
	return Entry{ID: e.ID, Kind: KindExpense, Amount: e.Amount, Date: e.Date}
}

// AmountCents returns the amount rounded half away from zero to whole cents.
func AmountCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}
