// Package analytics computes rolling totals, monthly buckets and savings from
// a user's ledger.
package analytics

import (
	"time"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// MonthlyBucket holds one calendar month's totals for a user.
type MonthlyBucket struct {
	Year         int
	Month        time.Month
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	Savings      decimal.Decimal
}

// Key formats the bucket's month as "YYYY-MM".
func (b MonthlyBucket) Key() string {
	return ledger.MonthKey(b.Year, b.Month)
}

// Summary is the all-time position of a user up to a reference instant.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Savings       decimal.Decimal `json:"savings"`
}

// MonthlySavings is one row of the savings report.
type MonthlySavings struct {
	MonthKey string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

// SumInWindow adds the amounts of entries whose date lies in window, both
// bounds inclusive. No match sums to zero.
func SumInWindow(entries []ledger.Entry, window ledger.Window) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if window.Contains(e.Date) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func newBucket(start time.Time, income, expense decimal.Decimal) MonthlyBucket {
	return MonthlyBucket{
		Year:         start.Year(),
		Month:        start.Month(),
		IncomeTotal:  income,
		ExpenseTotal: expense,
		Savings:      income.Sub(expense),
	}
}
