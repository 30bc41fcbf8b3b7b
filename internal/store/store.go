package store

import (
	"context"

	"github.com/castlemilk/pledger/backend/internal/ledger"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// Store defines the interface for all database operations used by the service.
// List operations return records ordered by date descending. A zero window
// bound is unbounded on that side.
type Store interface {
	// Expense operations
	CreateExpense(ctx context.Context, expense *ledger.Expense) error
	ListExpenses(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Expense, error)

	// Income operations
	CreateIncome(ctx context.Context, income *ledger.Income) error
	ListIncomes(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Income, error)
}

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)
