package store

import (
	"context"
	"sort"
	"sync"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/google/uuid"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	expenses map[string]*ledger.Expense
	incomes  map[string]*ledger.Income
	users    map[string]struct{}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expenses: make(map[string]*ledger.Expense),
		incomes:  make(map[string]*ledger.Income),
		users:    make(map[string]struct{}),
	}
}

// Expense operations

func (m *MemoryStore) CreateExpense(ctx context.Context, expense *ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	stored := *expense
	m.expenses[expense.ID] = &stored
	m.users[expense.UserID] = struct{}{}
	return nil
}

func (m *MemoryStore) ListExpenses(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.users[userID]; !ok {
		return nil, unknownUser("list expenses", userID)
	}

	result := make([]*ledger.Expense, 0)
	for _, expense := range m.expenses {
		if expense.UserID != userID || !window.Contains(expense.Date) {
			continue
		}
		e := *expense
		result = append(result, &e)
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].Date.UnixNano(), result[j].Date.UnixNano(), result[i].ID, result[j].ID)
	})
	return result, nil
}

// Income operations

func (m *MemoryStore) CreateIncome(ctx context.Context, income *ledger.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if income.ID == "" {
		income.ID = uuid.New().String()
	}
	stored := *income
	m.incomes[income.ID] = &stored
	m.users[income.UserID] = struct{}{}
	return nil
}

func (m *MemoryStore) ListIncomes(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.users[userID]; !ok {
		return nil, unknownUser("list incomes", userID)
	}

	result := make([]*ledger.Income, 0)
	for _, income := range m.incomes {
		if income.UserID != userID || !window.Contains(income.Date) {
			continue
		}
		i := *income
		result = append(result, &i)
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].Date.UnixNano(), result[j].Date.UnixNano(), result[i].ID, result[j].ID)
	})
	return result, nil
}

// newerFirst orders by date descending, then by id for a stable listing.
func newerFirst(a, b int64, idA, idB string) bool {
	if a != b {
		return a > b
	}
	return idA < idB
}
