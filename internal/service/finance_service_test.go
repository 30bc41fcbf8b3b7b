package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHealth(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCreateExpense_MissingDescription(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(map[string]any{"description": nil}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Missing 'description' in expense data"}`, w.Body.String())
}

func TestCreateExpense_ReportsFirstMissingField(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	tests := []struct {
		name    string
		drop    []string
		wantMsg string
	}{
		{"uid first", []string{"uid", "amount"}, "Missing 'uid' in expense data"},
		{"amount before category", []string{"amount", "category"}, "Missing 'amount' in expense data"},
		{"date before name", []string{"date", "name"}, "Missing 'date' in expense data"},
		{"name", []string{"name"}, "Missing 'name' in expense data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := map[string]any{}
			for _, f := range tt.drop {
				overrides[f] = nil
			}
			w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(overrides))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMsg, decodeBody(t, w)["error"])
		})
	}
}

func TestCreateIncome_MissingFrequency(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/income", incomeBody(map[string]any{"frequency": nil}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Missing 'frequency' in income data"}`, w.Body.String())
}

func TestCreateExpense_InvalidInput(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"negative amount", map[string]any{"amount": "-3"}},
		{"non numeric amount", map[string]any{"amount": "twelve"}},
		{"iso date", map[string]any{"date": "2025-03-05"}},
		{"date with time", map[string]any{"date": "05 March 2025 10:00"}},
		{"numeric name", map[string]any{"name": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(tt.overrides))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}

	t.Run("not an object", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/expense", []string{"a"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateAndListExpenses(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(map[string]any{"category": "Travel", "amount": 7.25}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeBody(t, w)["id"]
	assert.NotEmpty(t, id)

	w = doJSON(t, r, http.MethodPost, "/expense", expenseBody(map[string]any{"date": "1 March 2025"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/expenses?userId=user-123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	expenses := decodeBody(t, w)["expenses"].([]any)
	require.Len(t, expenses, 2)

	newest := expenses[0].(map[string]any)
	assert.Equal(t, id, newest["id"])
	assert.Equal(t, "Other", newest["category"])
	assert.Equal(t, 7.25, newest["amount"])
	assert.Equal(t, "05 March 2025", newest["date"])
	assert.Equal(t, "01 March 2025", expenses[1].(map[string]any)["date"])
}

func TestListExpenses_Window(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	for _, date := range []string{"14 March 2025", "01 February 2025"} {
		w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(map[string]any{"date": date}))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/expenses?userId=user-123&window=7d", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["expenses"], 1)

	w = doJSON(t, r, http.MethodGet, "/expenses?userId=user-123&window=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["expenses"], 2)

	w = doJSON(t, r, http.MethodGet, "/expenses?userId=user-123&window=1y", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndListIncomes(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/income", incomeBody(nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/incomes?userId=user-123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	incomes := decodeBody(t, w)["incomes"].([]any)
	require.Len(t, incomes, 1)
	income := incomes[0].(map[string]any)
	assert.Equal(t, "Salary", income["category"])
	assert.Equal(t, "monthly", income["frequency"])
	assert.Equal(t, 1000.0, income["amount"])
}

func TestList_Errors(t *testing.T) {
	t.Run("missing userId", func(t *testing.T) {
		r := newTestRouter(store.NewMemoryStore())
		w := doJSON(t, r, http.MethodGet, "/expenses", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "userId")
	})

	t.Run("store unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		mockStore.EXPECT().
			ListExpenses(gomock.Any(), "user-123", gomock.Any()).
			Return(nil, &store.LookupError{Op: "list expenses", UserID: "user-123", Err: errors.New("connection refused")})

		r := newTestRouter(mockStore)
		w := doJSON(t, r, http.MethodGet, "/expenses?userId=user-123", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestCreateExpense_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	mockStore.EXPECT().
		CreateExpense(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *ledger.Expense) error {
			assert.Equal(t, ledger.CategoryGroceries, e.Category)
			assert.Equal(t, "user-123", e.UserID)
			return &store.LookupError{Op: "create expense", UserID: e.UserID, Err: errors.New("deadline")}
		})

	r := newTestRouter(mockStore)
	w := doJSON(t, r, http.MethodPost, "/expense", expenseBody(nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeBody(t, w), "error")
}
