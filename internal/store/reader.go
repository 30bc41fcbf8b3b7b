package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/castlemilk/pledger/backend/internal/ledger"
)

// LedgerReader is the read side used by aggregation: it fetches one kind of
// record for a user within a window as kind-agnostic entries.
type LedgerReader struct {
	store Store
	now   func() time.Time
}

// NewLedgerReader wraps a Store as a LedgerReader.
func NewLedgerReader(s Store) *LedgerReader {
	return &LedgerReader{store: s, now: time.Now}
}

// WithClock overrides the clock used to resolve an open upper bound.
func (r *LedgerReader) WithClock(now func() time.Time) *LedgerReader {
	r.now = now
	return r
}

// Fetch returns the user's entries of the given kind inside window, newest
// first. An open upper bound resolves to now. A user with nothing in range,
// or with no ledger at all, yields an empty slice.
func (r *LedgerReader) Fetch(ctx context.Context, userID string, kind ledger.Kind, window ledger.Window) ([]ledger.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ledger.ValidationError{Field: "userId", Message: "userId is required"}
	}
	if err := window.Validate(); err != nil {
		return nil, &ledger.ValidationError{Field: "window", Message: err.Error()}
	}
	window = window.Resolve(r.now())
	if err := window.Validate(); err != nil {
		return nil, &ledger.ValidationError{Field: "window", Message: err.Error()}
	}

	switch kind {
	case ledger.KindIncome:
		incomes, err := r.store.ListIncomes(ctx, userID, window)
		if errors.Is(err, ErrUnknownUser) {
			return []ledger.Entry{}, nil
		}
		if err != nil {
			return nil, wrapErr("fetch incomes", userID, err)
		}
		entries := make([]ledger.Entry, 0, len(incomes))
		for _, i := range incomes {
			entries = append(entries, i.Entry())
		}
		return entries, nil
	case ledger.KindExpense:
		expenses, err := r.store.ListExpenses(ctx, userID, window)
		if errors.Is(err, ErrUnknownUser) {
			return []ledger.Entry{}, nil
		}
		if err != nil {
			return nil, wrapErr("fetch expenses", userID, err)
		}
		entries := make([]ledger.Entry, 0, len(expenses))
		for _, e := range expenses {
			entries = append(entries, e.Entry())
		}
		return entries, nil
	default:
		return nil, &ledger.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown record kind %q", kind)}
	}
}
