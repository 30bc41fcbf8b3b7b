package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/castlemilk/pledger/backend/internal/cache"
	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxMonthsBack bounds the monthly reports.
	MaxMonthsBack = 120

	defaultConcurrency = 4
)

// Reader fetches a user's entries of one kind inside a window.
type Reader interface {
	Fetch(ctx context.Context, userID string, kind ledger.Kind, window ledger.Window) ([]ledger.Entry, error)
}

// Engine aggregates a user's ledger through a Reader. Month totals may be
// memoized; failed lookups never are.
type Engine struct {
	reader      Reader
	months      *cache.LRUCache[decimal.Decimal]
	loc         *time.Location
	concurrency int
	log         zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMonthCache memoizes per-month totals in c.
func WithMonthCache(c *cache.LRUCache[decimal.Decimal]) Option {
	return func(e *Engine) { e.months = c }
}

// WithLocation sets the zone month boundaries are computed in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithConcurrency bounds how many months are fetched at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "analytics").Logger() }
}

// NewEngine creates an aggregation engine reading through r.
func NewEngine(r Reader, opts ...Option) *Engine {
	e := &Engine{
		reader:      r,
		loc:         time.UTC,
		concurrency: defaultConcurrency,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MonthlyBuckets returns exactly monthsBack buckets, most recent first, the
// first being the month containing ref. Any lookup failure fails the call.
func (e *Engine) MonthlyBuckets(ctx context.Context, userID string, monthsBack int, ref time.Time) ([]MonthlyBucket, error) {
	if monthsBack < 1 || monthsBack > MaxMonthsBack {
		return nil, &ledger.ValidationError{
			Field:   "monthsBack",
			Message: fmt.Sprintf("monthsBack must be between 1 and %d, got %d", MaxMonthsBack, monthsBack),
		}
	}

	ref = ref.In(e.loc)
	buckets := make([]MonthlyBucket, monthsBack)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for offset := 0; offset < monthsBack; offset++ {
		periodStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, e.loc).AddDate(0, -offset, 0)
		g.Go(func() error {
			year, month := periodStart.Year(), periodStart.Month()
			income, err := e.monthTotal(gctx, userID, ledger.KindIncome, year, month)
			if err != nil {
				return err
			}
			expense, err := e.monthTotal(gctx, userID, ledger.KindExpense, year, month)
			if err != nil {
				return err
			}
			buckets[offset] = newBucket(periodStart, income, expense)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Debug().Str("user_id", userID).Int("months", monthsBack).Msg("computed monthly buckets")
	return buckets, nil
}

// FinancialSummary totals every record dated at or before ref.
func (e *Engine) FinancialSummary(ctx context.Context, userID string, ref time.Time) (Summary, error) {
	window := ledger.Until(ref)

	var income, expense decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := e.reader.Fetch(gctx, userID, ledger.KindIncome, window)
		if err != nil {
			return err
		}
		income = SumInWindow(entries, window)
		return nil
	})
	g.Go(func() error {
		entries, err := e.reader.Fetch(gctx, userID, ledger.KindExpense, window)
		if err != nil {
			return err
		}
		expense = SumInWindow(entries, window)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Summary{
		TotalIncome:   income,
		TotalExpenses: expense,
		Savings:       income.Sub(expense),
	}, nil
}

// MonthlySavings reports income, expenses and savings per month, most recent first.
func (e *Engine) MonthlySavings(ctx context.Context, userID string, monthsBack int, ref time.Time) ([]MonthlySavings, error) {
	buckets, err := e.MonthlyBuckets(ctx, userID, monthsBack, ref)
	if err != nil {
		return nil, err
	}
	out := make([]MonthlySavings, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MonthlySavings{
			MonthKey: b.Key(),
			Income:   b.IncomeTotal,
			Expenses: b.ExpenseTotal,
			Savings:  b.Savings,
		})
	}
	return out, nil
}

// MonthlyIncome maps "YYYY-MM" to the month's total income.
func (e *Engine) MonthlyIncome(ctx context.Context, userID string, monthsBack int, ref time.Time) (map[string]decimal.Decimal, error) {
	buckets, err := e.MonthlyBuckets(ctx, userID, monthsBack, ref)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		out[b.Key()] = b.IncomeTotal
	}
	return out, nil
}

// Invalidate drops the memoized total of the month containing date.
func (e *Engine) Invalidate(userID string, kind ledger.Kind, date time.Time) {
	if e.months == nil {
		return
	}
	d := date.In(e.loc)
	e.months.Delete(monthCacheKey(userID, kind, d.Year(), d.Month()))
}

// InvalidateUser drops every memoized month of the user.
func (e *Engine) InvalidateUser(userID string) {
	if e.months == nil {
		return
	}
	e.months.DeletePrefix(userPrefix(userID))
}

func (e *Engine) monthTotal(ctx context.Context, userID string, kind ledger.Kind, year int, month time.Month) (decimal.Decimal, error) {
	key := monthCacheKey(userID, kind, year, month)
	var epoch uint64
	if e.months != nil {
		if total, ok := e.months.Get(key); ok {
			return total, nil
		}
		epoch = e.months.Epoch()
	}

	window := ledger.MonthWindow(year, month, e.loc)
	entries, err := e.reader.Fetch(ctx, userID, kind, window)
	if err != nil {
		return decimal.Zero, err
	}
	total := SumInWindow(entries, window)

	// A write invalidated during the fetch may not be in entries.
	if e.months != nil && !e.months.SetIfEpoch(key, total, epoch) {
		e.log.Debug().Str("month", ledger.MonthKey(year, month)).Msg("month total not cached, invalidated mid-read")
	}
	return total, nil
}

func monthCacheKey(userID string, kind ledger.Kind, year int, month time.Month) string {
	return userPrefix(userID) + string(kind) + "|" + ledger.MonthKey(year, month)
}

// userPrefix is length-prefixed so no user's keys share a prefix with another's.
func userPrefix(userID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + "|"
}
