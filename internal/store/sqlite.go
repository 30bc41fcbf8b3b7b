package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database. Dates are stored as
// unix microseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, userID, stmt string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		userID, time.Now().UTC().UnixMicro()); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *ledger.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	err := s.insert(ctx, expense.UserID,
		`INSERT INTO expenses (id, user_id, amount, amount_cents, category, date_us, description, name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, expense.Amount.String(), ledger.AmountCents(expense.Amount),
		string(expense.Category), expense.Date.UTC().UnixMicro(), expense.Description, expense.Name)
	return wrapErr("create expense", expense.UserID, err)
}

func (s *SQLiteStore) CreateIncome(ctx context.Context, income *ledger.Income) error {
	if income.ID == "" {
		income.ID = uuid.New().String()
	}
	err := s.insert(ctx, income.UserID,
		`INSERT INTO incomes (id, user_id, amount, amount_cents, category, date_us, frequency, name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		income.ID, income.UserID, income.Amount.String(), ledger.AmountCents(income.Amount),
		income.Category, income.Date.UTC().UnixMicro(), income.Frequency, income.Name)
	return wrapErr("create income", income.UserID, err)
}

// selectWindow runs a date-descending select over table for the user and window.
func (s *SQLiteStore) selectWindow(ctx context.Context, op, userID, columns, table string, window ledger.Window) (*sql.Rows, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, unknownUser(op, userID)
	}
	if err != nil {
		return nil, wrapErr(op, userID, err)
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !window.Start.IsZero() {
		where = append(where, "date_us >= ?")
		args = append(args, window.Start.UTC().UnixMicro())
	}
	if !window.End.IsZero() {
		where = append(where, "date_us <= ?")
		args = append(args, window.End.UTC().UnixMicro())
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY date_us DESC, id ASC",
		columns, table, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapErr(op, userID, err)
	}
	return rows, nil
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Expense, error) {
	const op = "list expenses"
	rows, err := s.selectWindow(ctx, op, userID, "id, amount, category, date_us, description, name", "expenses", window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*ledger.Expense, 0)
	for rows.Next() {
		var (
			e        ledger.Expense
			amount   string
			category string
			dateUS   int64
		)
		if err := rows.Scan(&e.ID, &amount, &category, &dateUS, &e.Description, &e.Name); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("scan expense: %w", err))
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("expense %s has invalid amount %q: %w", e.ID, amount, err))
		}
		e.UserID = userID
		e.Category = ledger.ParseCategory(category)
		e.Date = time.UnixMicro(dateUS).UTC()
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, userID, err)
	}
	return expenses, nil
}

func (s *SQLiteStore) ListIncomes(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Income, error) {
	const op = "list incomes"
	rows, err := s.selectWindow(ctx, op, userID, "id, amount, category, date_us, frequency, name", "incomes", window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]*ledger.Income, 0)
	for rows.Next() {
		var (
			i      ledger.Income
			amount string
			dateUS int64
		)
		if err := rows.Scan(&i.ID, &amount, &i.Category, &dateUS, &i.Frequency, &i.Name); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("scan income: %w", err))
		}
		if i.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("income %s has invalid amount %q: %w", i.ID, amount, err))
		}
		i.UserID = userID
		i.Date = time.UnixMicro(dateUS).UTC()
		incomes = append(incomes, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, userID, err)
	}
	return incomes, nil
}
