package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection    = "users"
	expensesCollection = "expenses"
	incomesCollection  = "incomes"
)

// FirestoreStore implements the Store interface using Firestore. Records live
// in the expenses and incomes subcollections of users/{uid}.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
	}
}

type expenseDoc struct {
	Amount      string    `firestore:"amount"`
	AmountCents int64     `firestore:"amount_cents"`
	Category    string    `firestore:"category"`
	Date        time.Time `firestore:"date"`
	Description string    `firestore:"description"`
	Name        string    `firestore:"name"`
}

type incomeDoc struct {
	Amount      string    `firestore:"amount"`
	AmountCents int64     `firestore:"amount_cents"`
	Category    string    `firestore:"category"`
	Date        time.Time `firestore:"date"`
	Frequency   string    `firestore:"frequency"`
	Name        string    `firestore:"name"`
}

func (s *FirestoreStore) userRef(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

// put writes a record document and marks the owning user document in one transaction.
func (s *FirestoreStore) put(ctx context.Context, userID, collection, id string, data interface{}) error {
	userRef := s.userRef(userID)
	docRef := userRef.Collection(collection).Doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(userRef, map[string]interface{}{"updated_at": firestore.ServerTimestamp}, firestore.MergeAll); err != nil {
			return err
		}
		return tx.Set(docRef, data)
	})
}

// query builds the windowed, date-descending query over a subcollection after
// confirming the user document exists.
func (s *FirestoreStore) query(ctx context.Context, op, userID, collection string, window ledger.Window) (*firestore.DocumentIterator, error) {
	userRef := s.userRef(userID)
	if _, err := userRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, unknownUser(op, userID)
		}
		return nil, wrapErr(op, userID, err)
	}

	query := userRef.Collection(collection).Query
	if !window.Start.IsZero() {
		query = query.Where("date", ">=", window.Start)
	}
	if !window.End.IsZero() {
		query = query.Where("date", "<=", window.End)
	}
	query = query.OrderBy("date", firestore.Desc)
	return query.Documents(ctx), nil
}

// CreateExpense creates a new expense in Firestore
func (s *FirestoreStore) CreateExpense(ctx context.Context, expense *ledger.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	doc := expenseDoc{
		Amount:      expense.Amount.String(),
		AmountCents: ledger.AmountCents(expense.Amount),
		Category:    string(expense.Category),
		Date:        expense.Date,
		Description: expense.Description,
		Name:        expense.Name,
	}
	return wrapErr("create expense", expense.UserID, s.put(ctx, expense.UserID, expensesCollection, expense.ID, doc))
}

// ListExpenses lists a user's expenses within the window, newest first
func (s *FirestoreStore) ListExpenses(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Expense, error) {
	const op = "list expenses"
	iter, err := s.query(ctx, op, userID, expensesCollection, window)
	if err != nil {
		return nil, err
	}
	defer iter.Stop()

	expenses := make([]*ledger.Expense, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr(op, userID, err)
		}
		var doc expenseDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("failed to parse expense %s: %w", snap.Ref.ID, err))
		}
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("expense %s has invalid amount %q: %w", snap.Ref.ID, doc.Amount, err))
		}
		expenses = append(expenses, &ledger.Expense{
			ID:          snap.Ref.ID,
			UserID:      userID,
			Amount:      amount,
			Category:    ledger.ParseCategory(doc.Category),
			Date:        doc.Date.UTC(),
			Description: doc.Description,
			Name:        doc.Name,
		})
	}
	return expenses, nil
}

// CreateIncome creates a new income in Firestore
func (s *FirestoreStore) CreateIncome(ctx context.Context, income *ledger.Income) error {
	if income.ID == "" {
		income.ID = uuid.New().String()
	}
	doc := incomeDoc{
		Amount:      income.Amount.String(),
		AmountCents: ledger.AmountCents(income.Amount),
		Category:    income.Category,
		Date:        income.Date,
		Frequency:   income.Frequency,
		Name:        income.Name,
	}
	return wrapErr("create income", income.UserID, s.put(ctx, income.UserID, incomesCollection, income.ID, doc))
}

// ListIncomes lists a user's incomes within the window, newest first
func (s *FirestoreStore) ListIncomes(ctx context.Context, userID string, window ledger.Window) ([]*ledger.Income, error) {
	const op = "list incomes"
	iter, err := s.query(ctx, op, userID, incomesCollection, window)
	if err != nil {
		return nil, err
	}
	defer iter.Stop()

	incomes := make([]*ledger.Income, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr(op, userID, err)
		}
		var doc incomeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("failed to parse income %s: %w", snap.Ref.ID, err))
		}
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			return nil, wrapErr(op, userID, fmt.Errorf("income %s has invalid amount %q: %w", snap.Ref.ID, doc.Amount, err))
		}
		incomes = append(incomes, &ledger.Income{
			ID:        snap.Ref.ID,
			UserID:    userID,
			Amount:    amount,
			Category:  doc.Category,
			Date:      doc.Date.UTC(),
			Frequency: doc.Frequency,
			Name:      doc.Name,
		})
	}
	return incomes, nil
}
