package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var (
	incomeFields  = []string{"uid", "amount", "category", "date", "frequency", "name"}
	expenseFields = []string{"uid", "amount", "category", "date", "description", "name"}
)

// payload is a write body before field validation. Keys are checked in the
// order the route documents them so the first missing one is reported.
type payload map[string]json.RawMessage

func bindPayload(c *gin.Context, kind ledger.Kind, required []string) (payload, error) {
	var p payload
	if err := json.NewDecoder(c.Request.Body).Decode(&p); err != nil {
		return nil, &ledger.ValidationError{Field: "body", Message: "Request body must be a JSON object"}
	}
	for _, field := range required {
		raw, ok := p[field]
		if !ok || string(raw) == "null" {
			return nil, ledger.MissingField(field, kind)
		}
	}
	return p, nil
}

func (p payload) str(field string) (string, error) {
	var s string
	if err := json.Unmarshal(p[field], &s); err != nil {
		return "", &ledger.ValidationError{Field: field, Message: "'" + field + "' must be a string"}
	}
	return strings.TrimSpace(s), nil
}

// amount accepts a JSON number or a numeric string.
func (p payload) amount() (decimal.Decimal, error) {
	raw := strings.Trim(string(p["amount"]), `"`)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Field: "amount", Message: "'amount' must be a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &ledger.ValidationError{Field: "amount", Message: "'amount' must not be negative"}
	}
	return d, nil
}

func (p payload) date(loc *time.Location) (time.Time, error) {
	s, err := p.str("date")
	if err != nil {
		return time.Time{}, err
	}
	return ledger.ParseDate(s, loc)
}

// common reads the fields shared by both record kinds.
func (p payload) common(loc *time.Location) (uid string, amount decimal.Decimal, category string, date time.Time, name string, err error) {
	if uid, err = p.str("uid"); err != nil {
		return
	}
	if amount, err = p.amount(); err != nil {
		return
	}
	if category, err = p.str("category"); err != nil {
		return
	}
	if date, err = p.date(loc); err != nil {
		return
	}
	name, err = p.str("name")
	return
}

func (s *FinanceService) createExpense(c *gin.Context) {
	p, err := bindPayload(c, ledger.KindExpense, expenseFields)
	if err != nil {
		writeError(c, err)
		return
	}
	uid, amount, category, date, name, err := p.common(s.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	description, err := p.str("description")
	if err != nil {
		writeError(c, err)
		return
	}
	if uid == "" {
		writeError(c, ledger.MissingField("uid", ledger.KindExpense))
		return
	}
	expense := &ledger.Expense{
		UserID:      uid,
		Amount:      amount,
		Category:    ledger.ParseCategory(category),
		Date:        date,
		Description: description,
		Name:        name,
	}
	if err := s.store.CreateExpense(c.Request.Context(), expense); err != nil {
		writeError(c, err)
		return
	}
	s.engine.Invalidate(uid, ledger.KindExpense, expense.Date)

	c.JSON(http.StatusCreated, gin.H{"id": expense.ID})
}

func (s *FinanceService) createIncome(c *gin.Context) {
	p, err := bindPayload(c, ledger.KindIncome, incomeFields)
	if err != nil {
		writeError(c, err)
		return
	}
	uid, amount, category, date, name, err := p.common(s.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	frequency, err := p.str("frequency")
	if err != nil {
		writeError(c, err)
		return
	}
	if uid == "" {
		writeError(c, ledger.MissingField("uid", ledger.KindIncome))
		return
	}
	income := &ledger.Income{
		UserID:    uid,
		Amount:    amount,
		Category:  ledger.CanonicalLabel(category),
		Date:      date,
		Frequency: frequency,
		Name:      name,
	}
	if err := s.store.CreateIncome(c.Request.Context(), income); err != nil {
		writeError(c, err)
		return
	}
	s.engine.Invalidate(uid, ledger.KindIncome, income.Date)

	c.JSON(http.StatusCreated, gin.H{"id": income.ID})
}

// recordView is the list representation of a record, with the date in the
// same format writes accept.
type recordView struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	Frequency   string          `json:"frequency,omitempty"`
	Name        string          `json:"name"`
}

func (s *FinanceService) listWindow(c *gin.Context) (string, ledger.Window, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return "", ledger.Window{}, false
	}
	window, err := ledger.RecentWindow(c.Query("window"), s.now())
	if err != nil {
		writeError(c, err)
		return "", ledger.Window{}, false
	}
	return userID, window, true
}

func (s *FinanceService) listExpenses(c *gin.Context) {
	userID, window, ok := s.listWindow(c)
	if !ok {
		return
	}
	expenses, err := s.store.ListExpenses(c.Request.Context(), userID, window)
	if err != nil && !errors.Is(err, store.ErrUnknownUser) {
		writeError(c, err)
		return
	}

	views := make([]recordView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, recordView{
			ID:          e.ID,
			Amount:      e.Amount,
			Category:    string(e.Category),
			Date:        ledger.FormatDate(e.Date, s.loc),
			Description: e.Description,
			Name:        e.Name,
		})
	}
	c.JSON(http.StatusOK, gin.H{"expenses": views})
}

func (s *FinanceService) listIncomes(c *gin.Context) {
	userID, window, ok := s.listWindow(c)
	if !ok {
		return
	}
	incomes, err := s.store.ListIncomes(c.Request.Context(), userID, window)
	if err != nil && !errors.Is(err, store.ErrUnknownUser) {
		writeError(c, err)
		return
	}

	views := make([]recordView, 0, len(incomes))
	for _, i := range incomes {
		views = append(views, recordView{
			ID:        i.ID,
			Amount:    i.Amount,
			Category:  i.Category,
			Date:      ledger.FormatDate(i.Date, s.loc),
			Frequency: i.Frequency,
			Name:      i.Name,
		})
	}
	c.JSON(http.StatusOK, gin.H{"incomes": views})
}
