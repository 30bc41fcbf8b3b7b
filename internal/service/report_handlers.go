package service

import (
	"net/http"
	"strconv"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DefaultMonthsBack is used when a monthly report omits monthsBack.
const DefaultMonthsBack = 6

func monthsBack(c *gin.Context) (int, error) {
	raw := c.Query("monthsBack")
	if raw == "" {
		return DefaultMonthsBack, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ledger.ValidationError{Field: "monthsBack", Message: "'monthsBack' must be an integer"}
	}
	return n, nil
}

func (s *FinanceService) summary(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sum, err := s.engine.FinancialSummary(c.Request.Context(), userID, s.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *FinanceService) monthlyIncome(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	n, err := monthsBack(c)
	if err != nil {
		writeError(c, err)
		return
	}
	totals, err := s.engine.MonthlyIncome(c.Request.Context(), userID, n, s.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

type savingsView struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

func (s *FinanceService) monthlySavings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	n, err := monthsBack(c)
	if err != nil {
		writeError(c, err)
		return
	}
	rows, err := s.engine.MonthlySavings(c.Request.Context(), userID, n, s.now())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make(map[string]savingsView, len(rows))
	for _, r := range rows {
		out[r.MonthKey] = savingsView{Income: r.Income, Expenses: r.Expenses, Savings: r.Savings}
	}
	c.JSON(http.StatusOK, out)
}
