package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castlemilk/pledger/backend/internal/analytics"
	"github.com/castlemilk/pledger/backend/internal/cache"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// testNow is the reference instant used by handler tests.
var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	// Amounts go out as JSON numbers, as configured by cmd/server.
	decimal.MarshalJSONWithoutQuotes = true
}

// newTestRouter wires a FinanceService over st with a fixed clock and a month
// cache.
func newTestRouter(st store.Store, opts ...Option) *gin.Engine {
	now := func() time.Time { return testNow }
	engine := analytics.NewEngine(
		store.NewLedgerReader(st).WithClock(now),
		analytics.WithMonthCache(cache.NewLRUCache[decimal.Decimal](64, time.Hour)),
	)

	svc := NewFinanceService(st, engine, append([]Option{WithClock(now)}, opts...)...)
	r := gin.New()
	svc.Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func expenseBody(overrides map[string]any) map[string]any {
	body := map[string]any{
		"uid":         "user-123",
		"amount":      "12.50",
		"category":    "Groceries",
		"date":        "05 March 2025",
		"description": "weekly shop",
		"name":        "Market",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	return body
}

func incomeBody(overrides map[string]any) map[string]any {
	body := map[string]any{
		"uid":       "user-123",
		"amount":    "1000",
		"category":  "salary",
		"date":      "01 March 2025",
		"frequency": "monthly",
		"name":      "Acme",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	return body
}
