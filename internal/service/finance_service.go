// Package service exposes the ledger, reports and receipt extraction over
// HTTP.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/castlemilk/pledger/backend/internal/analytics"
	"github.com/castlemilk/pledger/backend/internal/blob"
	"github.com/castlemilk/pledger/backend/internal/extraction"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultMaxUploadBytes caps a receipt upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// Extractor reads a candidate expense from a normalized image.
type Extractor interface {
	IsEnabled() bool
	ExtractExpense(ctx context.Context, img extraction.EncodedImage) (*extraction.Candidate, error)
}

// ImageNormalizer prepares uploaded images for extraction.
type ImageNormalizer interface {
	Normalize(raw []byte) (extraction.EncodedImage, error)
}

type FinanceService struct {
	store      store.Store
	engine     *analytics.Engine
	normalizer ImageNormalizer
	extractor  Extractor
	stager     blob.Stager
	now        func() time.Time
	loc        *time.Location
	maxUpload  int64
	log        zerolog.Logger
}

// Option configures a FinanceService.
type Option func(*FinanceService)

// WithExtraction enables the receipt upload endpoint.
func WithExtraction(n ImageNormalizer, x Extractor) Option {
	return func(s *FinanceService) {
		s.normalizer = n
		s.extractor = x
	}
}

// WithStager stages uploads before extraction.
func WithStager(st blob.Stager) Option {
	return func(s *FinanceService) { s.stager = st }
}

// WithClock overrides the reference time used by reads and reports.
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

// WithLocation sets the zone record dates are read and written in. It should
// match the zone the analytics engine buckets months in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *FinanceService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMaxUploadBytes limits the size of receipt uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *FinanceService) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *FinanceService) { s.log = log }
}

func NewFinanceService(st store.Store, engine *analytics.Engine, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:     st,
		engine:    engine,
		now:       time.Now,
		loc:       time.UTC,
		maxUpload: DefaultMaxUploadBytes,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts all routes on r.
func (s *FinanceService) Register(r gin.IRoutes) {
	r.GET("/health", s.health)

	r.POST("/income", s.createIncome)
	r.POST("/expense", s.createExpense)
	r.GET("/incomes", s.listIncomes)
	r.GET("/expenses", s.listExpenses)

	r.GET("/summary", s.summary)
	r.GET("/monthly-income", s.monthlyIncome)
	r.GET("/monthly-savings", s.monthlySavings)

	r.POST("/upload", s.uploadReceipt)
}

func (s *FinanceService) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// requireUserID reads the userId query parameter shared by the read routes.
func requireUserID(c *gin.Context) (string, bool) {
	userID := c.Query("userId")
	if userID == "" {
		writeError(c, errMissingUserID)
		return "", false
	}
	return userID, true
}
