package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/castlemilk/pledger/backend/internal/extraction"
	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var (
	errMissingUserID      = &ledger.ValidationError{Field: "userId", Message: "Missing 'userId' query parameter"}
	errExtractionDisabled = errors.New("receipt extraction is not configured")
)

// statusFor maps a domain error to an HTTP status and the message shown to
// the caller.
func statusFor(err error) (int, string) {
	var (
		valErr    *ledger.ValidationError
		imgErr    *extraction.ImageError
		lookupErr *store.LookupError
		extErr    *extraction.ExtractionError
	)

	switch {
	case errors.Is(err, errExtractionDisabled):
		return http.StatusServiceUnavailable, errExtractionDisabled.Error()
	case errors.As(err, &valErr):
		return http.StatusBadRequest, valErr.Error()
	case errors.As(err, &imgErr):
		return http.StatusBadRequest, imgErr.Error()
	case errors.Is(err, store.ErrUnknownUser):
		return http.StatusNotFound, "user not found"
	case errors.As(err, &lookupErr):
		return http.StatusServiceUnavailable, "ledger is temporarily unavailable"
	case errors.As(err, &extErr):
		return extractionStatus(extErr)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return 499, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func extractionStatus(err *extraction.ExtractionError) (int, string) {
	switch err.Code {
	case extraction.ErrCapabilityTimeout:
		return http.StatusGatewayTimeout, err.Message
	default:
		return http.StatusBadGateway, err.Message
	}
}

// writeError renders err as {"error": "..."} and records it on the context for
// the request logger.
func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
