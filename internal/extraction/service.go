// Package extraction turns photographed bills into candidate expense records
// using a vision-capable model.
package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single capability call.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the extraction service.
type Config struct {
	Timeout time.Duration
	// Retries is how many extra calls a transient failure earns. Zero makes
	// a single call.
	Retries int
	Backoff Backoff
}

// ExtractionService builds the receipt request, calls the capability and
// validates its reply. It keeps no state between calls and never persists.
type ExtractionService struct {
	capability Capability
	cfg        Config
	log        zerolog.Logger
}

// NewExtractionService creates a new extraction service. A nil capability
// yields a service that reports itself disabled.
func NewExtractionService(capability Capability, cfg Config, log zerolog.Logger) *ExtractionService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	cfg.Backoff = cfg.Backoff.orDefault()
	return &ExtractionService{
		capability: capability,
		cfg:        cfg,
		log:        log.With().Str("component", "extraction").Logger(),
	}
}

// IsEnabled reports whether a capability is configured.
func (s *ExtractionService) IsEnabled() bool {
	return s.capability != nil
}

// ExtractExpense reads a candidate expense from a normalized receipt image.
func (s *ExtractionService) ExtractExpense(ctx context.Context, img EncodedImage) (*Candidate, error) {
	if s.capability == nil {
		return nil, &ExtractionError{Code: ErrCapabilityUnavailable, Message: "extraction is not configured"}
	}

	prompt := ReceiptPrompt()
	start := time.Now()
	candidate, err := callWithRetries(ctx, s.cfg.Retries, s.cfg.Backoff, func(ctx context.Context) (*Candidate, error) {
		return s.extractOnce(ctx, Request{Prompt: prompt, Image: img})
	})
	if err != nil {
		s.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("receipt extraction failed")
		return nil, err
	}

	s.log.Info().
		Dur("elapsed", time.Since(start)).
		Str("category", string(candidate.Category)).
		Msg("receipt extracted")
	return candidate, nil
}

func (s *ExtractionService) extractOnce(ctx context.Context, req Request) (*Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	text, err := s.capability.Extract(callCtx, req)
	if err != nil {
		return nil, s.classify(ctx, callCtx, err)
	}

	candidate, err := parseCandidate(text)
	if err != nil {
		s.log.Debug().Err(err).Str("reply", truncate(text, 200)).Msg("rejected model reply")
		return nil, err
	}
	return candidate, nil
}

// classify maps a capability failure onto an ExtractionError. A deadline hit
// by the per-call timeout is a capability timeout; cancellation of the
// caller's own context is passed through.
func (s *ExtractionService) classify(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &ExtractionError{Code: ErrCapabilityTimeout, Message: "capability timed out after " + s.cfg.Timeout.String(), Retryable: true, Cause: err}
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}
	var imgErr *ImageError
	if errors.As(err, &imgErr) {
		return err
	}
	return &ExtractionError{Code: ErrCapabilityUnavailable, Message: "capability call failed", Retryable: true, Cause: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
