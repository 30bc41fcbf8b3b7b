package extraction

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Backoff spaces out repeat capability calls. The zero value is replaced by
// defaultBackoff.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Factor float64
	// Jitter randomizes each pause by up to this fraction either way.
	Jitter float64
}

var defaultBackoff = Backoff{
	Base:   time.Second,
	Cap:    10 * time.Second,
	Factor: 2,
	Jitter: 0.2,
}

func (b Backoff) orDefault() Backoff {
	if b == (Backoff{}) {
		return defaultBackoff
	}
	return b
}

// pause is the wait before retry n, counting from zero.
func (b Backoff) pause(n int) time.Duration {
	d := float64(b.Base)
	for i := 0; i < n && (b.Cap <= 0 || d < float64(b.Cap)); i++ {
		d *= b.Factor
	}
	if b.Cap > 0 && d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	if b.Jitter > 0 {
		d += d * b.Jitter * (2*rand.Float64() - 1)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// retryable reports whether err is an ExtractionError marked transient.
func retryable(err error) bool {
	var extErr *ExtractionError
	return errors.As(err, &extErr) && extErr.Retryable
}

// callWithRetries runs call once, then up to retries more times while it
// fails with a retryable ExtractionError. Caller cancellation ends the wait.
func callWithRetries[T any](ctx context.Context, retries int, b Backoff, call func(context.Context) (T, error)) (T, error) {
	for n := 0; ; n++ {
		out, err := call(ctx)
		if err == nil || n >= retries || !retryable(err) {
			return out, err
		}

		timer := time.NewTimer(b.pause(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
