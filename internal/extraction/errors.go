package extraction

import "fmt"

// ExtractionErrorCode represents specific extraction error types.
type ExtractionErrorCode string

const (
	ErrMalformedResponse     ExtractionErrorCode = "MALFORMED_RESPONSE"
	ErrIncompleteResponse    ExtractionErrorCode = "INCOMPLETE_RESPONSE"
	ErrInvalidAmount         ExtractionErrorCode = "INVALID_AMOUNT"
	ErrCapabilityTimeout     ExtractionErrorCode = "CAPABILITY_TIMEOUT"
	ErrCapabilityUnavailable ExtractionErrorCode = "CAPABILITY_UNAVAILABLE"
	ErrRateLimited           ExtractionErrorCode = "RATE_LIMITED"
)

// ExtractionError is a structured error for extraction failures. No partial
// record accompanies it.
type ExtractionError struct {
	Code      ExtractionErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *ExtractionError) IsRetryable() bool {
	return e.Retryable
}

// ImageError reports an upload that could not be decoded or re-encoded.
type ImageError struct {
	Reason string
	Cause  error
}

func (e *ImageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image processing failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("image processing failed: %s", e.Reason)
}

func (e *ImageError) Unwrap() error {
	return e.Cause
}
