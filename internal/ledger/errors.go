package ledger

import "fmt"

// ValidationError is a caller-correctable problem with request input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return e.Message
}

// MissingField builds the error reported when a required key is absent from a
// write payload, e.g. "Missing 'description' in expense data".
func MissingField(field string, kind Kind) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Missing '%s' in %s data", field, kind),
	}
}
