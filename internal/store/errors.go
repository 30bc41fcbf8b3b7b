package store

import (
	"errors"
	"fmt"
)

// ErrUnknownUser is returned when a user has never written a ledger record.
var ErrUnknownUser = errors.New("unknown user")

// LookupError reports that records could not be read or written.
type LookupError struct {
	Op     string
	UserID string
	Err    error
}

func (e *LookupError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// wrapErr wraps a backend error as a LookupError, leaving nil and existing
// LookupErrors untouched.
func wrapErr(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	var le *LookupError
	if errors.As(err, &le) {
		return err
	}
	return &LookupError{Op: op, UserID: userID, Err: err}
}

func unknownUser(op, userID string) error {
	return &LookupError{Op: op, UserID: userID, Err: ErrUnknownUser}
}
