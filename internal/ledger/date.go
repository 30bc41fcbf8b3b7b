package ledger

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the one wire format accepted for record dates, e.g. "05 January 2025".
// A date is midnight in the ledger's zone, the same zone months are bucketed in.
const DateLayout = "02 January 2006"

// parseLayout is DateLayout with an unpadded day, which also accepts the padded form.
const parseLayout = "2 January 2006"

// ParseDate parses s against DateLayout as midnight in loc, or UTC when loc
// is nil. A single-digit day is accepted; anything else, including trailing
// clock or zone text, is rejected.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Message: "date is empty"}
	}
	t, err := time.ParseInLocation(parseLayout, s, loc)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "date",
			Message: fmt.Sprintf("invalid date %q, expected format like %q", s, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC).Format(DateLayout)),
		}
	}
	return t, nil
}

// FormatDate renders t in DateLayout as seen from loc, or UTC when loc is nil.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
