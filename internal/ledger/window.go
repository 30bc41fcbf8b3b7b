package ledger

import (
	"fmt"
	"time"
)

// Window is an inclusive time range. A zero Start means "since epoch" and a
// zero End means "up to now".
type Window struct {
	Start time.Time
	End   time.Time
}

// Since returns the window [start, now].
func Since(start time.Time) Window {
	return Window{Start: start}
}

// Until returns the window [epoch, end].
func Until(end time.Time) Window {
	return Window{End: end}
}

// All returns the unbounded window.
func All() Window {
	return Window{}
}

// Resolve fills an absent upper bound with now.
func (w Window) Resolve(now time.Time) Window {
	if w.End.IsZero() {
		w.End = now
	}
	return w
}

// Validate checks start <= end when both bounds are present.
func (w Window) Validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && w.Start.After(w.End) {
		return fmt.Errorf("window start %s is after end %s", w.Start.Format(time.RFC3339Nano), w.End.Format(time.RFC3339Nano))
	}
	return nil
}

// Contains reports whether t falls inside the window, both bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// MonthWindow returns [first-of-month 00:00:00, last-of-month 23:59:59.999999999]
// in loc. time.Date normalizes month overflow, so February and leap years need
// no special casing.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Window{Start: start, End: end}
}

// MonthKey formats a month as "YYYY-MM".
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// RecentWindow maps the relative window names accepted by the list endpoints
// (24h, 7d, 30d, all) to a window ending at now.
func RecentWindow(name string, now time.Time) (Window, error) {
	switch name {
	case "", "all":
		return Until(now), nil
	case "24h":
		return Window{Start: now.Add(-24 * time.Hour), End: now}, nil
	case "7d":
		return Window{Start: now.AddDate(0, 0, -7), End: now}, nil
	case "30d":
		return Window{Start: now.AddDate(0, 0, -30), End: now}, nil
	default:
		return Window{}, &ValidationError{Field: "window", Message: fmt.Sprintf("unsupported window %q (want 24h, 7d, 30d or all)", name)}
	}
}
