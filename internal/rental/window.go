package rental

import (
	"fmt"
	"time"
)

// DateWindow is a query interval with optional bounds. A nil bound skips
// that side of the overlap test, so a fully open window matches every
// reservation.
type DateWindow struct {
	From *time.Time
	To   *time.Time
}

func NewWindow(from, to *time.Time) (DateWindow, error) {
	if from != nil && to != nil && from.After(*to) {
		return DateWindow{}, fmt.Errorf("%w: window start after end", ErrInvalidInput)
	}
	return DateWindow{From: from, To: to}, nil
}

// Overlaps tests the inclusive interval [start, end] against the window:
// end >= From AND start <= To, each side skipped when the bound is open.
func (w DateWindow) Overlaps(start, end time.Time) bool {
	if w.From != nil && end.Before(*w.From) {
		return false
	}
	if w.To != nil && start.After(*w.To) {
		return false
	}
	return true
}

func (w DateWindow) Open() bool { return w.From == nil && w.To == nil }

// CacheKey renders the window for use inside a Redis key.
func (w DateWindow) CacheKey() string {
	f, t := "open", "open"
	if w.From != nil {
		f = fmt.Sprintf("%d", w.From.Unix())
	}
	if w.To != nil {
		t = fmt.Sprintf("%d", w.To.Unix())
	}
	return f + "-" + t
}

// RentalDays is the number of billable days for a rental interval:
// whole days between the bounds, inclusive of the first day. An inverted
// interval bills zero days.
func RentalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
