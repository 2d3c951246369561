package ledger

import "time"

// DefaultWindowDays is how long an income stays editable.
const DefaultWindowDays = 15

// Window is the mutability window for incomes. The same value decides
// whether an income may still change and which incomes count as recent.
type Window struct {
	length time.Duration
}

// NewWindow returns a window of days days; non-positive values fall back
// to DefaultWindowDays.
func NewWindow(days int) Window {
	if days <= 0 {
		days = DefaultWindowDays
	}
	return Window{length: time.Duration(days) * 24 * time.Hour}
}

// Length returns the window duration.
func (w Window) Length() time.Duration {
	return w.length
}

// Contains reports whether a record created at createdAt is still
// mutable at now. The boundary itself is inside the window.
func (w Window) Contains(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= w.length
}

// Start is the earliest creation time still inside the window at now.
func (w Window) Start(now time.Time) time.Time {
	return now.Add(-w.length)
}
