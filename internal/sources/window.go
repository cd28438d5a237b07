package sources

import "time"

// Window is the range of upstream data a sync run reads
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow starts the window at the later of cursor and now minus
// lookbackDays, truncated to midnight UTC, and ends it one day after now.
// From never exceeds To.
func NewWindow(cursor *time.Time, now time.Time, lookbackDays int) Window {
	now = now.UTC()
	from := now.AddDate(0, 0, -lookbackDays)
	if cursor != nil && cursor.After(from) {
		from = cursor.UTC()
	}
	w := Window{
		From: startOfDay(from),
		To:   now.Add(24 * time.Hour),
	}
	// A cursor ahead of the clock still yields a non-empty window
	if w.From.After(w.To) {
		w.From = startOfDay(now)
	}
	return w
}

// StatisticsSince returns the earliest daily row a run rewrites: the start of
// the cursor's day, never later than the window start. Daily rows are stamped
// at midnight, so the cursor day's row is rewritten along with the entry the
// window clear removed. Nil keeps every row.
func StatisticsSince(window Window, cursor *time.Time) *time.Time {
	if cursor == nil {
		return nil
	}
	since := startOfDay(cursor.UTC())
	if since.After(window.From) {
		since = window.From
	}
	return &since
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
