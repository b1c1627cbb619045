// Package bizday buckets timestamps into the shop's operating day: doors
// open 08:00, close 01:00 the next calendar day. The 01:00–08:00 gap still
// reports the day that just finished.
package bizday

import "time"

const (
	// OpenHour is when a business day starts, local time.
	OpenHour = 8
	// CloseHour is when it ends, local time on the following calendar day.
	CloseHour = 1
)

// Window is one business day: [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Current returns the business-day window that `now` reports against.
// Before 08:00 (including the post-midnight hour and the closed gap) that is
// the window that opened yesterday; from 08:00 on it is today's window.
func Current(now time.Time) Window {
	loc := now.Location()
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if now.Hour() < OpenHour {
		day = day.AddDate(0, 0, -1)
	}
	return Window{
		Start: day.Add(OpenHour * time.Hour),
		End:   day.AddDate(0, 0, 1).Add(CloseHour * time.Hour),
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SameDay reports whether t belongs to the business day current at `now`.
// Used both for scoping today's sales totals and for deciding which
// completed orders stay visible on the dashboard.
func SameDay(now, t time.Time) bool {
	return Current(now).Contains(t)
}
