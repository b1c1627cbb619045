package bizday

import (
	"testing"
	"time"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func TestCurrentAfterOpen(t *testing.T) {
	w := Current(at(14, 12, 0))
	if !w.Start.Equal(at(14, 8, 0)) {
		t.Fatalf("start = %v", w.Start)
	}
	if !w.End.Equal(at(15, 1, 0)) {
		t.Fatalf("end = %v", w.End)
	}
}

func TestCurrentAfterMidnight(t *testing.T) {
	// 00:30 belongs to the day that opened yesterday.
	w := Current(at(15, 0, 30))
	if !w.Start.Equal(at(14, 8, 0)) {
		t.Fatalf("start = %v, want previous day 08:00", w.Start)
	}
	if !w.End.Equal(at(15, 1, 0)) {
		t.Fatalf("end = %v", w.End)
	}
}

func TestCurrentClosedGap(t *testing.T) {
	// 05:00 is inside the closed gap; it still reports yesterday's window.
	w := Current(at(15, 5, 0))
	if !w.Start.Equal(at(14, 8, 0)) {
		t.Fatalf("start = %v, want previous day 08:00", w.Start)
	}
}

func TestCurrentAtBoundaries(t *testing.T) {
	// Opening instant starts the new day.
	w := Current(at(15, 8, 0))
	if !w.Start.Equal(at(15, 8, 0)) {
		t.Fatalf("start = %v, want same day 08:00", w.Start)
	}
}

func TestWindowContains(t *testing.T) {
	w := Current(at(14, 12, 0))
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"mid afternoon", at(14, 15, 0), true},
		{"just after open", at(14, 8, 0), true},
		{"after midnight before close", at(15, 0, 59), true},
		{"closing instant excluded", at(15, 1, 0), false},
		{"yesterday morning", at(13, 12, 0), false},
		{"before open same day", at(14, 7, 59), false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.t); got != tt.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tt.name, tt.t, got, tt.want)
		}
	}
}

func TestSameDayAcrossMidnight(t *testing.T) {
	// An order placed at 23:00 is still "today" for a shift closing at 00:30.
	if !SameDay(at(15, 0, 30), at(14, 23, 0)) {
		t.Fatal("23:00 order should belong to the running business day at 00:30")
	}
	// But not to the next day's shift.
	if SameDay(at(15, 12, 0), at(14, 23, 0)) {
		t.Fatal("yesterday's order leaked into the new business day")
	}
}
