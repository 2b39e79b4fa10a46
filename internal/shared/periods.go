package shared

import (
	"errors"
	"time"
)

// ErrInvalidPeriod indicates a malformed or reversed period window.
var ErrInvalidPeriod = errors.New("invalid period window")

// Period is a calendar window, inclusive on both ends. Commission batches run
// over calendar months.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the calendar-month period containing t, in UTC.
func MonthWindow(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return Period{Start: start, End: end}
}

// PreviousMonthWindow returns the calendar month before the one containing t.
func PreviousMonthWindow(t time.Time) Period {
	return MonthWindow(MonthWindow(t).Start.AddDate(0, 0, -1))
}

// Validate checks the window is well formed.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether d falls inside the period, date precision.
func (p Period) Contains(d time.Time) bool {
	d = d.UTC().Truncate(24 * time.Hour)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Key returns a stable identifier (YYYY-MM for month-aligned windows,
// otherwise start/end dates) used in lock keys and job payloads.
func (p Period) Key() string {
	if p.Start.Day() == 1 && p.End.Equal(p.Start.AddDate(0, 1, 0).AddDate(0, 0, -1)) {
		return p.Start.Format("2006-01")
	}
	return p.Start.Format("2006-01-02") + ":" + p.End.Format("2006-01-02")
}
