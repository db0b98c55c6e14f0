// Package period implements reporting windows, comparison windows, pacing
// projections and day-over-day trend series.
package period

import (
	"math"
	"time"

	"github.com/jinzhu/now"
	"github.com/rotisserie/eris"
)

// Named period tokens.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	PeriodMTD       = "mtd"
	PeriodCustom    = "custom"
)

// DateLayout is the wire format for window boundary dates.
const DateLayout = "2006-01-02"

// Window is an inclusive date range. Start and End are midnight in the
// reporting timezone; the collaborator boundary expands them to
// [00:00:00, 23:59:59] when querying upstream.
type Window struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// StartDate returns the start formatted as YYYY-MM-DD.
func (w Window) StartDate() string { return w.Start.Format(DateLayout) }

// EndDate returns the end formatted as YYYY-MM-DD.
func (w Window) EndDate() string { return w.End.Format(DateLayout) }

// Days returns the inclusive day count of the window. Rounding absorbs DST
// transitions, where a local-midnight day is not exactly 24 hours.
func (w Window) Days() int {
	return int(math.Round(w.End.Sub(w.Start).Hours()/24)) + 1
}

// Contains reports whether day (truncated to its date) falls in the window.
func (w Window) Contains(day time.Time) bool {
	d := dateOf(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Resolve maps a named period token to its window, relative to today in the
// reporting timezone. Custom periods take explicit YYYY-MM-DD bounds.
func Resolve(period string, customStart, customEnd string, today time.Time) (Window, error) {
	day := dateOf(today)

	switch period {
	case PeriodToday:
		return Window{Start: day, End: day}, nil
	case PeriodYesterday:
		y := day.AddDate(0, 0, -1)
		return Window{Start: y, End: y}, nil
	case PeriodWeek:
		return Window{Start: now.With(day).Monday(), End: day}, nil
	case PeriodMonth, PeriodMTD:
		return Window{Start: now.With(day).BeginningOfMonth(), End: day}, nil
	case PeriodCustom:
		start, err := time.ParseInLocation(DateLayout, customStart, day.Location())
		if err != nil {
			return Window{}, eris.Wrapf(err, "period: parse custom start %q", customStart)
		}
		end, err := time.ParseInLocation(DateLayout, customEnd, day.Location())
		if err != nil {
			return Window{}, eris.Wrapf(err, "period: parse custom end %q", customEnd)
		}
		if end.Before(start) {
			return Window{}, eris.Errorf("period: custom end %s before start %s", customEnd, customStart)
		}
		return Window{Start: start, End: end}, nil
	default:
		return Window{}, eris.Errorf("period: unknown period %q", period)
	}
}

// Comparison returns the immediately preceding window of equal length for a
// named period. For month the comparison is the full prior calendar month;
// for mtd it is the same day-of-month cutoff in the prior month, clamped to
// that month's last day.
func Comparison(period string, w Window) Window {
	switch period {
	case PeriodWeek:
		return Window{Start: w.Start.AddDate(0, 0, -7), End: w.End.AddDate(0, 0, -7)}
	case PeriodMonth:
		prevEnd := w.Start.AddDate(0, 0, -1)
		return Window{Start: now.With(prevEnd).BeginningOfMonth(), End: prevEnd}
	case PeriodMTD:
		prevEnd := w.Start.AddDate(0, 0, -1)
		prevStart := now.With(prevEnd).BeginningOfMonth()
		end := clampDay(prevStart, w.End.Day())
		return Window{Start: prevStart, End: end}
	default:
		// today, yesterday, custom: shift back by the window length
		days := w.Days()
		return Window{Start: w.Start.AddDate(0, 0, -days), End: w.End.AddDate(0, 0, -days)}
	}
}

// MonthWindow returns the full calendar month containing day.
func MonthWindow(day time.Time) Window {
	d := dateOf(day)
	return Window{Start: now.With(d).BeginningOfMonth(), End: dateOf(now.With(d).EndOfMonth())}
}

// UTCBounds converts the window to [00:00:00 start, 23:59:59 end] in the
// window's own timezone, expressed in UTC for the collaborator boundary.
func (w Window) UTCBounds() (time.Time, time.Time) {
	start := w.Start.UTC()
	end := w.End.Add(23*time.Hour + 59*time.Minute + 59*time.Second).UTC()
	return start, end
}

// clampDay returns monthStart's month with the given day-of-month, clamped to
// the month's last day.
func clampDay(monthStart time.Time, day int) time.Time {
	last := dateOf(now.With(monthStart).EndOfMonth())
	if day > last.Day() {
		return last
	}
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, monthStart.Location())
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
