package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveNamedPeriods(t *testing.T) {
	t.Parallel()

	// Wednesday March 18, 2026
	today := day(2026, time.March, 18)

	tests := []struct {
		period    string
		wantStart string
		wantEnd   string
	}{
		{PeriodToday, "2026-03-18", "2026-03-18"},
		{PeriodYesterday, "2026-03-17", "2026-03-17"},
		{PeriodWeek, "2026-03-16", "2026-03-18"},
		{PeriodMonth, "2026-03-01", "2026-03-18"},
		{PeriodMTD, "2026-03-01", "2026-03-18"},
	}
	for _, tt := range tests {
		w, err := Resolve(tt.period, "", "", today)
		require.NoError(t, err, tt.period)
		assert.Equal(t, tt.wantStart, w.StartDate(), tt.period)
		assert.Equal(t, tt.wantEnd, w.EndDate(), tt.period)
	}
}

func TestResolveCustom(t *testing.T) {
	t.Parallel()

	today := day(2026, time.March, 18)

	w, err := Resolve(PeriodCustom, "2026-02-01", "2026-02-10", today)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", w.StartDate())
	assert.Equal(t, "2026-02-10", w.EndDate())
	assert.Equal(t, 10, w.Days())

	_, err = Resolve(PeriodCustom, "not-a-date", "2026-02-10", today)
	assert.Error(t, err)
	_, err = Resolve(PeriodCustom, "2026-02-10", "2026-02-01", today)
	assert.Error(t, err)
	_, err = Resolve("quarter", "", "", today)
	assert.Error(t, err)
}

func TestComparisonWindows(t *testing.T) {
	t.Parallel()

	today := day(2026, time.March, 18)

	tests := []struct {
		period    string
		wantStart string
		wantEnd   string
	}{
		{PeriodToday, "2026-03-17", "2026-03-17"},
		{PeriodYesterday, "2026-03-16", "2026-03-16"},
		{PeriodWeek, "2026-03-09", "2026-03-11"},
		{PeriodMonth, "2026-02-01", "2026-02-28"},
		{PeriodMTD, "2026-02-01", "2026-02-18"},
	}
	for _, tt := range tests {
		w, err := Resolve(tt.period, "", "", today)
		require.NoError(t, err, tt.period)
		c := Comparison(tt.period, w)
		assert.Equal(t, tt.wantStart, c.StartDate(), tt.period)
		assert.Equal(t, tt.wantEnd, c.EndDate(), tt.period)
	}
}

func TestComparisonMTDClampsToShortMonth(t *testing.T) {
	t.Parallel()

	// March 30 mtd compares against February, which has no day 30
	today := day(2026, time.March, 30)
	w, err := Resolve(PeriodMTD, "", "", today)
	require.NoError(t, err)

	c := Comparison(PeriodMTD, w)
	assert.Equal(t, "2026-02-01", c.StartDate())
	assert.Equal(t, "2026-02-28", c.EndDate())
}

func TestComparisonCustomShiftsByLength(t *testing.T) {
	t.Parallel()

	w := Window{Start: day(2026, time.March, 10), End: day(2026, time.March, 14)}
	c := Comparison(PeriodCustom, w)
	assert.Equal(t, "2026-03-05", c.StartDate())
	assert.Equal(t, "2026-03-09", c.EndDate())
}

func TestComparisonMonthAcrossYearBoundary(t *testing.T) {
	t.Parallel()

	w, err := Resolve(PeriodMonth, "", "", day(2026, time.January, 15))
	require.NoError(t, err)

	c := Comparison(PeriodMonth, w)
	assert.Equal(t, "2025-12-01", c.StartDate())
	assert.Equal(t, "2025-12-31", c.EndDate())
}

func TestMonthWindow(t *testing.T) {
	t.Parallel()

	w := MonthWindow(day(2026, time.February, 10))
	assert.Equal(t, "2026-02-01", w.StartDate())
	assert.Equal(t, "2026-02-28", w.EndDate())
	assert.Equal(t, 28, w.Days())
}

func TestWindowContains(t *testing.T) {
	t.Parallel()

	w := Window{Start: day(2026, time.March, 10), End: day(2026, time.March, 12)}
	assert.True(t, w.Contains(day(2026, time.March, 10)))
	assert.True(t, w.Contains(day(2026, time.March, 12)))
	assert.False(t, w.Contains(day(2026, time.March, 9)))
	assert.False(t, w.Contains(day(2026, time.March, 13)))
}

func TestUTCBoundsFromPacific(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	w := Window{
		Start: time.Date(2026, time.January, 5, 0, 0, 0, 0, loc),
		End:   time.Date(2026, time.January, 5, 0, 0, 0, 0, loc),
	}
	start, end := w.UTCBounds()
	assert.Equal(t, "2026-01-05T08:00:00Z", start.Format(time.RFC3339))
	assert.Equal(t, "2026-01-06T07:59:59Z", end.Format(time.RFC3339))
}
