package period

import (
	"time"

	"github.com/sweet-james/adreport/internal/model"
)

// TrendPoint is one day of a trend series: the day's isolated metrics plus
// the running cumulative sum through that day.
type TrendPoint struct {
	Date       string           `json:"date"`
	Metrics    model.DayMetrics `json:"metrics"`
	Cumulative model.DayMetrics `json:"cumulative"`
}

// BuildTrend walks a window day by day through today (capped at the window
// end), looks up each day's isolated metrics and threads a cumulative total.
// fetch returns the metrics for a single day; a lookup failure contributes a
// zero day rather than aborting the series.
func BuildTrend(w Window, today time.Time, fetch func(day time.Time) (model.DayMetrics, error)) []TrendPoint {
	end := dateOf(today)
	if end.After(w.End) {
		end = w.End
	}

	var cumulative model.DayMetrics
	points := []TrendPoint{}
	for day := w.Start; !day.After(end); day = day.AddDate(0, 0, 1) {
		metrics, err := fetch(day)
		if err != nil {
			metrics = model.DayMetrics{}
		}
		cumulative.Add(metrics)
		points = append(points, TrendPoint{
			Date:       day.Format(DateLayout),
			Metrics:    metrics,
			Cumulative: cumulative,
		})
	}
	return points
}

// DayDeltas carries day-over-day movement for one day of the series.
// Absolute counters are plain differences; rate metrics (CPL, CPA, CPR) are
// percentage changes; conversion rate is a percentage-point difference. All
// fields are nil on the first day of a window: no baseline is distinct from
// no change.
type DayDeltas struct {
	Spend       *float64 `json:"spendDelta"`
	Leads       *int     `json:"leadsDelta"`
	InPractice  *int     `json:"inPracticeDelta"`
	Unqualified *int     `json:"unqualifiedDelta"`
	Cases       *int     `json:"casesDelta"`
	Retainers   *int     `json:"retainersDelta"`
	CPL         *float64 `json:"cplDelta"`
	CPA         *float64 `json:"cpaDelta"`
	CPR         *float64 `json:"cprDelta"`
	Conversion  *float64 `json:"convDelta"`
}

// DaySummary is one fully-derived day in a daily performance series.
type DaySummary struct {
	Date      string `json:"date"`
	DayNum    int    `json:"dayNum"`
	DayName   string `json:"dayName"`
	IsToday   bool   `json:"isToday"`
	IsFuture  bool   `json:"isFuture"`
	IsWeekend bool   `json:"isWeekend"`

	Spend       float64 `json:"spend"`
	Leads       int     `json:"leads"`
	InPractice  int     `json:"inPractice"`
	Unqualified int     `json:"unqualified"`
	Cases       int     `json:"cases"`
	Retainers   int     `json:"retainers"`

	CPL      float64 `json:"cpl"`
	CPA      float64 `json:"cpa"`
	CPR      float64 `json:"cpr"`
	ConvRate float64 `json:"convRate"`

	Deltas DayDeltas `json:"deltas"`
}

// DayInput is the raw per-day numbers a daily series is derived from.
type DayInput struct {
	Spend       float64
	Leads       int
	InPractice  int
	Unqualified int
	Cases       int
	Retainers   int
}

// BuildDailySeries derives a daily summary series for a window through
// today. fetch supplies each day's raw numbers. Days after today appear with
// IsFuture set, zero metrics and nil deltas so a month view always has its
// full shape.
func BuildDailySeries(w Window, today time.Time, fetch func(day time.Time) (DayInput, error)) []DaySummary {
	todayDate := dateOf(today)

	series := []DaySummary{}
	var prev *DaySummary
	for day := w.Start; !day.After(w.End); day = day.AddDate(0, 0, 1) {
		s := DaySummary{
			Date:      day.Format(DateLayout),
			DayNum:    day.Day(),
			DayName:   day.Format("Mon"),
			IsToday:   day.Equal(todayDate),
			IsFuture:  day.After(todayDate),
			IsWeekend: day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
		}
		if s.IsFuture {
			series = append(series, s)
			continue
		}

		in, err := fetch(day)
		if err != nil {
			in = DayInput{}
		}
		s.Spend = in.Spend
		s.Leads = in.Leads
		s.InPractice = in.InPractice
		s.Unqualified = in.Unqualified
		s.Cases = in.Cases
		s.Retainers = in.Retainers

		s.CPL = safeDiv(s.Spend, float64(s.Leads))
		s.CPA = safeDiv(s.Spend, float64(s.Cases))
		s.CPR = safeDiv(s.Spend, float64(s.Retainers))
		s.ConvRate = safeDiv(float64(s.Retainers), float64(s.InPractice))

		if prev != nil {
			s.Deltas = deltasBetween(*prev, s)
		}

		series = append(series, s)
		prev = &series[len(series)-1]
	}
	return series
}

func deltasBetween(prev, cur DaySummary) DayDeltas {
	return DayDeltas{
		Spend:       ptr(cur.Spend - prev.Spend),
		Leads:       ptr(cur.Leads - prev.Leads),
		InPractice:  ptr(cur.InPractice - prev.InPractice),
		Unqualified: ptr(cur.Unqualified - prev.Unqualified),
		Cases:       ptr(cur.Cases - prev.Cases),
		Retainers:   ptr(cur.Retainers - prev.Retainers),
		CPL:         ptr(pctChange(prev.CPL, cur.CPL)),
		CPA:         ptr(pctChange(prev.CPA, cur.CPA)),
		CPR:         ptr(pctChange(prev.CPR, cur.CPR)),
		Conversion:  ptr((cur.ConvRate - prev.ConvRate) * 100),
	}
}

func pctChange(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func ptr[T any](v T) *T { return &v }
