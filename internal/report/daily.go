package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/aggregate"
	"github.com/sweet-james/adreport/internal/fetch"
	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/period"
)

// todayCacheTTL bounds how long today's still-moving numbers are served from
// the day cache. Completed days are stored without expiry.
const todayCacheTTL = 10 * time.Minute

// dayPayload is the persisted day-cache row body.
type dayPayload struct {
	Spend       float64 `json:"spend"`
	Leads       int     `json:"leads"`
	InPractice  int     `json:"in_practice"`
	Unqualified int     `json:"unqualified"`
	Cases       int     `json:"cases"`
	Retainers   int     `json:"retainers"`
}

func dayVariant(q Query) string {
	return fmt.Sprintf("daily|active=%t|spam=%t|abandoned=%t|duplicate=%t",
		q.ActiveOnly, q.Filters.IncludeSpam, q.Filters.IncludeAbandoned, q.Filters.IncludeDuplicate)
}

// cachedDay reads one day from the store-backed day cache.
func (e *Engine) cachedDay(ctx context.Context, date, variant string) (period.DayInput, bool) {
	if e.store == nil {
		return period.DayInput{}, false
	}
	payload, err := e.store.GetCachedDay(ctx, date, variant)
	if err != nil {
		zap.L().Warn("day cache read failed", zap.String("date", date), zap.Error(err))
		return period.DayInput{}, false
	}
	if payload == nil {
		return period.DayInput{}, false
	}
	var p dayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		zap.L().Warn("day cache payload corrupt, refetching", zap.String("date", date))
		return period.DayInput{}, false
	}
	return period.DayInput{
		Spend:       p.Spend,
		Leads:       p.Leads,
		InPractice:  p.InPractice,
		Unqualified: p.Unqualified,
		Cases:       p.Cases,
		Retainers:   p.Retainers,
	}, true
}

// persistDay summarizes one day's fetch result and writes it back to the day
// cache. A partial fetch is never pinned: the day is only persisted when both
// sources answered. Fully-fetched past days are stored without expiry; today
// gets a short TTL since its numbers are still moving.
func (e *Engine) persistDay(ctx context.Context, day time.Time, date, variant string, res fetch.Result) period.DayInput {
	sum := aggregate.Summarize(aggregate.Run(e.tax, res.Campaigns, res.Leads))

	in := period.DayInput{
		Spend:       sum.TotalSpend,
		Leads:       sum.TotalLeads,
		InPractice:  sum.TotalInPractice,
		Unqualified: sum.TotalUnqualified,
		Cases:       sum.TotalCases,
		Retainers:   sum.TotalRetainers,
	}

	if e.store != nil && res.AdsOK && res.LeadsOK {
		ttl := time.Duration(0)
		if !day.Before(dateOnly(e.today())) {
			ttl = todayCacheTTL
		}
		payload, err := json.Marshal(dayPayload{
			Spend:       in.Spend,
			Leads:       in.Leads,
			InPractice:  in.InPractice,
			Unqualified: in.Unqualified,
			Cases:       in.Cases,
			Retainers:   in.Retainers,
		})
		if err == nil {
			if err := e.store.SetCachedDay(ctx, date, variant, payload, ttl); err != nil {
				zap.L().Warn("day cache write failed", zap.String("date", date), zap.Error(err))
			}
		}
	}
	return in
}

// dayInputs resolves every listed day, keyed by date. Cached days are served
// from the store; the misses are fetched in one bounded fan-out.
func (e *Engine) dayInputs(ctx context.Context, days []time.Time, q Query) (map[string]period.DayInput, error) {
	variant := dayVariant(q)
	inputs := make(map[string]period.DayInput, len(days))

	var missing []time.Time
	for _, day := range days {
		date := day.Format(period.DateLayout)
		if in, ok := e.cachedDay(ctx, date, variant); ok {
			inputs[date] = in
			continue
		}
		missing = append(missing, day)
	}
	if len(missing) == 0 {
		return inputs, nil
	}
	if err := ctx.Err(); err != nil {
		return inputs, err
	}

	dates := make([]string, len(missing))
	for i, day := range missing {
		dates[i] = day.Format(period.DateLayout)
	}
	results := e.sources.FetchDays(ctx, dates, q.ActiveOnly, q.Filters)
	for i, day := range missing {
		inputs[dates[i]] = e.persistDay(ctx, day, dates[i], variant, results[i])
	}
	return inputs, nil
}

// elapsedDays lists every day of the window up to today.
func (e *Engine) elapsedDays(w period.Window) []time.Time {
	end := dateOnly(e.today())
	if end.After(w.End) {
		end = w.End
	}
	var days []time.Time
	for day := w.Start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// Trend is a cumulative daily series over one window.
type Trend struct {
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Points    []period.TrendPoint `json:"points"`
}

// DailyTrend builds the cumulative spend/leads/cases/retainers series for a
// window, one point per elapsed day.
func (e *Engine) DailyTrend(ctx context.Context, q Query) (*Trend, error) {
	w, err := e.resolve(q)
	if err != nil {
		return nil, err
	}

	inputs, err := e.dayInputs(ctx, e.elapsedDays(w), q)
	if err != nil {
		return nil, err
	}

	points := period.BuildTrend(w, e.today(), func(day time.Time) (model.DayMetrics, error) {
		in := inputs[day.Format(period.DateLayout)]
		return model.DayMetrics{
			Spend:     in.Spend,
			Leads:     in.Leads,
			Cases:     in.Cases,
			Retainers: in.Retainers,
		}, nil
	})

	return &Trend{
		StartDate: w.StartDate(),
		EndDate:   w.EndDate(),
		Points:    points,
	}, nil
}

// MonthDaily is the current calendar month broken out day by day with
// day-over-day movement.
type MonthDaily struct {
	Month     string              `json:"month"`
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Days      []period.DaySummary `json:"days"`
	Totals    dayPayload          `json:"totals"`
}

// CurrentMonthDaily builds the day-by-day series for the current month,
// including placeholder rows for days that have not happened yet.
func (e *Engine) CurrentMonthDaily(ctx context.Context, q Query) (*MonthDaily, error) {
	w := period.MonthWindow(e.today())

	inputs, err := e.dayInputs(ctx, e.elapsedDays(w), q)
	if err != nil {
		return nil, err
	}

	days := period.BuildDailySeries(w, e.today(), func(day time.Time) (period.DayInput, error) {
		return inputs[day.Format(period.DateLayout)], nil
	})

	var totals dayPayload
	for _, d := range days {
		totals.Spend += d.Spend
		totals.Leads += d.Leads
		totals.InPractice += d.InPractice
		totals.Unqualified += d.Unqualified
		totals.Cases += d.Cases
		totals.Retainers += d.Retainers
	}

	return &MonthDaily{
		Month:     w.Start.Format("2006-01"),
		StartDate: w.StartDate(),
		EndDate:   w.EndDate(),
		Days:      days,
		Totals:    totals,
	}, nil
}

// WarmDays pre-populates the day cache for every elapsed day in the window.
// It returns how many days were visited.
func (e *Engine) WarmDays(ctx context.Context, q Query, startDate, endDate string) (int, error) {
	w, err := period.Resolve(period.PeriodCustom, startDate, endDate, e.today())
	if err != nil {
		return 0, err
	}

	days := e.elapsedDays(w)
	if _, err := e.dayInputs(ctx, days, q); err != nil {
		return 0, err
	}
	return len(days), nil
}

// PruneDayCache drops expired day-cache rows.
func (e *Engine) PruneDayCache(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.DeleteExpiredDays(ctx)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
