package report

import (
	"context"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/period"
	"github.com/sweet-james/adreport/internal/reportcache"
	"github.com/sweet-james/adreport/internal/taxonomy"
)

// Pacing is the month-to-date progress report by region.
type Pacing struct {
	StartDate string                    `json:"start_date"`
	EndDate   string                    `json:"end_date"`
	Regions   map[string]period.Metrics `json:"states"`
	Totals    period.Metrics            `json:"totals"`
	Time      period.TimeMetrics        `json:"time_metrics"`
	Status    string                    `json:"status"`
}

// Pacing rolls the current month's buckets up by region and couples them
// with how far through the month we are.
func (e *Engine) Pacing(ctx context.Context, q Query) (*Pacing, error) {
	w := period.MonthWindow(e.today())
	tm := period.TimeMetricsFor(w, e.today())

	key := reportcache.NewKey(labelPacing, w.StartDate(), tm.DaysElapsed, q.ActiveOnly, q.Filters)
	if v, ok := e.cache.Get(key); ok {
		cached := v.(Pacing)
		return &cached, nil
	}

	current, err := e.regionMetrics(ctx, w, q)
	if err != nil {
		return nil, err
	}

	var totals period.Metrics
	for _, m := range current {
		totals = totals.Add(m)
	}

	settings, err := e.forecastSettings(ctx)
	if err != nil {
		return nil, err
	}
	var targetSpend float64
	for _, region := range model.Regions {
		targetSpend += settings.Targets[region].Spend
	}
	variancePct := 0.0
	if tm.DaysElapsed > 0 && targetSpend > 0 {
		projected := totals.Spend / float64(tm.DaysElapsed) * float64(tm.DaysInPeriod)
		variancePct = (projected - targetSpend) / targetSpend * 100
	}

	p := Pacing{
		StartDate: w.StartDate(),
		EndDate:   w.EndDate(),
		Regions:   current,
		Totals:    totals,
		Time:      tm,
		Status:    period.Status(variancePct, tm.PercentComplete),
	}
	e.cache.Set(key, p)
	return &p, nil
}

// Projections builds the full pacing projection with recommendations, using
// the persisted forecast targets.
func (e *Engine) Projections(ctx context.Context, q Query) (*period.Projections, error) {
	w := period.MonthWindow(e.today())
	tm := period.TimeMetricsFor(w, e.today())

	key := reportcache.NewKey(labelProjections, w.StartDate(), tm.DaysElapsed, q.ActiveOnly, q.Filters)
	if v, ok := e.cache.Get(key); ok {
		cached := v.(period.Projections)
		return &cached, nil
	}

	current, err := e.regionMetrics(ctx, w, q)
	if err != nil {
		return nil, err
	}
	settings, err := e.forecastSettings(ctx)
	if err != nil {
		return nil, err
	}

	p := period.Project(current, settings, tm, e.now())
	e.cache.Set(key, p)
	return &p, nil
}

// regionMetrics aggregates a window and rolls its buckets up into per-region
// pacing metrics. Every region appears even with zero activity; buckets
// without a region (Crisp/Youtube) roll into none.
func (e *Engine) regionMetrics(ctx context.Context, w period.Window, q Query) (map[string]period.Metrics, error) {
	d, err := e.dashboardFor(ctx, Query{
		Period:     period.PeriodCustom,
		StartDate:  w.StartDate(),
		EndDate:    w.EndDate(),
		ActiveOnly: q.ActiveOnly,
		Filters:    q.Filters,
	}, w)
	if err != nil {
		return nil, err
	}

	current := make(map[string]period.Metrics, len(model.Regions))
	for _, region := range model.Regions {
		current[region] = period.Metrics{}
	}
	for _, b := range d.Summary.Buckets {
		state := taxonomy.StateOf(b.Name)
		m, ok := current[state]
		if !ok {
			continue
		}
		m.Spend += b.Cost
		m.Leads += float64(b.Leads)
		m.Cases += float64(b.Cases)
		// Signed retainers only: pending retainers don't pace against the
		// monthly targets.
		m.Retainers += float64(b.Retainers)
		current[state] = m
	}
	return current, nil
}

// ForecastSettings returns the persisted forecast settings, normalized, or
// the built-in defaults when no store is wired or the document is missing.
func (e *Engine) ForecastSettings(ctx context.Context) (*model.ForecastSettings, error) {
	return e.forecastSettings(ctx)
}

func (e *Engine) forecastSettings(ctx context.Context) (*model.ForecastSettings, error) {
	if e.store == nil {
		return model.DefaultForecastSettings(), nil
	}
	s, err := e.store.GetForecastSettings(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return model.DefaultForecastSettings(), nil
	}
	s.Normalize()
	return s, nil
}
