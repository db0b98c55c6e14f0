// Package report orchestrates fetching, aggregation and caching into the
// response shapes the dashboard API serves.
package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/aggregate"
	"github.com/sweet-james/adreport/internal/fetch"
	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/period"
	"github.com/sweet-james/adreport/internal/reportcache"
	"github.com/sweet-james/adreport/internal/store"
	"github.com/sweet-james/adreport/internal/taxonomy"
)

// Cache labels, used for targeted invalidation.
const (
	labelDashboard   = "dashboard"
	labelComparison  = "comparison"
	labelAnnual      = "annual"
	labelPacing      = "pacing"
	labelProjections = "projections"
)

// Engine computes every report the API serves. It owns the taxonomy, the
// in-memory report cache and the store-backed day cache.
type Engine struct {
	sources fetch.Sources
	tax     *taxonomy.Taxonomy
	store   store.Store
	cache   *reportcache.Cache
	loc     *time.Location
	now     func() time.Time
}

// Deps wires an Engine. Zero-value fields get working defaults: a fresh
// default taxonomy, an in-memory cache, Pacific reporting time and the wall
// clock. Store may be nil, which disables persistence and the day cache.
type Deps struct {
	Sources  fetch.Sources
	Taxonomy *taxonomy.Taxonomy
	Store    store.Store
	Cache    *reportcache.Cache
	Location *time.Location
	Now      func() time.Time
}

// New creates an Engine from deps.
func New(d Deps) *Engine {
	if d.Taxonomy == nil {
		d.Taxonomy = taxonomy.Default()
	}
	if d.Cache == nil {
		d.Cache = reportcache.New()
	}
	if d.Location == nil {
		loc, err := time.LoadLocation("America/Los_Angeles")
		if err != nil {
			loc = time.UTC
		}
		d.Location = loc
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		sources: d.Sources,
		tax:     d.Taxonomy,
		store:   d.Store,
		cache:   d.Cache,
		loc:     d.Location,
		now:     d.Now,
	}
}

// Taxonomy exposes the engine's live mapping configuration.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.tax }

// Cache exposes the report cache for stats endpoints.
func (e *Engine) Cache() *reportcache.Cache { return e.cache }

func (e *Engine) today() time.Time { return e.now().In(e.loc) }

// LoadTaxonomy overlays persisted campaign and UTM mappings onto the live
// taxonomy. A missing document keeps the built-in defaults; a read failure is
// logged and skipped so a broken store never blocks startup.
func (e *Engine) LoadTaxonomy(ctx context.Context) {
	if e.store == nil {
		return
	}
	campaigns, err := e.store.GetCampaignMappings(ctx)
	switch {
	case err != nil:
		zap.L().Warn("loading campaign mappings failed, keeping defaults", zap.Error(err))
	case campaigns != nil:
		e.tax.ReplaceCampaigns(campaigns)
	}

	utm, err := e.store.GetUTMMappings(ctx)
	switch {
	case err != nil:
		zap.L().Warn("loading utm mappings failed, keeping defaults", zap.Error(err))
	case len(utm) > 0:
		e.tax.ReplaceUTM(utm)
	}
}

// Query selects the reporting window and fetch behavior for a report.
type Query struct {
	Period     string                 `json:"period"`
	StartDate  string                 `json:"start_date"`
	EndDate    string                 `json:"end_date"`
	ActiveOnly bool                   `json:"active_only"`
	Filters    model.ExclusionFilters `json:"filters"`
}

func (e *Engine) resolve(q Query) (period.Window, error) {
	p := q.Period
	if p == "" {
		p = period.PeriodMonth
	}
	return period.Resolve(p, q.StartDate, q.EndDate, e.today())
}

// Dashboard is the headline report for one period.
type Dashboard struct {
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Summary           model.Summary `json:"summary"`
	UnmappedCampaigns []string      `json:"unmapped_campaigns"`
	UnmappedUTMs      []string      `json:"unmapped_utms"`

	AdsConnected   bool   `json:"ads_connected"`
	LeadsConnected bool   `json:"leads_connected"`
	Cached         bool   `json:"cached"`
	Timestamp      string `json:"timestamp"`
}

// Dashboard fetches, aggregates and summarizes one reporting window.
func (e *Engine) Dashboard(ctx context.Context, q Query) (*Dashboard, error) {
	w, err := e.resolve(q)
	if err != nil {
		return nil, err
	}
	return e.dashboardFor(ctx, q, w)
}

func (e *Engine) dashboardFor(ctx context.Context, q Query, w period.Window) (*Dashboard, error) {
	key := reportcache.NewKey(labelDashboard, w.StartDate(), w.EndDate(), q.ActiveOnly, q.Filters)
	if v, ok := e.cache.Get(key); ok {
		cached := v.(Dashboard)
		cached.Cached = true
		return &cached, nil
	}

	res := e.sources.Fetch(ctx, w.StartDate(), w.EndDate(), q.ActiveOnly, q.Filters)
	agg := aggregate.Run(e.tax, res.Campaigns, res.Leads)

	d := Dashboard{
		Period:            q.Period,
		StartDate:         w.StartDate(),
		EndDate:           w.EndDate(),
		Summary:           aggregate.Summarize(agg),
		UnmappedCampaigns: agg.UnmappedCampaigns,
		UnmappedUTMs:      agg.UnmappedUTMs,
		AdsConnected:      res.AdsOK,
		LeadsConnected:    res.LeadsOK,
		Timestamp:         e.now().Format(time.RFC3339),
	}
	if len(agg.UnmappedCampaigns) > 0 {
		zap.L().Warn("unmapped campaigns in report",
			zap.Int("count", len(agg.UnmappedCampaigns)),
			zap.Strings("campaigns", agg.UnmappedCampaigns))
	}

	e.cache.Set(key, d)
	return &d, nil
}

// MetricChanges holds headline percent changes between two periods. Each
// value is 0 when the previous period's figure was 0.
type MetricChanges struct {
	Spend          float64 `json:"spend"`
	Leads          float64 `json:"leads"`
	Cases          float64 `json:"cases"`
	Retainers      float64 `json:"retainers"`
	CPL            float64 `json:"cpl"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Comparison pairs a period's report with the preceding equivalent period.
type Comparison struct {
	Period   string        `json:"period"`
	Current  Dashboard     `json:"current"`
	Previous Dashboard     `json:"previous"`
	Changes  MetricChanges `json:"changes"`
}

// Comparison computes the report for a window and for the window that
// precedes it, plus headline percent changes.
func (e *Engine) Comparison(ctx context.Context, q Query) (*Comparison, error) {
	p := q.Period
	if p == "" {
		p = period.PeriodMonth
	}
	w, err := e.resolve(q)
	if err != nil {
		return nil, err
	}
	prev := period.Comparison(p, w)

	key := reportcache.NewKey(labelComparison, w.StartDate(), w.EndDate(), prev.StartDate(), q.ActiveOnly, q.Filters)
	if v, ok := e.cache.Get(key); ok {
		cached := v.(Comparison)
		return &cached, nil
	}

	cur, err := e.dashboardFor(ctx, q, w)
	if err != nil {
		return nil, err
	}
	pq := q
	pq.Period = period.PeriodCustom
	pq.StartDate, pq.EndDate = prev.StartDate(), prev.EndDate()
	before, err := e.dashboardFor(ctx, pq, prev)
	if err != nil {
		return nil, err
	}

	c := Comparison{
		Period:   p,
		Current:  *cur,
		Previous: *before,
		Changes: MetricChanges{
			Spend:          pctChange(before.Summary.TotalSpend, cur.Summary.TotalSpend),
			Leads:          pctChange(float64(before.Summary.TotalLeads), float64(cur.Summary.TotalLeads)),
			Cases:          pctChange(float64(before.Summary.TotalCases), float64(cur.Summary.TotalCases)),
			Retainers:      pctChange(float64(before.Summary.TotalRetainers), float64(cur.Summary.TotalRetainers)),
			CPL:            pctChange(before.Summary.AvgCPL, cur.Summary.AvgCPL),
			ConversionRate: pctChange(before.Summary.ConversionRate, cur.Summary.ConversionRate),
		},
	}
	e.cache.Set(key, c)
	return &c, nil
}

// MonthReport is one month of an annual series.
type MonthReport struct {
	Month     string        `json:"month"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Summary   model.Summary `json:"summary"`
}

// Annual builds a month-by-month series for the given year. Months that have
// not started yet are returned with empty summaries so the series always has
// twelve entries.
func (e *Engine) Annual(ctx context.Context, year int, q Query) ([]MonthReport, error) {
	if year <= 0 {
		return nil, eris.Errorf("report: invalid year %d", year)
	}

	key := reportcache.NewKey(labelAnnual, year, q.ActiveOnly, q.Filters)
	if v, ok := e.cache.Get(key); ok {
		return v.([]MonthReport), nil
	}

	today := e.today()
	months := make([]MonthReport, 0, 12)
	for m := time.January; m <= time.December; m++ {
		w := period.MonthWindow(time.Date(year, m, 1, 0, 0, 0, 0, e.loc))
		mr := MonthReport{
			Month:     w.Start.Format("2006-01"),
			StartDate: w.StartDate(),
			EndDate:   w.EndDate(),
		}
		if !w.Start.After(today) {
			res := e.sources.Fetch(ctx, w.StartDate(), w.EndDate(), q.ActiveOnly, q.Filters)
			mr.Summary = aggregate.Summarize(aggregate.Run(e.tax, res.Campaigns, res.Leads))
		} else {
			mr.Summary = aggregate.Summarize(aggregate.Run(e.tax, nil, nil))
		}
		months = append(months, mr)
	}

	e.cache.Set(key, months)
	return months, nil
}

// Status reports source connectivity and cache health.
type Status struct {
	AdsConnected   bool              `json:"ads_connected"`
	LeadsConnected bool              `json:"leads_connected"`
	StoreConnected bool              `json:"store_connected"`
	Breakers       map[string]string `json:"breakers,omitempty"`
	Cache          reportcache.Stats `json:"cache"`
	Timestamp      string            `json:"timestamp"`
}

// Status summarizes the engine's runtime health.
func (e *Engine) Status(ctx context.Context) Status {
	st := Status{
		AdsConnected:   e.sources.Ads != nil && e.sources.Ads.Connected(),
		LeadsConnected: e.sources.Leads != nil && e.sources.Leads.Connected(),
		StoreConnected: e.store != nil,
		Cache:          e.cache.Stats(),
		Timestamp:      e.now().Format(time.RFC3339),
	}
	if e.sources.Breakers != nil {
		st.Breakers = make(map[string]string)
		for name, state := range e.sources.Breakers.States() {
			st.Breakers[name] = state.String()
		}
	}
	return st
}

func pctChange(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
