// Package fetch fans out the two upstream reads (ad spend and intake
// records) in parallel with a bounded timeout. A slow or failed upstream
// degrades to empty data for its slice; the aggregation proceeds with
// whatever arrived.
package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/resilience"
)

// CampaignSource supplies ad-spend cost records for a date range. A nil
// slice means no data / not connected, never an error condition downstream.
type CampaignSource interface {
	Connected() bool
	FetchCampaigns(ctx context.Context, startDate, endDate string, activeOnly bool) ([]model.CampaignCost, error)
}

// LeadSource supplies intake records for a date range.
type LeadSource interface {
	Connected() bool
	FetchDetailedLeads(ctx context.Context, startDate, endDate string, limit int, filters model.ExclusionFilters) ([]model.IntakeRecord, error)
}

// DefaultTimeout bounds the parallel fan-out.
const DefaultTimeout = 30 * time.Second

// DefaultLeadLimit caps a single lead query.
const DefaultLeadLimit = 1000

// Sources bundles the two upstreams behind one parallel fetch.
type Sources struct {
	Ads     CampaignSource
	Leads   LeadSource
	Timeout time.Duration

	// LeadLimit caps a single lead query. Zero means DefaultLeadLimit.
	LeadLimit int

	// Breakers optionally guards each upstream with a circuit breaker so a
	// flapping API stops eating the fetch timeout on every report.
	Breakers *resilience.ServiceBreakers
}

// Breaker service names used by Fetch.
const (
	ServiceAds   = "googleads"
	ServiceLeads = "litify"
)

// Result carries whatever the fan-out managed to collect. Slices are never
// nil; a failed upstream yields its zero slice and sets the matching flag.
type Result struct {
	Campaigns []model.CampaignCost
	Leads     []model.IntakeRecord

	AdsOK   bool
	LeadsOK bool
}

// Fetch runs both upstream reads concurrently. Individual failures are
// logged and degrade to empty slices; Fetch itself only fails on a context
// error from the caller.
func (s Sources) Fetch(ctx context.Context, startDate, endDate string, activeOnly bool, filters model.ExclusionFilters) Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := s.LeadLimit
	if limit <= 0 {
		limit = DefaultLeadLimit
	}

	res := Result{
		Campaigns: []model.CampaignCost{},
		Leads:     []model.IntakeRecord{},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if s.Ads == nil || !s.Ads.Connected() {
			return nil
		}
		campaigns, err := guarded(gCtx, s.Breakers, ServiceAds, func(ctx context.Context) ([]model.CampaignCost, error) {
			return s.Ads.FetchCampaigns(ctx, startDate, endDate, activeOnly)
		})
		if err != nil {
			zap.L().Warn("ad spend fetch failed, proceeding without cost data",
				zap.String("start", startDate),
				zap.String("end", endDate),
				zap.Error(err))
			return nil
		}
		res.Campaigns = campaigns
		res.AdsOK = true
		return nil
	})

	g.Go(func() error {
		if s.Leads == nil || !s.Leads.Connected() {
			return nil
		}
		leads, err := guarded(gCtx, s.Breakers, ServiceLeads, func(ctx context.Context) ([]model.IntakeRecord, error) {
			return s.Leads.FetchDetailedLeads(ctx, startDate, endDate, limit, filters)
		})
		if err != nil {
			zap.L().Warn("intake fetch failed, proceeding without lead data",
				zap.String("start", startDate),
				zap.String("end", endDate),
				zap.Error(err))
			return nil
		}
		res.Leads = leads
		res.LeadsOK = true
		return nil
	})

	// the goroutines swallow their own errors, so Wait only reflects the
	// fan-out finishing
	_ = g.Wait()

	if res.Campaigns == nil {
		res.Campaigns = []model.CampaignCost{}
	}
	if res.Leads == nil {
		res.Leads = []model.IntakeRecord{}
	}
	return res
}

// guarded runs fn through the named circuit breaker when one is configured.
func guarded[T any](ctx context.Context, breakers *resilience.ServiceBreakers, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	if breakers == nil {
		return fn(ctx)
	}
	return resilience.ExecuteVal(ctx, breakers.Get(service), fn)
}

// FetchDays fetches isolated per-day results for every date in days,
// bounding concurrency. Failed days yield empty results at their index.
func (s Sources) FetchDays(ctx context.Context, days []string, activeOnly bool, filters model.ExclusionFilters) []Result {
	results := make([]Result, len(days))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, date := range days {
		g.Go(func() error {
			results[i] = s.Fetch(gCtx, date, date, activeOnly, filters)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
