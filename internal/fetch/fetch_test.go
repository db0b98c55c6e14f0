package fetch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/resilience"
)

type fakeAds struct {
	connected bool
	campaigns []model.CampaignCost
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (f *fakeAds) Connected() bool { return f.connected }

func (f *fakeAds) FetchCampaigns(ctx context.Context, start, end string, activeOnly bool) ([]model.CampaignCost, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.campaigns, f.err
}

type fakeLeads struct {
	connected bool
	leads     []model.IntakeRecord
	err       error
	gotLimit  atomic.Int32
}

func (f *fakeLeads) Connected() bool { return f.connected }

func (f *fakeLeads) FetchDetailedLeads(ctx context.Context, start, end string, limit int, filters model.ExclusionFilters) ([]model.IntakeRecord, error) {
	f.gotLimit.Store(int32(limit))
	return f.leads, f.err
}

func TestFetchBothSources(t *testing.T) {
	t.Parallel()

	ads := &fakeAds{connected: true, campaigns: []model.CampaignCost{{Name: "CA-EN-Brand", Cost: 10}}}
	leads := &fakeLeads{connected: true, leads: []model.IntakeRecord{{ID: "1"}}}
	s := Sources{Ads: ads, Leads: leads}

	res := s.Fetch(context.Background(), "2026-03-01", "2026-03-31", true, model.ExclusionFilters{})

	assert.True(t, res.AdsOK)
	assert.True(t, res.LeadsOK)
	assert.Len(t, res.Campaigns, 1)
	assert.Len(t, res.Leads, 1)
	assert.Equal(t, int32(DefaultLeadLimit), leads.gotLimit.Load())
}

func TestFetchHonorsLeadLimit(t *testing.T) {
	t.Parallel()

	leads := &fakeLeads{connected: true}
	s := Sources{Ads: &fakeAds{}, Leads: leads, LeadLimit: 25}

	s.Fetch(context.Background(), "2026-03-01", "2026-03-31", true, model.ExclusionFilters{})

	assert.Equal(t, int32(25), leads.gotLimit.Load())
}

func TestFetchDisconnectedSourcesYieldEmpty(t *testing.T) {
	t.Parallel()

	s := Sources{Ads: &fakeAds{}, Leads: &fakeLeads{}}
	res := s.Fetch(context.Background(), "2026-03-01", "2026-03-31", true, model.ExclusionFilters{})

	assert.False(t, res.AdsOK)
	assert.False(t, res.LeadsOK)
	assert.NotNil(t, res.Campaigns)
	assert.NotNil(t, res.Leads)
	assert.Empty(t, res.Campaigns)
	assert.Empty(t, res.Leads)
}

func TestFetchNilSources(t *testing.T) {
	t.Parallel()

	res := Sources{}.Fetch(context.Background(), "2026-03-01", "2026-03-31", false, model.ExclusionFilters{})
	assert.Empty(t, res.Campaigns)
	assert.Empty(t, res.Leads)
}

func TestFetchPartialDegradation(t *testing.T) {
	t.Parallel()

	ads := &fakeAds{connected: true, err: eris.New("quota exceeded")}
	leads := &fakeLeads{connected: true, leads: []model.IntakeRecord{{ID: "1"}, {ID: "2"}}}
	s := Sources{Ads: ads, Leads: leads}

	res := s.Fetch(context.Background(), "2026-03-01", "2026-03-31", true, model.ExclusionFilters{})

	assert.False(t, res.AdsOK, "failed upstream is flagged, not fatal")
	assert.Empty(t, res.Campaigns)
	assert.True(t, res.LeadsOK)
	assert.Len(t, res.Leads, 2)
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	ads := &fakeAds{connected: true, delay: time.Second, campaigns: []model.CampaignCost{{Name: "x"}}}
	s := Sources{Ads: ads, Leads: &fakeLeads{}, Timeout: 20 * time.Millisecond}

	start := time.Now()
	res := s.Fetch(context.Background(), "2026-03-01", "2026-03-31", true, model.ExclusionFilters{})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, res.AdsOK)
	assert.Empty(t, res.Campaigns)
}

func TestFetchCircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	ads := &fakeAds{connected: true, err: eris.New("quota exceeded")}
	breakers := resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	s := Sources{Ads: ads, Leads: &fakeLeads{connected: true}, Breakers: breakers}

	for i := 0; i < 4; i++ {
		res := s.Fetch(context.Background(), "2026-03-01", "2026-03-31", false, model.ExclusionFilters{})
		assert.False(t, res.AdsOK)
		assert.True(t, res.LeadsOK, "lead breaker is independent of the ads breaker")
	}

	// After the threshold the breaker rejects calls without hitting the API.
	assert.Equal(t, int32(2), ads.calls.Load())
	assert.Equal(t, resilience.CircuitOpen, breakers.Get(ServiceAds).State())
	assert.Equal(t, resilience.CircuitClosed, breakers.Get(ServiceLeads).State())
}

func TestFetchDays(t *testing.T) {
	t.Parallel()

	ads := &fakeAds{connected: true, campaigns: []model.CampaignCost{{Name: "CA-EN-Brand", Cost: 5}}}
	s := Sources{Ads: ads, Leads: &fakeLeads{connected: true}}

	days := []string{"2026-03-01", "2026-03-02", "2026-03-03"}
	results := s.FetchDays(context.Background(), days, false, model.ExclusionFilters{})

	require.Len(t, results, 3)
	for i := range results {
		assert.True(t, results[i].AdsOK, days[i])
		assert.Len(t, results[i].Campaigns, 1)
	}
	assert.Equal(t, int32(3), ads.calls.Load())
}
