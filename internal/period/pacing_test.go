package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweet-james/adreport/internal/model"
)

func TestStatusBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		variancePercent float64
		timePercent     float64
		want            string
	}{
		{10, 100, StatusAhead},
		{3, 100, StatusOnTrack},
		{5, 100, StatusOnTrack},
		{-5, 100, StatusOnTrack},
		{-6, 100, StatusBehind},
		{-30, 100, StatusBehind},
		// 30% under on day 2 of 30: efficiency = -30 - (6.67-100) = 63
		{-30, 100.0 / 15.0, StatusAhead},
		{0, 50, StatusAhead},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.variancePercent, tt.timePercent),
			"variance=%v time=%v", tt.variancePercent, tt.timePercent)
	}
}

func TestTimeMetricsFor(t *testing.T) {
	t.Parallel()

	w := MonthWindow(day(2026, time.April, 1)) // April: 30 days

	tm := TimeMetricsFor(w, day(2026, time.April, 12))
	assert.Equal(t, 12, tm.DaysElapsed)
	assert.Equal(t, 18, tm.DaysRemaining)
	assert.Equal(t, 30, tm.DaysInPeriod)
	assert.InDelta(t, 40.0, tm.PercentComplete, 1e-9)

	// clamped past the window end
	tm = TimeMetricsFor(w, day(2026, time.May, 3))
	assert.Equal(t, 30, tm.DaysElapsed)
	assert.Equal(t, 0, tm.DaysRemaining)
	assert.InDelta(t, 100.0, tm.PercentComplete, 1e-9)
}

func TestProject(t *testing.T) {
	t.Parallel()

	settings := model.DefaultForecastSettings()
	// halfway through a 30-day month
	tm := TimeMetrics{DaysElapsed: 15, DaysRemaining: 15, DaysInPeriod: 30, PercentComplete: 50}

	current := map[string]Metrics{
		"CA": {Spend: 750000, Leads: 600, Cases: 120, Retainers: 150},
	}
	p := Project(current, settings, tm, day(2026, time.April, 15))

	ca, ok := p.Regions["CA"]
	require.True(t, ok)

	assert.InDelta(t, 50000, ca.DailyRates.Spend, 1e-6)
	assert.InDelta(t, 1500000, ca.Projected.Spend, 1e-6)
	assert.InDelta(t, 1200, ca.Projected.Leads, 1e-6)
	assert.InDelta(t, 0, ca.Variance.Spend, 1e-6)
	assert.InDelta(t, 0, ca.VariancePercent.Spend, 1e-6)
	// exactly on pace at the halfway point
	assert.Equal(t, StatusOnTrack, ca.Status)

	// required daily to close the remaining half of the target
	assert.InDelta(t, 50000, ca.RequiredDaily.Spend, 1e-6)
	assert.InDelta(t, 40, ca.RequiredDaily.Leads, 1e-6)

	assert.InDelta(t, 1250, ca.Metrics.CurrentCPL, 1e-6)
	assert.InDelta(t, 25, ca.Metrics.CurrentConversion, 1e-6)
	assert.InDelta(t, 25, ca.Metrics.TargetConversion, 1e-6)

	// regions with no activity still project, all zero current
	az, ok := p.Regions["AZ"]
	require.True(t, ok)
	assert.Zero(t, az.Current.Spend)
	assert.Equal(t, StatusBehind, az.Status)

	// totals sum all four regions
	assert.InDelta(t, 750000, p.Totals.Current.Spend, 1e-6)
	assert.InDelta(t, 2500000, p.Totals.Target.Spend, 1e-6)
}

func TestProjectZeroDaysElapsed(t *testing.T) {
	t.Parallel()

	settings := model.DefaultForecastSettings()
	tm := TimeMetrics{DaysElapsed: 0, DaysRemaining: 30, DaysInPeriod: 30}

	p := Project(map[string]Metrics{}, settings, tm, day(2026, time.April, 1))
	for _, region := range model.Regions {
		rp := p.Regions[region]
		assert.Zero(t, rp.DailyRates.Spend, region)
		assert.Zero(t, rp.Projected.Spend, region)
	}
}

func TestRecommendSpendUnderPacing(t *testing.T) {
	t.Parallel()

	settings := model.DefaultForecastSettings()
	tm := TimeMetrics{DaysElapsed: 15, DaysRemaining: 15, DaysInPeriod: 30, PercentComplete: 50}

	// CA at half the expected pace: projects to 50% of target
	current := map[string]Metrics{
		"CA": {Spend: 375000, Leads: 300, Cases: 60, Retainers: 75},
	}
	p := Project(current, settings, tm, day(2026, time.April, 15))

	require.NotEmpty(t, p.Recommendations)
	assert.LessOrEqual(t, len(p.Recommendations), 10)

	// high severity entries sort before medium
	for i := 1; i < len(p.Recommendations); i++ {
		assert.LessOrEqual(t,
			severityRank[p.Recommendations[i-1].Severity],
			severityRank[p.Recommendations[i].Severity])
	}

	var caSpend *Recommendation
	for i := range p.Recommendations {
		r := &p.Recommendations[i]
		if r.Region == "CA" && r.Type == "spend" {
			caSpend = r
			break
		}
	}
	require.NotNil(t, caSpend, "expected an under-pacing spend alert for CA")
	assert.Equal(t, SeverityHigh, caSpend.Severity)
	assert.Contains(t, caSpend.Message, "under spend target")
}

func TestRecommendCapAtTen(t *testing.T) {
	t.Parallel()

	settings := model.DefaultForecastSettings()
	tm := TimeMetrics{DaysElapsed: 15, DaysRemaining: 15, DaysInPeriod: 30, PercentComplete: 50}

	// every region badly behind on spend, leads and conversion: 12 alerts
	p := Project(map[string]Metrics{}, settings, tm, day(2026, time.April, 15))
	assert.Len(t, p.Recommendations, 10)
}
