package period

import (
	"time"

	"github.com/sweet-james/adreport/internal/model"
)

// Pacing status values.
const (
	StatusOnTrack = "on_track"
	StatusAhead   = "ahead"
	StatusBehind  = "behind"
)

// Metrics is the (spend, leads, cases, retainers) tuple pacing operates on.
// Everything is float64 so run rates and projections compose without
// conversions.
type Metrics struct {
	Spend     float64 `json:"spend"`
	Leads     float64 `json:"leads"`
	Cases     float64 `json:"cases"`
	Retainers float64 `json:"retainers"`
}

// Scale returns m with every field multiplied by f.
func (m Metrics) Scale(f float64) Metrics {
	return Metrics{Spend: m.Spend * f, Leads: m.Leads * f, Cases: m.Cases * f, Retainers: m.Retainers * f}
}

// Add returns the field-wise sum of m and o.
func (m Metrics) Add(o Metrics) Metrics {
	return Metrics{
		Spend:     m.Spend + o.Spend,
		Leads:     m.Leads + o.Leads,
		Cases:     m.Cases + o.Cases,
		Retainers: m.Retainers + o.Retainers,
	}
}

// TimeMetrics describes how far through the reporting window "now" is.
type TimeMetrics struct {
	DaysElapsed     int     `json:"days_elapsed"`
	DaysRemaining   int     `json:"days_remaining"`
	DaysInPeriod    int     `json:"days_in_month"`
	PercentComplete float64 `json:"percent_complete"`
}

// TimeMetricsFor computes elapsed/remaining day counts for a window as of
// today. Days elapsed is inclusive of today and never exceeds the window
// length.
func TimeMetricsFor(w Window, today time.Time) TimeMetrics {
	total := w.Days()
	elapsed := Window{Start: w.Start, End: dateOf(today)}.Days()
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	tm := TimeMetrics{
		DaysElapsed:   elapsed,
		DaysRemaining: total - elapsed,
		DaysInPeriod:  total,
	}
	if total > 0 {
		tm.PercentComplete = float64(elapsed) / float64(total) * 100
	}
	return tm
}

// RegionMetrics holds the per-region derived performance numbers surfaced
// next to a projection.
type RegionMetrics struct {
	CurrentCPL        float64 `json:"current_cpl"`
	ProjectedCPL      float64 `json:"projected_cpl"`
	TargetCPL         float64 `json:"target_cpl"`
	CurrentConversion float64 `json:"current_conversion"`
	TargetConversion  float64 `json:"target_conversion"`
}

// RegionProjection is the full pacing picture for one region.
type RegionProjection struct {
	Current         Metrics       `json:"current"`
	Projected       Metrics       `json:"projected"`
	Target          Metrics       `json:"target"`
	Variance        Metrics       `json:"variance"`
	VariancePercent Metrics       `json:"variance_percent"`
	DailyRates      Metrics       `json:"daily_rates"`
	RequiredDaily   Metrics       `json:"required_daily"`
	Metrics         RegionMetrics `json:"metrics"`
	Status          string        `json:"status"`
}

// Projections is the complete pacing report over all regions.
type Projections struct {
	Regions map[string]RegionProjection `json:"states"`
	Totals  ProjectionTotals            `json:"totals"`
	Time    TimeMetrics                 `json:"time_metrics"`

	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       string           `json:"timestamp"`
}

// ProjectionTotals sums the per-region projections.
type ProjectionTotals struct {
	Current         Metrics `json:"current"`
	Projected       Metrics `json:"projected"`
	Target          Metrics `json:"target"`
	Variance        Metrics `json:"variance"`
	VariancePercent Metrics `json:"variance_percent"`
}

// Status classifies pacing by coupling target variance with elapsed time:
// being far under target early in the period is not flagged the way the same
// variance is near period end.
func Status(variancePercent, timePercent float64) string {
	efficiency := variancePercent - (timePercent - 100)
	switch {
	case efficiency >= -5 && efficiency <= 5:
		return StatusOnTrack
	case efficiency > 5:
		return StatusAhead
	default:
		return StatusBehind
	}
}

// Project builds per-region projections from current metrics and targets.
// current maps region code to metrics observed so far in the window.
func Project(current map[string]Metrics, settings *model.ForecastSettings, tm TimeMetrics, asOf time.Time) Projections {
	p := Projections{
		Regions:         make(map[string]RegionProjection, len(model.Regions)),
		Time:            tm,
		Recommendations: []Recommendation{},
		Timestamp:       asOf.Format(time.RFC3339),
	}

	for _, region := range model.Regions {
		cur := current[region]
		targets := settings.Targets[region]
		target := Metrics{
			Spend:     targets.Spend,
			Leads:     targets.Leads,
			Cases:     targets.Cases,
			Retainers: targets.Retainers,
		}

		var rates Metrics
		if tm.DaysElapsed > 0 {
			rates = cur.Scale(1 / float64(tm.DaysElapsed))
		}
		projected := rates.Scale(float64(tm.DaysInPeriod))

		var required Metrics
		if tm.DaysRemaining > 0 {
			required = Metrics{
				Spend:     (target.Spend - cur.Spend) / float64(tm.DaysRemaining),
				Leads:     (target.Leads - cur.Leads) / float64(tm.DaysRemaining),
				Cases:     (target.Cases - cur.Cases) / float64(tm.DaysRemaining),
				Retainers: (target.Retainers - cur.Retainers) / float64(tm.DaysRemaining),
			}
		}

		variance := Metrics{
			Spend:     projected.Spend - target.Spend,
			Leads:     projected.Leads - target.Leads,
			Cases:     projected.Cases - target.Cases,
			Retainers: projected.Retainers - target.Retainers,
		}
		variancePct := Metrics{
			Spend:     pctOf(variance.Spend, target.Spend),
			Leads:     pctOf(variance.Leads, target.Leads),
			Cases:     pctOf(variance.Cases, target.Cases),
			Retainers: pctOf(variance.Retainers, target.Retainers),
		}

		rp := RegionProjection{
			Current:         cur,
			Projected:       projected,
			Target:          target,
			Variance:        variance,
			VariancePercent: variancePct,
			DailyRates:      rates,
			RequiredDaily:   required,
			Metrics: RegionMetrics{
				CurrentCPL:        safeDiv(cur.Spend, cur.Leads),
				ProjectedCPL:      safeDiv(projected.Spend, projected.Leads),
				TargetCPL:         settings.CPLTargets[region],
				CurrentConversion: safeDiv(cur.Retainers, cur.Leads) * 100,
				TargetConversion:  settings.ConversionRates[region].LeadToRetainer * 100,
			},
			Status: Status(variancePct.Spend, tm.PercentComplete),
		}
		p.Regions[region] = rp

		p.Totals.Current = p.Totals.Current.Add(cur)
		p.Totals.Projected = p.Totals.Projected.Add(projected)
		p.Totals.Target = p.Totals.Target.Add(target)
		p.Totals.Variance = p.Totals.Variance.Add(variance)
	}

	p.Totals.VariancePercent = Metrics{
		Spend:     pctOf(p.Totals.Variance.Spend, p.Totals.Target.Spend),
		Leads:     pctOf(p.Totals.Variance.Leads, p.Totals.Target.Leads),
		Cases:     pctOf(p.Totals.Variance.Cases, p.Totals.Target.Cases),
		Retainers: pctOf(p.Totals.Variance.Retainers, p.Totals.Target.Retainers),
	}

	p.Recommendations = Recommend(p)
	return p
}

func pctOf(v, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return v / target * 100
}

func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
