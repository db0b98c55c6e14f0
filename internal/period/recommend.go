package period

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sweet-james/adreport/internal/model"
)

// Recommendation severities, in rank order.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Recommendation is one actionable pacing alert.
type Recommendation struct {
	Region   string `json:"state"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const maxRecommendations = 10

var severityRank = map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}

// usd formats grouped dollar amounts for alert text.
var usd = message.NewPrinter(language.AmericanEnglish)

// Recommend derives ranked pacing alerts from a projection set: spend pacing
// more than 10% off target, lead pacing more than 10% under, CPL more than
// 20% over its target, and conversion below 80% of its target. High severity
// sorts first; the list is capped at 10 entries.
func Recommend(p Projections) []Recommendation {
	recs := []Recommendation{}

	// iterate in fixed region order so ties sort deterministically
	for _, region := range model.Regions {
		data, ok := p.Regions[region]
		if !ok {
			continue
		}
		variance := data.VariancePercent

		if variance.Spend < -10 {
			recs = append(recs, Recommendation{
				Region:   region,
				Type:     "spend",
				Severity: SeverityHigh,
				Message: usd.Sprintf("%s is %.1f%% under spend target. Consider increasing daily budget by $%.0f/day.",
					region, -variance.Spend, data.RequiredDaily.Spend),
			})
		} else if variance.Spend > 10 {
			recs = append(recs, Recommendation{
				Region:   region,
				Type:     "spend",
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("%s is %.1f%% over spend target. Consider reducing daily budget.", region, variance.Spend),
			})
		}

		if variance.Leads < -10 {
			recs = append(recs, Recommendation{
				Region:   region,
				Type:     "leads",
				Severity: SeverityHigh,
				Message: fmt.Sprintf("%s needs %.0f leads/day to hit target (current: %.1f/day).",
					region, data.RequiredDaily.Leads, data.DailyRates.Leads),
			})
		}

		m := data.Metrics
		if m.CurrentCPL > m.TargetCPL*1.2 {
			recs = append(recs, Recommendation{
				Region:   region,
				Type:     "efficiency",
				Severity: SeverityMedium,
				Message: usd.Sprintf("%s CPL is $%.0f (target: $%.0f). Review campaign targeting and quality.",
					region, m.CurrentCPL, m.TargetCPL),
			})
		}

		if m.CurrentConversion < m.TargetConversion*0.8 {
			recs = append(recs, Recommendation{
				Region:   region,
				Type:     "conversion",
				Severity: SeverityMedium,
				Message: fmt.Sprintf("%s conversion rate is %.1f%% (target: %.1f%%). Review lead quality and intake process.",
					region, m.CurrentConversion, m.TargetConversion),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return severityRank[recs[i].Severity] < severityRank[recs[j].Severity]
	})

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
