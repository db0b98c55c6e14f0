// Package aggregate reconciles ad-spend cost records against intake records
// into per-bucket totals and derived cost metrics.
package aggregate

import (
	"sort"

	"github.com/sweet-james/adreport/internal/casegroup"
	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/taxonomy"
)

// Result is the output of a single aggregation pass.
type Result struct {
	Buckets           []model.Bucket       `json:"buckets"`
	UnmappedCampaigns []string             `json:"unmappedCampaigns"`
	UnmappedUTMs      []string             `json:"unmappedUtms"`
	Excluded          model.ExcludedCounts `json:"excludedCounts"`
}

// Run recomputes bucket aggregates from scratch. It never errors: malformed
// or missing fields on input records default to zero values, unmapped cost
// and intake records are reported in the result rather than raised, and a
// nil input slice behaves as empty.
func Run(tax *taxonomy.Taxonomy, campaigns []model.CampaignCost, leads []model.IntakeRecord) Result {
	buckets := make([]model.Bucket, 0, len(taxonomy.BucketPriority))
	index := make(map[string]int, len(taxonomy.BucketPriority))
	for i, name := range taxonomy.BucketPriority {
		buckets = append(buckets, model.Bucket{
			Name:      name,
			State:     taxonomy.StateOf(name),
			Campaigns: []string{},
		})
		index[name] = i
	}

	res := Result{
		UnmappedCampaigns: []string{},
		UnmappedUTMs:      []string{},
	}

	for _, c := range campaigns {
		bucket, ok := tax.ResolveCampaign(c)
		if !ok {
			res.UnmappedCampaigns = append(res.UnmappedCampaigns, c.Name)
			continue
		}
		b := &buckets[index[bucket]]
		b.Campaigns = append(b.Campaigns, c.Name)
		b.Cost += c.Cost
	}

	for _, r := range leads {
		switch r.CaseType {
		case model.CaseTypeSpam:
			res.Excluded.Spam++
		case model.CaseTypeAbandoned:
			res.Excluded.Abandoned++
		case model.CaseTypeDuplicate:
			res.Excluded.Duplicate++
		}
	}
	res.Excluded.Total = res.Excluded.Spam + res.Excluded.Abandoned + res.Excluded.Duplicate

	caseIDs := casegroup.Resolve(leads)

	caseSets := make([]map[string]struct{}, len(buckets))
	unmappedUTMs := make(map[string]struct{})

	for _, r := range leads {
		bucket := r.Bucket
		if bucket == "" {
			resolved, ok := tax.ResolveUTM(r.UTMCampaign)
			if !ok {
				if r.UTMCampaign != "" {
					unmappedUTMs[r.UTMCampaign] = struct{}{}
				}
				continue
			}
			bucket = resolved
		}
		i, ok := index[bucket]
		if !ok {
			// a pre-set bucket outside the priority list is an
			// attribution failure, not an error
			if r.UTMCampaign != "" {
				unmappedUTMs[r.UTMCampaign] = struct{}{}
			}
			continue
		}
		b := &buckets[i]

		if r.CreatedInPeriod() {
			b.Leads++
			if r.InPractice {
				b.InPractice++
				if !r.IsConverted {
					b.Unqualified++
				}
			}
		}

		// conversions attribute to their period even when the lead was
		// created earlier, so the gates differ from the lead counters
		if r.IsConverted {
			b.Retainers++
			if caseSets[i] == nil {
				caseSets[i] = make(map[string]struct{})
			}
			caseSets[i][caseIDs[r.ID]] = struct{}{}
		}
		if r.IsPending {
			b.PendingRetainers++
		}
	}

	for i := range buckets {
		b := &buckets[i]
		b.Cases = len(caseSets[i])
		b.TotalRetainers = b.Retainers + b.PendingRetainers

		b.CostPerLead = safeDiv(b.Cost, float64(b.Leads))
		b.CPA = safeDiv(b.Cost, float64(b.Cases))
		b.CostPerRetainer = safeDiv(b.Cost, float64(b.Retainers))
		b.InPracticePercent = safeDiv(float64(b.InPractice), float64(b.Leads)) * 100
		b.UnqualifiedPercent = safeDiv(float64(b.Unqualified), float64(b.InPractice)) * 100
		b.ConversionRate = safeDiv(float64(b.Retainers), float64(b.InPractice)) * 100
	}

	for utm := range unmappedUTMs {
		res.UnmappedUTMs = append(res.UnmappedUTMs, utm)
	}
	sort.Strings(res.UnmappedUTMs)

	res.Buckets = buckets
	return res
}

// Summarize folds a Result into portfolio-level totals.
func Summarize(res Result) model.Summary {
	s := model.Summary{
		Buckets:        res.Buckets,
		ExcludedCounts: res.Excluded,
	}
	for _, b := range res.Buckets {
		s.TotalSpend += b.Cost
		s.TotalLeads += b.Leads
		s.TotalCases += b.Cases
		s.TotalRetainers += b.Retainers
		s.TotalInPractice += b.InPractice
		s.TotalUnqualified += b.Unqualified
	}
	s.AvgCPL = safeDiv(s.TotalSpend, float64(s.TotalLeads))
	s.AvgCPA = safeDiv(s.TotalSpend, float64(s.TotalCases))
	s.AvgCPR = safeDiv(s.TotalSpend, float64(s.TotalRetainers))
	s.ConversionRate = safeDiv(float64(s.TotalRetainers), float64(s.TotalInPractice)) * 100
	return s
}

func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
