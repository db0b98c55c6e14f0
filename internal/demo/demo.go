// Package demo supplies deterministic sample data when the real upstreams
// are not configured, so the dashboard always renders something sensible.
package demo

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/taxonomy"
)

// Source implements both upstream interfaces with generated data. The data
// is a pure function of the requested date range, so repeated calls agree.
type Source struct{}

// New returns a demo Source.
func New() *Source { return &Source{} }

// Connected always reports true; demo data is always available.
func (*Source) Connected() bool { return true }

// FetchCampaigns generates one cost record per known campaign name, with a
// stable pseudo-cost derived from the campaign name and date range.
func (*Source) FetchCampaigns(_ context.Context, startDate, endDate string, _ bool) ([]model.CampaignCost, error) {
	var campaigns []model.CampaignCost
	for _, bucket := range taxonomy.BucketPriority {
		for _, name := range taxonomy.DefaultCampaigns[bucket] {
			seed := stableHash(name + startDate + endDate)
			campaigns = append(campaigns, model.CampaignCost{
				ID:          fmt.Sprintf("demo-%08x", seed),
				Name:        name,
				Status:      "ENABLED",
				Cost:        float64(500+seed%4500) + float64(seed%100)/100,
				Clicks:      int64(50 + seed%950),
				Impressions: int64(2000 + seed%38000),
				ChannelType: "SEARCH",
			})
		}
	}
	return campaigns, nil
}

// leadTemplate drives the generated intake set: a few multi-record cases, a
// few singletons and a handful of administratively excluded records.
type leadTemplate struct {
	matterID  string
	members   int
	converted bool
	pending   bool
}

var leadTemplates = []leadTemplate{
	{matterID: "MATTER001", members: 3, converted: true},
	{matterID: "MATTER002", members: 1, converted: true},
	{matterID: "MATTER003", members: 2, converted: false, pending: true},
	{matterID: "", members: 1, converted: true},
	{matterID: "MATTER005", members: 4, converted: false},
	{matterID: "", members: 1, converted: false},
	{matterID: "", members: 1, converted: false, pending: true},
}

var demoUTMs = []string{
	"CA-EN-Brand", "ca-pmax-en-mva", "gs_nonbrand-ca", "gs_brand-az", "pmax_az",
	"GA-EN-Brand", "CA-NB-LSA", "CA-LA-LSA", "AZ-PX-LSA", "GA-RO-LSA",
}

var demoCaseTypes = []string{
	"Automobile Accident", "Slip and Fall", "Animal Incident",
	"Premise Liability", "Wrongful Death", "Product Liability",
}

// FetchDetailedLeads generates intake records including companion/matter
// groupings, pending retainers and (when the filters ask for them)
// excluded-type records.
func (*Source) FetchDetailedLeads(_ context.Context, startDate, _ string, limit int, filters model.ExclusionFilters) ([]model.IntakeRecord, error) {
	var leads []model.IntakeRecord
	n := 0

	addExcluded := func(caseType string, include bool) {
		if !include {
			return
		}
		utm := demoUTMs[n%len(demoUTMs)]
		leads = append(leads, model.IntakeRecord{
			ID:             fmt.Sprintf("DEMO%04d", n),
			ClientName:     fmt.Sprintf("%s Lead %d", caseType, n+1),
			Status:         "Unqualified",
			CaseType:       caseType,
			UTMCampaign:    utm,
			Bucket:         taxonomy.DefaultUTM[utm],
			CreatedDate:    startDate,
			IsExcludedType: true,
		})
		n++
	}
	addExcluded(model.CaseTypeSpam, filters.IncludeSpam)
	addExcluded(model.CaseTypeAbandoned, filters.IncludeAbandoned)
	addExcluded(model.CaseTypeDuplicate, filters.IncludeDuplicate)
	addExcluded(model.CaseTypeSpam, filters.IncludeSpam)
	addExcluded(model.CaseTypeAbandoned, filters.IncludeAbandoned)

	for _, tpl := range leadTemplates {
		for m := 0; m < tpl.members; m++ {
			utm := demoUTMs[n%len(demoUTMs)]
			status := "Working"
			if tpl.converted {
				status = "Signed"
			} else if tpl.pending {
				status = "Retainer Sent"
			}
			rec := model.IntakeRecord{
				ID:          fmt.Sprintf("DEMO%04d", n),
				ClientName:  fmt.Sprintf("Demo Client %d", n+1),
				Status:      status,
				CaseType:    demoCaseTypes[n%len(demoCaseTypes)],
				MatterID:    tpl.matterID,
				UTMCampaign: utm,
				Bucket:      taxonomy.DefaultUTM[utm],
				CreatedDate: startDate,
				InPractice:  true,
				IsConverted: tpl.converted,
				IsPending:   tpl.pending,
			}
			if tpl.converted {
				rec.RetainerSignedDate = startDate
			}
			leads = append(leads, rec)
			n++
		}
	}

	if limit > 0 && len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}

func stableHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
