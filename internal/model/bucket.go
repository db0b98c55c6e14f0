package model

// Bucket is one (state, channel-type) aggregation target. All counters are
// recomputed from scratch on every aggregation; there is no carried state.
type Bucket struct {
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Campaigns []string `json:"campaigns"`

	Cost             float64 `json:"cost"`
	Leads            int     `json:"leads"`
	InPractice       int     `json:"inPractice"`
	Unqualified      int     `json:"unqualified"`
	Cases            int     `json:"cases"`
	Retainers        int     `json:"retainers"`
	PendingRetainers int     `json:"pendingRetainers"`
	TotalRetainers   int     `json:"totalRetainers"`

	// Derived ratios. Each is 0 when its denominator is 0.
	CostPerLead        float64 `json:"costPerLead"`
	CPA                float64 `json:"cpa"`
	CostPerRetainer    float64 `json:"costPerRetainer"`
	InPracticePercent  float64 `json:"inPracticePercent"`
	UnqualifiedPercent float64 `json:"unqualifiedPercent"`
	ConversionRate     float64 `json:"conversionRate"`
}

// Summary rolls a bucket list up to period totals with derived averages.
type Summary struct {
	TotalSpend       float64  `json:"total_spend"`
	TotalLeads       int      `json:"total_leads"`
	TotalCases       int      `json:"total_cases"`
	TotalRetainers   int      `json:"total_retainers"`
	TotalInPractice  int      `json:"total_in_practice"`
	TotalUnqualified int      `json:"total_unqualified"`
	AvgCPL           float64  `json:"avg_cpl"`
	AvgCPA           float64  `json:"avg_cpa"`
	AvgCPR           float64  `json:"avg_cpr"`
	ConversionRate   float64  `json:"conversion_rate"`
	Buckets          []Bucket `json:"buckets"`

	ExcludedCounts ExcludedCounts `json:"excluded_counts"`
}
