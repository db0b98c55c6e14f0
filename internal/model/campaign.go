package model

// CampaignCost is one campaign's spend for a date range, as returned by the
// ad-platform source. Cost is in dollars (the source reports micros; the
// client converts before handing records to the core).
type CampaignCost struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Status       string  `json:"status,omitempty"`
	Cost         float64 `json:"cost"`
	Clicks       int64   `json:"clicks,omitempty"`
	Impressions  int64   `json:"impressions,omitempty"`
	Conversions  float64 `json:"conversions,omitempty"`
	ChannelType  string  `json:"channel_type,omitempty"`
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name,omitempty"`

	// IsLSA marks a local-services campaign, which resolves to a bucket by
	// customer id rather than by campaign name.
	IsLSA bool `json:"is_lsa"`
}

// DayMetrics holds one day's isolated headline numbers.
type DayMetrics struct {
	Spend     float64 `json:"spend"`
	Leads     int     `json:"leads"`
	Cases     int     `json:"cases"`
	Retainers int     `json:"retainers"`
}

// Add accumulates another day's metrics into m.
func (m *DayMetrics) Add(o DayMetrics) {
	m.Spend += o.Spend
	m.Leads += o.Leads
	m.Cases += o.Cases
	m.Retainers += o.Retainers
}
