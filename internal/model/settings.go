package model

// Regions are the four reporting states, in display order.
var Regions = []string{"CA", "AZ", "GA", "TX"}

// RegionTargets holds monthly volume targets for one region.
type RegionTargets struct {
	Spend     float64 `json:"spend"`
	Leads     float64 `json:"leads"`
	Retainers float64 `json:"retainers"`
	Cases     float64 `json:"cases"`
}

// ConversionTargets holds target conversion ratios for one region.
type ConversionTargets struct {
	LeadToRetainer float64 `json:"lead_to_retainer"`
	LeadToCase     float64 `json:"lead_to_case"`
}

// ForecastSettings is the persisted pacing configuration document.
type ForecastSettings struct {
	Targets         map[string]RegionTargets     `json:"targets"`
	ConversionRates map[string]ConversionTargets `json:"conversion_rates"`
	CPLTargets      map[string]float64           `json:"cpl_targets"`
}

// DefaultForecastSettings returns the built-in pacing targets, used when the
// settings document is missing or unreadable.
func DefaultForecastSettings() *ForecastSettings {
	return &ForecastSettings{
		Targets: map[string]RegionTargets{
			"CA": {Spend: 1500000, Leads: 1200, Retainers: 300, Cases: 240},
			"AZ": {Spend: 500000, Leads: 400, Retainers: 100, Cases: 80},
			"GA": {Spend: 300000, Leads: 240, Retainers: 60, Cases: 48},
			"TX": {Spend: 200000, Leads: 160, Retainers: 40, Cases: 32},
		},
		ConversionRates: map[string]ConversionTargets{
			"CA": {LeadToRetainer: 0.25, LeadToCase: 0.20},
			"AZ": {LeadToRetainer: 0.25, LeadToCase: 0.20},
			"GA": {LeadToRetainer: 0.25, LeadToCase: 0.20},
			"TX": {LeadToRetainer: 0.25, LeadToCase: 0.20},
		},
		CPLTargets: map[string]float64{
			"CA": 1250,
			"AZ": 1250,
			"GA": 1250,
			"TX": 1250,
		},
	}
}

// Normalize fills any missing sections with defaults so a partially-written
// settings document never loses fields.
func (s *ForecastSettings) Normalize() {
	def := DefaultForecastSettings()
	if s.Targets == nil {
		s.Targets = def.Targets
	}
	if s.ConversionRates == nil {
		s.ConversionRates = def.ConversionRates
	}
	if s.CPLTargets == nil {
		s.CPLTargets = def.CPLTargets
	}
}
