// Package model defines the record shapes shared across the reporting pipeline.
package model

// Case types that mark an intake as administratively excluded.
const (
	CaseTypeSpam      = "Spam"
	CaseTypeAbandoned = "Abandoned"
	CaseTypeDuplicate = "Duplicate"
)

// ExcludedCaseTypes lists the case types excluded from reporting by default.
var ExcludedCaseTypes = []string{CaseTypeSpam, CaseTypeAbandoned, CaseTypeDuplicate}

// InPracticeCaseTypes lists the case types the firm actually handles. Intakes
// outside this list are still counted as leads but never as in-practice.
var InPracticeCaseTypes = []string{
	"Pedestrian",
	"Automobile Accident",
	"Wrongful Death",
	"Premise Liability",
	"Public Entity",
	"Personal injury",
	"Habitability",
	"Automobile Accident - Commercial",
	"Bicycle",
	"Animal Incident",
	"Wildfire 2025",
	"Motorcycle",
	"Slip and Fall",
	"Electric Scooter",
	"Mold",
	"Product Liability",
}

// IntakeRecord is a single lead/intake from the case-management system.
// Optional fields default to their zero value; the aggregator never rejects a
// record for a missing field.
type IntakeRecord struct {
	ID          string `json:"id"`
	ClientName  string `json:"client_name,omitempty"`
	Status      string `json:"status,omitempty"`
	CaseType    string `json:"case_type"`
	MatterID    string `json:"matter_id"`
	CompanionID string `json:"companion_case_id"`
	UTMCampaign string `json:"utm_campaign"`

	// Bucket is the pre-resolved bucket name; empty means the aggregator
	// resolves it from UTMCampaign.
	Bucket string `json:"bucket"`

	CreatedDate        string `json:"created_date,omitempty"`
	RetainerSignedDate string `json:"retainer_signed_date,omitempty"`
	RecordURL          string `json:"record_url,omitempty"`

	InPractice     bool `json:"in_practice"`
	IsConverted    bool `json:"is_converted"`
	IsPending      bool `json:"is_pending"`
	IsExcludedType bool `json:"is_excluded_type,omitempty"`
	IsDropped      bool `json:"is_dropped,omitempty"`

	// FromPreviousPeriod marks a record pulled in because its conversion
	// date falls in the query window even though it was created earlier.
	// Such records count toward retainers and cases but never leads.
	FromPreviousPeriod bool `json:"from_previous_period"`
}

// CreatedInPeriod reports whether the record's creation date falls inside the
// query window, i.e. whether it counts toward lead volume.
func (r IntakeRecord) CreatedInPeriod() bool {
	return !r.FromPreviousPeriod
}

// ExclusionFilters controls whether administratively-excluded case types are
// returned by the lead source at all.
type ExclusionFilters struct {
	IncludeSpam      bool `json:"include_spam"`
	IncludeAbandoned bool `json:"include_abandoned"`
	IncludeDuplicate bool `json:"include_duplicate"`
}

// ExcludedCounts tallies excluded case types present in a fetched record set.
type ExcludedCounts struct {
	Spam      int `json:"spam"`
	Abandoned int `json:"abandoned"`
	Duplicate int `json:"duplicate"`
	Total     int `json:"total"`
}
