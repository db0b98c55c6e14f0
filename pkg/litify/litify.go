// Package litify fetches case-intake records from a Litify (Salesforce)
// org and normalizes them into the reporting pipeline's record shape.
package litify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sweet-james/adreport/internal/model"
)

// Client defines the Litify operations used by the reporting backend.
type Client interface {
	Connected() bool
	FetchDetailedLeads(ctx context.Context, startDate, endDate string, limit int, filters model.ExclusionFilters) ([]model.IntakeRecord, error)
}

// notConvertedStatuses override the conversion signal outright.
var notConvertedStatuses = map[string]bool{
	"Converted DAI": true,
	"Referred Out":  true,
}

// pendingStatuses mark an intake whose retainer is still in flight. A record
// only counts as converted once the retainer date is actually set.
var pendingStatuses = map[string]bool{
	"Retained":         true,
	"Pending Retainer": true,
	"Retainer Sent":    true,
}

// ClientOption configures the Litify client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for Salesforce API calls.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithTimezone sets the reporting timezone used to expand YYYY-MM-DD window
// bounds into UTC instants for the created-date query. Defaults to Pacific.
func WithTimezone(loc *time.Location) ClientOption {
	return func(c *sfClient) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithInstanceURL sets the org instance URL, used to build record deep links.
func WithInstanceURL(url string) ClientOption {
	return func(c *sfClient) { c.instanceURL = url }
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: the underlying go-salesforce/v3 library does not accept
// context.Context, so the ctx parameter only governs rate limiter waits.
type sfClient struct {
	sf          *salesforce.Salesforce
	limiter     *rate.Limiter
	loc         *time.Location
	instanceURL string
}

// NewClient creates a Litify Client wrapping the given go-salesforce
// instance. A nil instance yields a disconnected client.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}
	c := &sfClient{sf: sf, loc: loc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sfClient) Connected() bool { return c.sf != nil }

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// intakeRecord is the SOQL row shape for litify_pm__Intake__c.
type intakeRecord struct {
	ID          string `salesforce:"Id"`
	Name        string `salesforce:"Name"`
	CreatedDate string `salesforce:"CreatedDate"`
	Status      string `salesforce:"litify_pm__Status__c"`
	DisplayName string `salesforce:"litify_pm__Display_Name__c"`
	FirstName   string `salesforce:"litify_pm__First_Name__c"`
	LastName    string `salesforce:"litify_pm__Last_Name__c"`
	ClientName  string `salesforce:"Client_Name__c"`
	CaseType    struct {
		Name string `salesforce:"Name"`
	} `salesforce:"litify_pm__Case_Type__r"`
	RetainerSignedDate string `salesforce:"Retainer_Signed_Date__c"`
	UTMCampaign        string `salesforce:"litify_pm__UTM_Campaign__c"`
	MatterID           string `salesforce:"litify_pm__Matter__c"`
	CompanionID        string `salesforce:"litify_ext__Companion__c"`
	IsDropped          bool   `salesforce:"isDroppedatIntake__c"`
}

const intakeFields = `Id, Name, CreatedDate,
	litify_pm__Status__c,
	litify_pm__Display_Name__c,
	litify_pm__First_Name__c,
	litify_pm__Last_Name__c,
	Client_Name__c,
	litify_pm__Case_Type__r.Name,
	Retainer_Signed_Date__c,
	litify_pm__UTM_Campaign__c,
	litify_pm__Matter__c,
	litify_ext__Companion__c,
	isDroppedatIntake__c`

// FetchDetailedLeads runs two queries and merges them: intakes CREATED in
// the window (lead volume) and intakes whose retainer was SIGNED in the
// window (conversions). Conversions whose creation predates the window are
// marked FromPreviousPeriod so the aggregator counts them toward retainers
// but not leads.
func (c *sfClient) FetchDetailedLeads(ctx context.Context, startDate, endDate string, limit int, filters model.ExclusionFilters) ([]model.IntakeRecord, error) {
	if c.sf == nil {
		return nil, eris.New("litify: not connected")
	}
	if limit <= 0 {
		limit = 1000
	}

	startUTC, endUTC, err := c.utcBounds(startDate, endDate)
	if err != nil {
		return nil, err
	}

	createdQuery := fmt.Sprintf(`SELECT %s
		FROM litify_pm__Intake__c
		WHERE litify_pm__UTM_Campaign__c != null
		AND CreatedDate >= %s
		AND CreatedDate <= %s
		ORDER BY CreatedDate DESC
		LIMIT %d`,
		intakeFields, startUTC, endUTC, limit)

	convertedQuery := fmt.Sprintf(`SELECT %s
		FROM litify_pm__Intake__c
		WHERE litify_pm__UTM_Campaign__c != null
		AND Retainer_Signed_Date__c >= %s
		AND Retainer_Signed_Date__c <= %s
		ORDER BY Retainer_Signed_Date__c DESC
		LIMIT %d`,
		intakeFields, startDate, endDate, limit)

	created, err := c.query(ctx, createdQuery)
	if err != nil {
		return nil, eris.Wrap(err, "litify: query created intakes")
	}
	converted, err := c.query(ctx, convertedQuery)
	if err != nil {
		return nil, eris.Wrap(err, "litify: query converted intakes")
	}

	createdIDs := make(map[string]struct{}, len(created))
	for _, r := range created {
		createdIDs[r.ID] = struct{}{}
	}

	var fromPrevious int
	records := make([]model.IntakeRecord, 0, len(created)+len(converted))
	for _, r := range created {
		if rec, ok := c.normalize(r, false, filters); ok {
			records = append(records, rec)
		}
	}
	for _, r := range converted {
		if _, seen := createdIDs[r.ID]; seen {
			continue
		}
		if rec, ok := c.normalize(r, true, filters); ok {
			records = append(records, rec)
			fromPrevious++
		}
	}

	zap.L().Info("fetched litify intakes",
		zap.String("start", startDate),
		zap.String("end", endDate),
		zap.Int("total", len(records)),
		zap.Int("from_previous_period", fromPrevious))
	return records, nil
}

func (c *sfClient) query(ctx context.Context, soql string) ([]intakeRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "litify: rate limit")
	}
	var records []intakeRecord
	if err := c.sf.Query(soql, &records); err != nil {
		return nil, eris.Wrap(err, "litify: soql")
	}
	return records, nil
}

// normalize converts a SOQL row into an IntakeRecord, applying the
// conversion predicate and the exclusion filters. The second return is false
// when the record is filtered out entirely.
func (c *sfClient) normalize(r intakeRecord, fromPrevious bool, filters model.ExclusionFilters) (model.IntakeRecord, bool) {
	caseType := r.CaseType.Name

	isExcluded := false
	switch caseType {
	case model.CaseTypeSpam:
		isExcluded = true
		if !filters.IncludeSpam {
			return model.IntakeRecord{}, false
		}
	case model.CaseTypeAbandoned:
		isExcluded = true
		if !filters.IncludeAbandoned {
			return model.IntakeRecord{}, false
		}
	case model.CaseTypeDuplicate:
		isExcluded = true
		if !filters.IncludeDuplicate {
			return model.IntakeRecord{}, false
		}
	}

	inPractice := false
	for _, t := range model.InPracticeCaseTypes {
		if t == caseType {
			inPractice = true
			break
		}
	}

	isConverted := r.RetainerSignedDate != "" &&
		!notConvertedStatuses[r.Status] &&
		!r.IsDropped &&
		strings.ToLower(r.DisplayName) != "test"

	utm := r.UTMCampaign
	if utm == "" {
		utm = "-"
	}

	return model.IntakeRecord{
		ID:                 r.ID,
		ClientName:         clientName(r),
		Status:             statusOrUnknown(r.Status),
		CaseType:           caseTypeOrNotSet(caseType),
		MatterID:           r.MatterID,
		CompanionID:        r.CompanionID,
		UTMCampaign:        utm,
		CreatedDate:        r.CreatedDate,
		RetainerSignedDate: r.RetainerSignedDate,
		RecordURL:          c.recordURL(r.ID),
		InPractice:         inPractice,
		IsConverted:        isConverted,
		IsPending:          pendingStatuses[r.Status],
		IsExcludedType:     isExcluded,
		IsDropped:          r.IsDropped,
		FromPreviousPeriod: fromPrevious,
	}, true
}

// utcBounds expands [startDate, endDate] to [00:00:00, 23:59:59] in the
// reporting timezone and formats them as SOQL UTC datetime literals.
func (c *sfClient) utcBounds(startDate, endDate string) (string, string, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, c.loc)
	if err != nil {
		return "", "", eris.Wrapf(err, "litify: parse start date %q", startDate)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, c.loc)
	if err != nil {
		return "", "", eris.Wrapf(err, "litify: parse end date %q", endDate)
	}
	end = end.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	const soqlTime = "2006-01-02T15:04:05Z"
	return start.UTC().Format(soqlTime), end.UTC().Format(soqlTime), nil
}

func (c *sfClient) recordURL(id string) string {
	instance := "sweetjames"
	if strings.Contains(c.instanceURL, ".my.salesforce.com") {
		if rest := strings.SplitN(c.instanceURL, "//", 2); len(rest) == 2 {
			instance = strings.SplitN(rest[1], ".", 2)[0]
		}
	}
	return fmt.Sprintf("https://%s.lightning.force.com/lightning/r/litify_pm__Intake__c/%s/view", instance, id)
}

func clientName(r intakeRecord) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	if r.ClientName != "" {
		return r.ClientName
	}
	if full := strings.TrimSpace(r.FirstName + " " + r.LastName); full != "" {
		return full
	}
	if r.Name != "" {
		return r.Name
	}
	return "Unknown"
}

func statusOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func caseTypeOrNotSet(s string) string {
	if s == "" {
		return "Not Set"
	}
	return s
}
