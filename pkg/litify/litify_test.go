package litify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweet-james/adreport/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) (Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)

	sf, err := gosf.Init(gosf.Creds{
		AccessToken: "test-token",
		Domain:      ts.URL,
	},
		gosf.WithValidateAuthentication(false),
		gosf.WithRoundTripper(http.DefaultTransport),
	)
	require.NoError(t, err)
	require.NotNil(t, sf)

	return NewClient(sf, opts...), ts
}

func sfRecord(fields map[string]any) map[string]any {
	rec := map[string]any{
		"attributes": map[string]any{"type": "litify_pm__Intake__c"},
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

func soqlResponse(records ...map[string]any) map[string]any {
	return map[string]any{
		"totalSize": len(records),
		"done":      true,
		"records":   records,
	}
}

// queryHandler answers the created-date query with created and the
// retainer-date query with converted.
func queryHandler(t *testing.T, created, converted []map[string]any) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(q, "CreatedDate >="):
			_ = json.NewEncoder(w).Encode(soqlResponse(created...))
		case strings.Contains(q, "Retainer_Signed_Date__c >="):
			_ = json.NewEncoder(w).Encode(soqlResponse(converted...))
		default:
			t.Errorf("unexpected SOQL: %s", q)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func TestFetchDetailedLeads_MergesConvertedFromPreviousPeriod(t *testing.T) {
	created := []map[string]any{
		sfRecord(map[string]any{
			"Id":                         "a01",
			"Name":                       "I-0001",
			"litify_pm__Status__c":       "Working",
			"litify_pm__UTM_Campaign__c": "ca-brand",
			"litify_pm__Case_Type__r":    map[string]any{"Name": "Automobile Accident"},
		}),
		sfRecord(map[string]any{
			"Id":                         "a02",
			"litify_pm__Status__c":       "Signed",
			"Retainer_Signed_Date__c":    "2026-03-10",
			"litify_pm__UTM_Campaign__c": "ca-brand",
			"litify_pm__Case_Type__r":    map[string]any{"Name": "Motorcycle"},
		}),
	}
	converted := []map[string]any{
		// a02 also signed in window; must not be duplicated.
		sfRecord(map[string]any{
			"Id":                      "a02",
			"litify_pm__Status__c":    "Signed",
			"Retainer_Signed_Date__c": "2026-03-10",
		}),
		// Created before the window, signed inside it.
		sfRecord(map[string]any{
			"Id":                         "a03",
			"litify_pm__Status__c":       "Retained",
			"Retainer_Signed_Date__c":    "2026-03-12",
			"litify_pm__UTM_Campaign__c": "az-brand",
			"litify_pm__Case_Type__r":    map[string]any{"Name": "Pedestrian"},
		}),
	}

	client, ts := newTestClient(t, queryHandler(t, created, converted))
	defer ts.Close()

	records, err := client.FetchDetailedLeads(context.Background(), "2026-03-01", "2026-03-31", 100, model.ExclusionFilters{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	byID := make(map[string]model.IntakeRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	assert.False(t, byID["a01"].FromPreviousPeriod)
	assert.False(t, byID["a01"].IsConverted)
	assert.True(t, byID["a01"].InPractice)

	assert.False(t, byID["a02"].FromPreviousPeriod)
	assert.True(t, byID["a02"].IsConverted)

	prev := byID["a03"]
	assert.True(t, prev.FromPreviousPeriod)
	assert.True(t, prev.IsConverted)
	assert.False(t, prev.CreatedInPeriod())
}

func TestFetchDetailedLeads_ConversionPredicate(t *testing.T) {
	created := []map[string]any{
		// A signed retainer date converts.
		sfRecord(map[string]any{"Id": "s1", "litify_pm__Status__c": "Signed", "Retainer_Signed_Date__c": "2026-03-05"}),
		sfRecord(map[string]any{"Id": "s2", "litify_pm__Status__c": "Working", "Retainer_Signed_Date__c": "2026-03-05"}),
		// Excluded status always wins.
		sfRecord(map[string]any{"Id": "s3", "litify_pm__Status__c": "Converted DAI", "Retainer_Signed_Date__c": "2026-03-05"}),
		sfRecord(map[string]any{"Id": "s4", "litify_pm__Status__c": "Referred Out"}),
		// Dropped at intake.
		sfRecord(map[string]any{"Id": "s5", "litify_pm__Status__c": "Signed", "Retainer_Signed_Date__c": "2026-03-05", "isDroppedatIntake__c": true}),
		// Test records never convert, case-insensitively.
		sfRecord(map[string]any{"Id": "s6", "litify_pm__Status__c": "Signed", "Retainer_Signed_Date__c": "2026-03-05", "litify_pm__Display_Name__c": "TEST"}),
		// In-flight retainers are pending, not converted, until the date
		// lands.
		sfRecord(map[string]any{"Id": "s7", "litify_pm__Status__c": "Retainer Sent"}),
		sfRecord(map[string]any{"Id": "s8", "litify_pm__Status__c": "Retained"}),
		sfRecord(map[string]any{"Id": "s9", "litify_pm__Status__c": "Pending Retainer"}),
	}

	client, ts := newTestClient(t, queryHandler(t, created, nil))
	defer ts.Close()

	records, err := client.FetchDetailedLeads(context.Background(), "2026-03-01", "2026-03-31", 100, model.ExclusionFilters{})
	require.NoError(t, err)
	require.Len(t, records, 9)

	byID := make(map[string]model.IntakeRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	assert.True(t, byID["s1"].IsConverted)
	assert.True(t, byID["s2"].IsConverted)
	assert.False(t, byID["s3"].IsConverted)
	assert.False(t, byID["s4"].IsConverted)
	assert.False(t, byID["s5"].IsConverted)
	assert.True(t, byID["s5"].IsDropped)
	assert.False(t, byID["s6"].IsConverted)
	for _, id := range []string{"s7", "s8", "s9"} {
		assert.False(t, byID[id].IsConverted, id)
		assert.True(t, byID[id].IsPending, id)
	}
}

func TestFetchDetailedLeads_ExclusionFilters(t *testing.T) {
	created := []map[string]any{
		sfRecord(map[string]any{"Id": "e1", "litify_pm__Case_Type__r": map[string]any{"Name": "Spam"}}),
		sfRecord(map[string]any{"Id": "e2", "litify_pm__Case_Type__r": map[string]any{"Name": "Abandoned"}}),
		sfRecord(map[string]any{"Id": "e3", "litify_pm__Case_Type__r": map[string]any{"Name": "Duplicate"}}),
		sfRecord(map[string]any{"Id": "e4", "litify_pm__Case_Type__r": map[string]any{"Name": "Bicycle"}}),
	}

	t.Run("all excluded by default", func(t *testing.T) {
		client, ts := newTestClient(t, queryHandler(t, created, nil))
		defer ts.Close()

		records, err := client.FetchDetailedLeads(context.Background(), "2026-03-01", "2026-03-31", 100, model.ExclusionFilters{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "e4", records[0].ID)
	})

	t.Run("include flags pass records through flagged", func(t *testing.T) {
		client, ts := newTestClient(t, queryHandler(t, created, nil))
		defer ts.Close()

		records, err := client.FetchDetailedLeads(context.Background(), "2026-03-01", "2026-03-31", 100, model.ExclusionFilters{
			IncludeSpam:      true,
			IncludeAbandoned: true,
			IncludeDuplicate: true,
		})
		require.NoError(t, err)
		require.Len(t, records, 4)

		byID := make(map[string]model.IntakeRecord, len(records))
		for _, r := range records {
			byID[r.ID] = r
		}
		assert.True(t, byID["e1"].IsExcludedType)
		assert.True(t, byID["e2"].IsExcludedType)
		assert.True(t, byID["e3"].IsExcludedType)
		assert.False(t, byID["e4"].IsExcludedType)
	})
}

func TestFetchDetailedLeads_QueryWindows(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	var createdQuery, convertedQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.Contains(q, "CreatedDate >=") {
			createdQuery = q
		} else {
			convertedQuery = q
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(soqlResponse())
	})

	client, ts := newTestClient(t, handler, WithTimezone(loc))
	defer ts.Close()

	_, err = client.FetchDetailedLeads(context.Background(), "2026-01-05", "2026-01-05", 50, model.ExclusionFilters{})
	require.NoError(t, err)

	// Pacific midnight is 08:00 UTC in January.
	assert.Contains(t, createdQuery, "CreatedDate >= 2026-01-05T08:00:00Z")
	assert.Contains(t, createdQuery, "CreatedDate <= 2026-01-06T07:59:59Z")
	assert.Contains(t, createdQuery, "litify_pm__UTM_Campaign__c != null")
	assert.Contains(t, createdQuery, "LIMIT 50")

	// The retainer date field is a plain date, no timezone expansion.
	assert.Contains(t, convertedQuery, "Retainer_Signed_Date__c >= 2026-01-05")
	assert.Contains(t, convertedQuery, "Retainer_Signed_Date__c <= 2026-01-05")
}

func TestFetchDetailedLeads_BadDates(t *testing.T) {
	client, ts := newTestClient(t, queryHandler(t, nil, nil))
	defer ts.Close()

	_, err := client.FetchDetailedLeads(context.Background(), "03/01/2026", "2026-03-31", 100, model.ExclusionFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse start date")
}

func TestFetchDetailedLeads_NotConnected(t *testing.T) {
	client := NewClient(nil)
	assert.False(t, client.Connected())

	_, err := client.FetchDetailedLeads(context.Background(), "2026-03-01", "2026-03-31", 100, model.ExclusionFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClientNameFallback(t *testing.T) {
	tests := []struct {
		name string
		rec  intakeRecord
		want string
	}{
		{"display name wins", intakeRecord{DisplayName: "Jane Roe", ClientName: "other"}, "Jane Roe"},
		{"client name second", intakeRecord{ClientName: "Jane Roe", FirstName: "J"}, "Jane Roe"},
		{"first and last", intakeRecord{FirstName: "Jane", LastName: "Roe"}, "Jane Roe"},
		{"last only", intakeRecord{LastName: "Roe"}, "Roe"},
		{"record name", intakeRecord{Name: "I-0042"}, "I-0042"},
		{"unknown", intakeRecord{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clientName(tt.rec))
		})
	}
}

func TestRecordURL(t *testing.T) {
	c := &sfClient{instanceURL: "https://acme.my.salesforce.com"}
	assert.Equal(t,
		"https://acme.lightning.force.com/lightning/r/litify_pm__Intake__c/a01/view",
		c.recordURL("a01"))

	// Unknown instance shape falls back to the firm default.
	c = &sfClient{}
	assert.Contains(t, c.recordURL("a01"), "https://sweetjames.lightning.force.com/")
}

func TestNormalizeDefaults(t *testing.T) {
	c := &sfClient{}
	rec, ok := c.normalize(intakeRecord{ID: "x1"}, false, model.ExclusionFilters{})
	require.True(t, ok)
	assert.Equal(t, "Unknown", rec.ClientName)
	assert.Equal(t, "Unknown", rec.Status)
	assert.Equal(t, "Not Set", rec.CaseType)
	assert.Equal(t, "-", rec.UTMCampaign)
	assert.False(t, rec.InPractice)
}
