package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/report"
)

func sampleDashboard() *report.Dashboard {
	return &report.Dashboard{
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
		Summary: model.Summary{
			TotalSpend:     6000,
			TotalLeads:     3,
			TotalCases:     1,
			TotalRetainers: 1,
			AvgCPL:         2000,
			Buckets: []model.Bucket{
				{Name: "California Brand", State: "CA", Cost: 5000, Leads: 2, Retainers: 1, TotalRetainers: 1, CostPerLead: 2500},
				{Name: "Arizona Brand", State: "AZ", Cost: 1000, Leads: 1},
			},
		},
		UnmappedCampaigns: []string{"Mystery Campaign"},
		UnmappedUTMs:      []string{"mystery-utm"},
	}
}

func TestWorkbookSheets(t *testing.T) {
	f, err := Workbook(sampleDashboard())
	require.NoError(t, err)

	require.Len(t, f.Sheets, 3)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Buckets", f.Sheets[1].Name)
	assert.Equal(t, "Unmapped", f.Sheets[2].Name)
}

func TestWorkbookSummarySheet(t *testing.T) {
	f, err := Workbook(sampleDashboard())
	require.NoError(t, err)

	sheet := f.Sheets[0]
	assert.Equal(t, "Period Start", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "2026-03-01", sheet.Rows[0].Cells[1].String())

	assert.Equal(t, "Total Spend", sheet.Rows[2].Cells[0].String())
	spend, err := sheet.Rows[2].Cells[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 6000, spend, 1e-9)
}

func TestWorkbookBucketSheet(t *testing.T) {
	f, err := Workbook(sampleDashboard())
	require.NoError(t, err)

	sheet := f.Sheets[1]
	// Header plus one row per bucket.
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Bucket", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "California Brand", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "CA", sheet.Rows[1].Cells[1].String())

	leads, err := sheet.Rows[1].Cells[3].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, leads)
}

func TestWorkbookUnmappedSheet(t *testing.T) {
	f, err := Workbook(sampleDashboard())
	require.NoError(t, err)

	sheet := f.Sheets[2]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "campaign", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Mystery Campaign", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "utm", sheet.Rows[2].Cells[0].String())
	assert.Equal(t, "mystery-utm", sheet.Rows[2].Cells[1].String())
}

func TestWriteAndSave(t *testing.T) {
	d := sampleDashboard()

	var buf bytes.Buffer
	require.NoError(t, Write(d, &buf))
	assert.NotZero(t, buf.Len())

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, Save(d, path))

	read, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, read.Sheets, 3)
	assert.Equal(t, "California Brand", read.Sheets[1].Rows[1].Cells[0].String())
}
