// Package export renders reports into Excel workbooks.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sweet-james/adreport/internal/report"
)

var bucketHeader = []string{
	"Bucket", "State", "Spend", "Leads", "In Practice", "Unqualified",
	"Cases", "Retainers", "Pending", "Total Retainers",
	"CPL", "CPA", "CPR", "In Practice %", "Conversion %",
}

// Workbook builds a bucket-report workbook from a dashboard report: a
// summary sheet, a per-bucket sheet and an unmapped-input sheet.
func Workbook(d *report.Dashboard) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, d); err != nil {
		return nil, err
	}
	if err := addBucketSheet(f, d); err != nil {
		return nil, err
	}
	if err := addUnmappedSheet(f, d); err != nil {
		return nil, err
	}
	return f, nil
}

// Write renders the workbook for d to w.
func Write(d *report.Dashboard, w io.Writer) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// Save renders the workbook for d to a file.
func Save(d *report.Dashboard, path string) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, d *report.Dashboard) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	kv := func(label string, set func(c *xlsx.Cell)) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		set(row.AddCell())
	}

	kv("Period Start", func(c *xlsx.Cell) { c.SetString(d.StartDate) })
	kv("Period End", func(c *xlsx.Cell) { c.SetString(d.EndDate) })
	kv("Total Spend", func(c *xlsx.Cell) { c.SetFloatWithFormat(d.Summary.TotalSpend, "#,##0.00") })
	kv("Total Leads", func(c *xlsx.Cell) { c.SetInt(d.Summary.TotalLeads) })
	kv("In Practice", func(c *xlsx.Cell) { c.SetInt(d.Summary.TotalInPractice) })
	kv("Unqualified", func(c *xlsx.Cell) { c.SetInt(d.Summary.TotalUnqualified) })
	kv("Cases", func(c *xlsx.Cell) { c.SetInt(d.Summary.TotalCases) })
	kv("Retainers", func(c *xlsx.Cell) { c.SetInt(d.Summary.TotalRetainers) })
	kv("Avg CPL", func(c *xlsx.Cell) { c.SetFloatWithFormat(d.Summary.AvgCPL, "#,##0.00") })
	kv("Avg CPA", func(c *xlsx.Cell) { c.SetFloatWithFormat(d.Summary.AvgCPA, "#,##0.00") })
	kv("Avg CPR", func(c *xlsx.Cell) { c.SetFloatWithFormat(d.Summary.AvgCPR, "#,##0.00") })
	kv("Conversion %", func(c *xlsx.Cell) { c.SetFloatWithFormat(d.Summary.ConversionRate, "0.00") })
	return nil
}

func addBucketSheet(f *xlsx.File, d *report.Dashboard) error {
	sheet, err := f.AddSheet("Buckets")
	if err != nil {
		return eris.Wrap(err, "export: add bucket sheet")
	}

	header := sheet.AddRow()
	for _, h := range bucketHeader {
		header.AddCell().SetString(h)
	}

	for _, b := range d.Summary.Buckets {
		row := sheet.AddRow()
		row.AddCell().SetString(b.Name)
		row.AddCell().SetString(b.State)
		row.AddCell().SetFloatWithFormat(b.Cost, "#,##0.00")
		row.AddCell().SetInt(b.Leads)
		row.AddCell().SetInt(b.InPractice)
		row.AddCell().SetInt(b.Unqualified)
		row.AddCell().SetInt(b.Cases)
		row.AddCell().SetInt(b.Retainers)
		row.AddCell().SetInt(b.PendingRetainers)
		row.AddCell().SetInt(b.TotalRetainers)
		row.AddCell().SetFloatWithFormat(b.CostPerLead, "#,##0.00")
		row.AddCell().SetFloatWithFormat(b.CPA, "#,##0.00")
		row.AddCell().SetFloatWithFormat(b.CostPerRetainer, "#,##0.00")
		row.AddCell().SetFloatWithFormat(b.InPracticePercent, "0.00")
		row.AddCell().SetFloatWithFormat(b.ConversionRate, "0.00")
	}
	return nil
}

func addUnmappedSheet(f *xlsx.File, d *report.Dashboard) error {
	sheet, err := f.AddSheet("Unmapped")
	if err != nil {
		return eris.Wrap(err, "export: add unmapped sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Kind")
	header.AddCell().SetString("Value")

	for _, name := range d.UnmappedCampaigns {
		row := sheet.AddRow()
		row.AddCell().SetString("campaign")
		row.AddCell().SetString(name)
	}
	for _, utm := range d.UnmappedUTMs {
		row := sheet.AddRow()
		row.AddCell().SetString("utm")
		row.AddCell().SetString(utm)
	}
	return nil
}
