package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/export"
	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/report"
)

var (
	reportPeriod    string
	reportStart     string
	reportEnd       string
	reportXLSX      string
	reportInclSpam  bool
	reportInclAband bool
	reportInclDup   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a bucket report and print it as JSON or write an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		d, err := env.Engine.Dashboard(cmd.Context(), report.Query{
			Period:    reportPeriod,
			StartDate: reportStart,
			EndDate:   reportEnd,
			Filters: model.ExclusionFilters{
				IncludeSpam:      reportInclSpam,
				IncludeAbandoned: reportInclAband,
				IncludeDuplicate: reportInclDup,
			},
		})
		if err != nil {
			return err
		}

		if reportXLSX != "" {
			if err := export.Save(d, reportXLSX); err != nil {
				return err
			}
			zap.L().Info("workbook written",
				zap.String("path", reportXLSX),
				zap.String("start", d.StartDate),
				zap.String("end", d.EndDate))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "month", "reporting period (today, yesterday, week, month, mtd, custom)")
	reportCmd.Flags().StringVar(&reportStart, "start", "", "custom period start (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "custom period end (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "write an Excel workbook to this path instead of JSON")
	reportCmd.Flags().BoolVar(&reportInclSpam, "include-spam", false, "include spam intakes")
	reportCmd.Flags().BoolVar(&reportInclAband, "include-abandoned", false, "include abandoned intakes")
	reportCmd.Flags().BoolVar(&reportInclDup, "include-duplicate", false, "include duplicate intakes")
	rootCmd.AddCommand(reportCmd)
}
