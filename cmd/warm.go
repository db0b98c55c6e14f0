package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/period"
	"github.com/sweet-james/adreport/internal/report"
)

var (
	warmStart string
	warmEnd   string
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-fill the day cache so daily trend views load instantly",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		start, end := warmStart, warmEnd
		if start == "" {
			// Default to the current month.
			w := period.MonthWindow(time.Now())
			start, end = w.StartDate(), w.EndDate()
		}
		if end == "" {
			end = start
		}

		began := time.Now()
		warmed, err := env.Engine.WarmDays(cmd.Context(), report.Query{}, start, end)
		if err != nil {
			return err
		}

		pruned, err := env.Engine.PruneDayCache(cmd.Context())
		if err != nil {
			zap.L().Warn("pruning expired day cache failed", zap.Error(err))
		}

		zap.L().Info("day cache warmed",
			zap.String("start", start),
			zap.String("end", end),
			zap.Int("days", warmed),
			zap.Int("pruned", pruned),
			zap.Duration("took", time.Since(began)))
		return nil
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmStart, "start", "", "first day to warm (YYYY-MM-DD, default current month)")
	warmCmd.Flags().StringVar(&warmEnd, "end", "", "last day to warm (YYYY-MM-DD)")
	rootCmd.AddCommand(warmCmd)
}
