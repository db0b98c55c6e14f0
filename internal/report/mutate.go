package report

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/taxonomy"
)

func knownBucket(name string) bool {
	for _, b := range taxonomy.BucketPriority {
		if b == name {
			return true
		}
	}
	return false
}

// invalidateReports drops every cached aggregation; mapping and target
// changes affect all of them.
func (e *Engine) invalidateReports() {
	e.cache.Clear()
}

// SaveForecastSettings normalizes and persists new pacing targets, then
// drops cached projections.
func (e *Engine) SaveForecastSettings(ctx context.Context, s *model.ForecastSettings) error {
	if s == nil {
		return eris.New("report: nil forecast settings")
	}
	s.Normalize()
	if e.store != nil {
		if err := e.store.SaveForecastSettings(ctx, s); err != nil {
			return err
		}
	}
	e.cache.ClearLabel(labelPacing)
	e.cache.ClearLabel(labelProjections)
	zap.L().Info("forecast settings updated")
	return nil
}

// SetUTMMapping maps a UTM token to a bucket, persists it and applies it to
// the live taxonomy.
func (e *Engine) SetUTMMapping(ctx context.Context, utm, bucket string) error {
	if utm == "" || utm == "-" {
		return eris.Errorf("report: invalid utm token %q", utm)
	}
	if !knownBucket(bucket) {
		return eris.Errorf("report: unknown bucket %q", bucket)
	}
	if e.store != nil {
		if err := e.store.SetUTMMapping(ctx, utm, bucket); err != nil {
			return err
		}
	}
	e.tax.SetUTM(utm, bucket)
	e.invalidateReports()
	zap.L().Info("utm mapping set", zap.String("utm", utm), zap.String("bucket", bucket))
	return nil
}

// DeleteUTMMapping removes a UTM mapping. It reports whether the mapping
// existed.
func (e *Engine) DeleteUTMMapping(ctx context.Context, utm string) (bool, error) {
	existed := e.tax.DeleteUTM(utm)
	if e.store != nil {
		stored, err := e.store.DeleteUTMMapping(ctx, utm)
		if err != nil {
			return false, err
		}
		existed = existed || stored
	}
	if existed {
		e.invalidateReports()
		zap.L().Info("utm mapping deleted", zap.String("utm", utm))
	}
	return existed, nil
}

// ReplaceUTMMappings swaps the entire UTM mapping table. Unknown bucket
// names are rejected before anything is written.
func (e *Engine) ReplaceUTMMappings(ctx context.Context, m map[string]string) error {
	for utm, bucket := range m {
		if utm == "" || utm == "-" {
			return eris.Errorf("report: invalid utm token %q", utm)
		}
		if !knownBucket(bucket) {
			return eris.Errorf("report: unknown bucket %q for utm %q", bucket, utm)
		}
	}
	if e.store != nil {
		if err := e.store.ReplaceUTMMappings(ctx, m); err != nil {
			return err
		}
	}
	e.tax.ReplaceUTM(m)
	e.invalidateReports()
	zap.L().Info("utm mappings replaced", zap.Int("count", len(m)))
	return nil
}

// SaveCampaignMappings replaces the whole campaign-to-bucket mapping
// document. Unknown bucket names are rejected before anything is written.
func (e *Engine) SaveCampaignMappings(ctx context.Context, m map[string][]string) error {
	for bucket := range m {
		if !knownBucket(bucket) {
			return eris.Errorf("report: unknown bucket %q", bucket)
		}
	}
	if e.store != nil {
		if err := e.store.SaveCampaignMappings(ctx, m); err != nil {
			return err
		}
	}
	e.tax.ReplaceCampaigns(m)
	e.invalidateReports()
	zap.L().Info("campaign mappings replaced", zap.Int("buckets", len(m)))
	return nil
}
