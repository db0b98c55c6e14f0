// Package store persists the runtime-editable reporting configuration
// (campaign mappings, UTM mappings, forecast settings) and a per-day metrics
// cache, with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/sweet-james/adreport/internal/model"
)

// Document keys for the single-document tables.
const (
	DocCampaignMappings = "campaign_mappings"
	DocForecastSettings = "forecast_settings"
)

// Store defines the persistence interface for the reporting backend.
type Store interface {
	// Campaign mappings: bucket name -> campaign name list, stored as one
	// replaceable document.
	GetCampaignMappings(ctx context.Context) (map[string][]string, error)
	SaveCampaignMappings(ctx context.Context, m map[string][]string) error

	// UTM mappings: utm token -> bucket name, row per key.
	GetUTMMappings(ctx context.Context) (map[string]string, error)
	SetUTMMapping(ctx context.Context, utm, bucket string) error
	DeleteUTMMapping(ctx context.Context, utm string) (bool, error)
	ReplaceUTMMappings(ctx context.Context, m map[string]string) error

	// Forecast settings document.
	GetForecastSettings(ctx context.Context) (*model.ForecastSettings, error)
	SaveForecastSettings(ctx context.Context, s *model.ForecastSettings) error

	// Day cache: one JSON payload per (date, variant). A zero ttl stores
	// the entry without expiry, which is how completed past days are kept
	// from ever going stale.
	GetCachedDay(ctx context.Context, date, variant string) ([]byte, error)
	SetCachedDay(ctx context.Context, date, variant string, payload []byte, ttl time.Duration) error
	DeleteExpiredDays(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
