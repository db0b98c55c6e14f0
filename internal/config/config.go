package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	GoogleAds GoogleAdsConfig `yaml:"google_ads" mapstructure:"google_ads"`
	Litify    LitifyConfig    `yaml:"litify" mapstructure:"litify"`
	Reporting ReportingConfig `yaml:"reporting" mapstructure:"reporting"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleAdsConfig holds Google Ads API credentials.
type GoogleAdsConfig struct {
	DeveloperToken  string   `yaml:"developer_token" mapstructure:"developer_token"`
	ClientID        string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret    string   `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken    string   `yaml:"refresh_token" mapstructure:"refresh_token"`
	LoginCustomerID string   `yaml:"login_customer_id" mapstructure:"login_customer_id"`
	CustomerIDs     []string `yaml:"customer_ids" mapstructure:"customer_ids"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Configured reports whether Google Ads credentials are present.
func (c GoogleAdsConfig) Configured() bool {
	return c.DeveloperToken != "" && c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// LitifyConfig holds Salesforce credentials for the Litify org.
type LitifyConfig struct {
	Domain         string  `yaml:"domain" mapstructure:"domain"`
	Username       string  `yaml:"username" mapstructure:"username"`
	Password       string  `yaml:"password" mapstructure:"password"`
	SecurityToken  string  `yaml:"security_token" mapstructure:"security_token"`
	ConsumerKey    string  `yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret string  `yaml:"consumer_secret" mapstructure:"consumer_secret"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Configured reports whether Litify credentials are present.
func (c LitifyConfig) Configured() bool {
	return c.Domain != "" && (c.ConsumerKey != "" || c.Username != "")
}

// ReportingConfig governs how reports are computed.
type ReportingConfig struct {
	// Timezone is the reporting timezone; date windows are interpreted in
	// it before conversion to UTC query bounds.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
	// LeadLimit caps how many intake records a single fetch may return.
	LeadLimit int `yaml:"lead_limit" mapstructure:"lead_limit"`
	// FetchTimeoutSecs bounds a combined spend+leads fetch.
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	// Demo serves deterministic sample data instead of live sources.
	Demo bool `yaml:"demo" mapstructure:"demo"`
}

// CacheConfig configures the in-memory report cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	MaxSize    int `yaml:"max_size" mapstructure:"max_size"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "adreport.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("google_ads.rate_limit", 5.0)
	v.SetDefault("litify.domain", "https://login.salesforce.com")
	v.SetDefault("litify.rate_limit", 5.0)
	v.SetDefault("reporting.timezone", "America/Los_Angeles")
	v.SetDefault("reporting.lead_limit", 1000)
	v.SetDefault("reporting.fetch_timeout_secs", 30)
	v.SetDefault("cache.ttl_minutes", 10)
	v.SetDefault("cache.max_size", 200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
