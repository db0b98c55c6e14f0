package main

import (
	"context"
	"time"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/demo"
	"github.com/sweet-james/adreport/internal/fetch"
	"github.com/sweet-james/adreport/internal/report"
	"github.com/sweet-james/adreport/internal/reportcache"
	"github.com/sweet-james/adreport/internal/resilience"
	"github.com/sweet-james/adreport/internal/store"
	"github.com/sweet-james/adreport/pkg/googleads"
	"github.com/sweet-james/adreport/pkg/litify"
)

// appEnv bundles the wired runtime dependencies for a command.
type appEnv struct {
	Engine *report.Engine
	Store  store.Store
}

// Close releases the environment's resources.
func (e *appEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("closing store failed", zap.Error(err))
		}
	}
}

// initEnv builds the store, data sources and report engine from config.
// Demo mode (or missing credentials for both sources) serves deterministic
// sample data.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	sources, err := buildSources()
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}
	sources.Timeout = time.Duration(cfg.Reporting.FetchTimeoutSecs) * time.Second
	sources.LeadLimit = cfg.Reporting.LeadLimit

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrapf(err, "load timezone %q", cfg.Reporting.Timezone)
	}

	engine := report.New(report.Deps{
		Sources: sources,
		Store:   st,
		Cache: reportcache.New(
			reportcache.WithTTL(time.Duration(cfg.Cache.TTLMinutes)*time.Minute),
			reportcache.WithMaxSize(cfg.Cache.MaxSize),
		),
		Location: loc,
	})
	engine.LoadTaxonomy(ctx)

	return &appEnv{Engine: engine, Store: st}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func buildSources() (fetch.Sources, error) {
	if cfg.Reporting.Demo {
		zap.L().Info("demo mode: serving sample data")
		src := demo.New()
		return fetch.Sources{Ads: src, Leads: src}, nil
	}

	var sources fetch.Sources

	if cfg.GoogleAds.Configured() {
		sources.Ads = googleads.NewClient(googleads.Config{
			DeveloperToken:  cfg.GoogleAds.DeveloperToken,
			ClientID:        cfg.GoogleAds.ClientID,
			ClientSecret:    cfg.GoogleAds.ClientSecret,
			RefreshToken:    cfg.GoogleAds.RefreshToken,
			LoginCustomerID: cfg.GoogleAds.LoginCustomerID,
			CustomerIDs:     cfg.GoogleAds.CustomerIDs,
		}, googleads.WithRateLimit(cfg.GoogleAds.RateLimit))
	} else {
		zap.L().Warn("google ads credentials missing, spend reporting disabled")
	}

	if cfg.Litify.Configured() {
		sf, err := gosf.Init(gosf.Creds{
			Domain:         cfg.Litify.Domain,
			Username:       cfg.Litify.Username,
			Password:       cfg.Litify.Password,
			SecurityToken:  cfg.Litify.SecurityToken,
			ConsumerKey:    cfg.Litify.ConsumerKey,
			ConsumerSecret: cfg.Litify.ConsumerSecret,
		})
		if err != nil {
			return sources, eris.Wrap(err, "litify auth")
		}
		loc, err := time.LoadLocation(cfg.Reporting.Timezone)
		if err != nil {
			return sources, eris.Wrapf(err, "load timezone %q", cfg.Reporting.Timezone)
		}
		sources.Leads = litify.NewClient(sf,
			litify.WithRateLimit(cfg.Litify.RateLimit),
			litify.WithTimezone(loc),
			litify.WithInstanceURL(cfg.Litify.Domain),
		)
	} else {
		zap.L().Warn("litify credentials missing, lead reporting disabled")
	}

	if sources.Ads == nil && sources.Leads == nil {
		zap.L().Warn("no live sources configured, falling back to demo data")
		src := demo.New()
		return fetch.Sources{Ads: src, Leads: src}, nil
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("upstream circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	sources.Breakers = resilience.NewServiceBreakers(breakerCfg)
	return sources, nil
}
