// Package app assembles the pipeline from configuration.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/api"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/browser"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/clock/system"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/config"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/governor"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/id/uuid"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/logging"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/normalize"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/orchestrator"
	snaplocal "github.com/brbzalck/projeto-news-reddit-power-automate/internal/snapshot/local"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/sources"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/store"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/translate"
)

// App owns every long-lived pipeline component. Build once per process.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Server       *api.Server
}

// New wires the full pipeline from configuration.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var snapshots ingest.SnapshotStore
	if cfg.Snapshots.Enabled {
		blob, err := snaplocal.New(snaplocal.Config{BaseDir: cfg.Snapshots.BaseDir})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		snapshots = blob
	}

	browserCfg := browser.Config{
		Headless:   cfg.Browser.Headless,
		UserAgent:  cfg.Browser.UserAgent,
		NavTimeout: time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
		ProfileDir: cfg.Browser.ProfileDir,
	}
	pool := browser.NewPool(browserCfg, identitiesFromConfig(cfg), logger)

	probe := sources.NewProbe(sources.ProbeConfig{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   15 * time.Second,
	})

	adapters, err := buildAdapters(cfg, probe, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	gov := governor.New(governor.Policy{
		MaxAttempts:          cfg.Governor.MaxAttempts,
		BaseDelay:            time.Duration(cfg.Governor.BaseDelayMs) * time.Millisecond,
		MaxDelay:             time.Duration(cfg.Governor.MaxDelayMs) * time.Millisecond,
		JitterFraction:       cfg.Governor.JitterFraction,
		BlockedCooldown:      time.Duration(cfg.Governor.BlockedCooldownMs) * time.Millisecond,
		MaxSessionsPerSource: cfg.Governor.MaxSessionsPerSource,
		OriginQPS:            cfg.Governor.OriginQPS,
	}, pool, logger)

	normalizer := normalize.New(st, snapshots, cfg.DedupWindow(), logger)

	translator := translate.NewBatch(
		st,
		translate.NewGoogleClient(translate.GoogleConfig{
			Endpoint: cfg.Translator.Endpoint,
			Timeout:  time.Duration(cfg.Translator.TimeoutSeconds) * time.Second,
		}),
		cfg.Translator.BatchSize,
		cfg.Translator.TargetLanguage,
		logger,
	)

	orch := orchestrator.New(
		adapters, gov, normalizer, translator, st,
		system.New(), uuid.NewGenerator(),
		orchestrator.Options{
			RunTimeout: cfg.RunTimeout(),
			DaysBack:   cfg.Run.DaysBack,
			MaxItems:   cfg.Run.MaxItems,
		},
		logger,
	)

	server := api.NewServer(st, st, orch, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        st,
		Orchestrator: orch,
		Server:       server,
	}, nil
}

// Close releases the store and flushes logs.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("store close failed", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

func identitiesFromConfig(cfg config.Config) map[ingest.SourceID][]browser.Identity {
	identities := make(map[ingest.SourceID][]browser.Identity, len(ingest.AllSources()))
	for _, source := range ingest.AllSources() {
		sc, ok := cfg.Sources[string(source)]
		if !ok {
			continue
		}
		if len(sc.CookieFiles) == 0 {
			// Anonymous browsing still needs one profile to run under.
			identities[source] = []browser.Identity{{Name: string(source) + "-default"}}
			continue
		}
		for i, file := range sc.CookieFiles {
			identities[source] = append(identities[source], browser.Identity{
				Name:       fmt.Sprintf("%s-%d", source, i),
				CookieFile: file,
			})
		}
	}
	return identities
}

func buildAdapters(cfg config.Config, probe *sources.Probe, logger *zap.Logger) ([]ingest.SourceAdapter, error) {
	var adapters []ingest.SourceAdapter
	for _, source := range ingest.AllSources() {
		sc, ok := cfg.Sources[string(source)]
		if !ok || sc.SearchURL == "" {
			logger.Warn("source not configured, skipping", zap.String("source", string(source)))
			continue
		}
		adapter, err := sources.New(source, sources.Options{
			SearchURL:   sc.SearchURL,
			MaxItems:    sc.MaxItems,
			ScrollTimes: sc.ScrollTimes,
			ScrollPause: time.Duration(sc.ScrollPause) * time.Millisecond,
		}, sources.Deps{Probe: probe, Logger: logger})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return adapters, nil
}
