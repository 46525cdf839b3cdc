// Package app assembles the command pipeline from configuration. Both the
// HTTP server and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/browser"
	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/config"
	"github.com/themobileprof/commandbot/internal/extract"
	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/metrics"
	"github.com/themobileprof/commandbot/internal/router"
	"github.com/themobileprof/commandbot/internal/skills"
	"github.com/themobileprof/commandbot/internal/speech"
	"github.com/themobileprof/commandbot/internal/store"
	"github.com/themobileprof/commandbot/pkg/duckduckgo"
	"github.com/themobileprof/commandbot/pkg/newsapi"
	"github.com/themobileprof/commandbot/pkg/openweather"
	"github.com/themobileprof/commandbot/pkg/wikipedia"
	"github.com/themobileprof/commandbot/pkg/wolfram"
)

// Options tweak assembly for a particular entry point.
type Options struct {
	// SkipStore ignores DATABASE_URL.
	SkipStore bool
}

// App holds the long-lived handles.
type App struct {
	Router   *router.Router
	Store    *store.Store
	Registry *prometheus.Registry

	speaker router.SpeakerInterface
	speech  *speech.Dispatcher
}

// New builds the pipeline. Collaborator clients are created once and live
// for the whole process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	logger = logging.OrNop(logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(reg)
	intents := make([]string, len(classifier.Intents))
	for i, in := range classifier.Intents {
		intents[i] = string(in)
	}
	m.InitSegments(intents...)

	a := &App{Registry: reg}

	svc := cfg.Services
	skillCfg := skills.Config{
		Encyclopedia:    wikipedia.NewClient(wikipedia.Config{Timeout: svc.HTTPTimeout}),
		WebSearch:       duckduckgo.NewClient(duckduckgo.Config{Timeout: svc.SearchTimeout}),
		Headless:        cfg.Headless,
		Location:        loc,
		Timeout:         svc.HTTPTimeout,
		SearchTimeout:   svc.SearchTimeout,
		LookupCacheSize: svc.LookupCacheSize,
		LookupCacheTTL:  svc.LookupCacheTTL,
		BreakerFailures: svc.BreakerFailures,
		BreakerReset:    svc.BreakerReset,
		Metrics:         m,
		Logger:          logger,
	}
	// Keyless services stay nil and answer with their failure message
	// without a network round trip.
	if svc.WolframAppID != "" {
		skillCfg.Math = wolfram.NewClient(wolfram.Config{AppID: svc.WolframAppID, Timeout: svc.HTTPTimeout})
	} else {
		logger.Warn("WOLFRAM_APP_ID not set, math fallback disabled")
	}
	if svc.OpenWeatherKey != "" {
		skillCfg.Weather = openweather.NewClient(openweather.Config{APIKey: svc.OpenWeatherKey, Timeout: svc.HTTPTimeout})
	} else {
		logger.Warn("OPENWEATHER_KEY not set, weather disabled")
	}
	if svc.NewsAPIKey != "" {
		skillCfg.News = newsapi.NewClient(newsapi.Config{APIKey: svc.NewsAPIKey, Timeout: svc.HTTPTimeout})
	} else {
		logger.Warn("NEWS_API_KEY not set, news disabled")
	}
	if !cfg.Headless {
		skillCfg.Browser = browser.NewLauncher()
	}

	a.speaker = a.startSpeech(cfg, logger)
	routerOpts := router.Options{
		Speaker: a.speaker,
		Metrics: m,
		Logger:  logger,
	}

	if cfg.Database.URL != "" && !opts.SkipStore {
		st, err := store.Open(ctx, store.Config{URL: cfg.Database.URL, MaxConnections: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			a.Close()
			return nil, err
		}
		a.Store = st
		routerOpts.Store = st
		logger.Info("interaction log enabled")
	}

	cities := extract.NewGazetteer(cfg.Cities)
	a.Router = router.New(classifier.NewClassifier(cities), skills.New(skillCfg), routerOpts)
	return a, nil
}

// startSpeech returns speech.Silent when playback is disabled or unavailable.
func (a *App) startSpeech(cfg *config.Config, logger *zap.Logger) router.SpeakerInterface {
	if cfg.Headless {
		logger.Info("headless mode: speech playback and browser launch disabled")
		return speech.Silent{}
	}
	if cfg.Speech.Command == "" {
		return speech.Silent{}
	}
	if _, err := exec.LookPath(cfg.Speech.Command); err != nil {
		logger.Warn("speech synthesizer not found, playback disabled",
			zap.String("command", cfg.Speech.Command),
		)
		return speech.Silent{}
	}
	a.speech = speech.NewDispatcher(speech.NewCommandSpeaker(cfg.Speech.Command), cfg.Speech.Queue, logger)
	return a.speech
}

// Close flushes the interaction log, then releases background workers and
// connections.
func (a *App) Close() {
	if a.Router != nil {
		a.Router.Close()
	}
	if a.speech != nil {
		a.speech.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
