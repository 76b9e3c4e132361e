package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"MarketScout/internal/cache"
	"MarketScout/internal/collector"
	"MarketScout/internal/config"
	"MarketScout/internal/fetcher"
	"MarketScout/internal/logging"
	"MarketScout/internal/model"
	"MarketScout/internal/recorder"
	"MarketScout/internal/research"
	"MarketScout/internal/symbols"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// as a CLI application, flags are process-wide.
var (
	configPath = flag.String("config", defaultConfigPath(), "Path to the YAML config file")
	logLevel   = flag.String("log-level", "", "Override the configured log level")
)

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// app is the set of components a command runs with.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider collector.Provider
	cache    *cache.Cache
	recorder recorder.Recorder
}

func newApp() (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	c, err := cache.New(cfg.CacheDir, log)
	if err != nil {
		return nil, err
	}

	provider := collector.NewYahooProvider(
		collector.WithBaseURL(cfg.Provider.BaseURL),
		collector.WithProxy(cfg.Provider.Proxy),
		collector.WithUserAgent(cfg.Provider.UserAgent),
		collector.WithTimeout(cfg.Provider.Timeout),
		collector.WithRateLimit(cfg.Provider.RateLimit),
		collector.WithInfoTTL(cfg.Provider.InfoTTL),
	)
	log.Debug().Str("provider", provider.Name()).Str("cache", c.Dir()).Msg("components ready")

	return &app{
		cfg:      cfg,
		log:      log,
		provider: provider,
		cache:    c,
		recorder: openRecorder(cfg.Database.SQLitePath, log),
	}, nil
}

func openRecorder(path string, log zerolog.Logger) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func (a *app) close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("close recorder")
	}
}

func (a *app) fetcherOptions() fetcher.Options {
	return fetcher.Options{
		Provider: a.provider,
		Cache:    a.cache,
		Pacer:    collector.FixedPacer{Delay: a.cfg.Pacing.Delay},
		Recorder: a.recorder,
		Logger:   a.log,
	}
}

func (a *app) aggregator() (*research.Aggregator, error) {
	return research.NewAggregator(research.Options{
		Provider: a.provider,
		Dir:      a.cfg.ResearchDir,
		Pacer:    collector.JitterPacer{Min: a.cfg.Pacing.ResearchMin, Max: a.cfg.Pacing.ResearchMax},
		Recorder: a.recorder,
		Logger:   a.log,
	})
}

// symbolsFromArgs resolves command arguments, falling back to the configured
// symbols when there are none.
func (a *app) symbolsFromArgs(args []string) symbols.Set {
	if len(args) == 0 {
		return a.cfg.SymbolSource().Symbols
	}
	return symbols.FromArgs(args)
}

// withApp builds the app, runs fn and maps setup errors to a usage failure.
func withApp(fn func(a *app) subcommands.ExitStatus) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()
	return fn(a)
}

// printTable writes t as CSV, preceded by a "# title" line when title is set.
func printTable(w io.Writer, title string, t *model.Table) error {
	if title != "" {
		if _, err := fmt.Fprintf(w, "# %s\n", title); err != nil {
			return err
		}
	}
	return cache.WriteCSV(w, t)
}
