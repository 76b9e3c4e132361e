// Package research builds the cross-sectional comparison table: one row per
// symbol, ten fixed valuation columns.
package research

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"MarketScout/internal/cache"
	"MarketScout/internal/collector"
	"MarketScout/internal/model"
	"MarketScout/internal/recorder"
	"MarketScout/internal/symbols"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 3 * time.Second
)

// Options wires an Aggregator. Provider and Dir are required.
type Options struct {
	Provider collector.Provider
	Dir      string
	Pacer    collector.Pacer
	Recorder recorder.Recorder
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Aggregator builds research tables and keeps them under Dir.
type Aggregator struct {
	opts Options
	log  zerolog.Logger
}

// NewAggregator creates the research directory when missing.
func NewAggregator(opts Options) (*Aggregator, error) {
	if opts.Pacer == nil {
		opts.Pacer = collector.JitterPacer{Min: DefaultMinDelay, Max: DefaultMaxDelay}
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create research dir: %w", err)
	}
	return &Aggregator{
		opts: opts,
		log:  opts.Logger.With().Str("component", "research").Logger(),
	}, nil
}

// Now returns the aggregator's current time.
func (a *Aggregator) Now() time.Time { return a.opts.Now() }

// Path returns the file a build of src is stored in.
func (a *Aggregator) Path(src symbols.Source) string {
	name := src.Name
	if name == "" {
		name = a.opts.Now().Format("2006-01-02")
	}
	return filepath.Join(a.opts.Dir, name+"_research.csv")
}

func emptyResearch() *model.Table {
	return model.NewTable("symbol", model.ResearchColumns...)
}

// Build returns the research table for src. A table already stored for the
// same source name (or day) is returned as-is. An interrupted build returns
// the rows gathered so far without storing or recording them.
func (a *Aggregator) Build(ctx context.Context, src symbols.Source) *model.Table {
	path := a.Path(src)
	log := a.log.With().Str("path", path).Logger()

	t, err := cache.ReadFile(path)
	switch {
	case err == nil:
		log.Info().Int("rows", t.Len()).Msg("research table reused")
		return t
	case errors.Is(err, fs.ErrNotExist):
	default:
		log.Warn().Err(err).Msg("unreadable research table, rebuilding")
	}

	if len(src.Symbols) == 0 {
		log.Warn().Err(model.ErrEmptyInput).Msg("research skipped")
		return emptyResearch()
	}

	started := a.opts.Now()
	t = emptyResearch()
	for _, sym := range src.Symbols {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("research interrupted")
			break
		}
		if err := a.opts.Pacer.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("research interrupted")
			break
		}
		info, err := a.opts.Provider.FetchQuoteInfo(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("quote info unavailable, skipping")
			a.recordFailure(sym, err)
			continue
		}
		a.fillRow(ctx, t, sym, info)
	}
	// A partial table would be reused as final by later builds.
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Int("rows", t.Len()).Msg("research table not saved")
		return t
	}

	if err := cache.WriteFile(path, t); err != nil {
		log.Error().Err(err).Msg("write research table")
	}
	run := &recorder.ResearchRun{
		ID:         uuid.NewString(),
		Source:     src.Name,
		Path:       path,
		Symbols:    src.Symbols,
		Table:      t,
		StartedAt:  started,
		FinishedAt: a.opts.Now(),
	}
	if err := a.opts.Recorder.RecordResearch(run); err != nil {
		log.Error().Err(err).Str("run", run.ID).Msg("record research run")
	}
	log.Info().Str("run", run.ID).Int("symbols", len(src.Symbols)).Int("rows", t.Len()).Msg("research table built")
	return t
}

// fillRow computes every column of sym independently. A column that cannot
// be computed is null.
func (a *Aggregator) fillRow(ctx context.Context, t *model.Table, sym string, info model.QuoteInfo) {
	src := &lazySource{ctx: ctx, provider: a.opts.Provider, symbol: sym}
	for _, col := range model.ResearchColumns {
		v, err := computeColumn(col, info, src)
		if err != nil {
			a.log.Debug().Err(err).Str("symbol", sym).Str("column", col).Msg("research field missing")
			v = model.Null
		}
		t.Set(sym, col, v)
	}
}

func (a *Aggregator) recordFailure(symbol string, err error) {
	evt := &recorder.FetchFailure{Symbol: symbol, Dataset: "research", Error: err.Error()}
	if rerr := a.opts.Recorder.RecordFetchFailure(evt); rerr != nil {
		a.log.Error().Err(rerr).Str("symbol", symbol).Msg("record fetch failure")
	}
}
