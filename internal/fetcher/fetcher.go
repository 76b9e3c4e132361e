// Package fetcher turns provider calls into cached, best-effort datasets.
//
// Every public operation degrades to an empty result plus a log line instead
// of returning an error: a failing symbol never aborts a batch.
package fetcher

import (
	"context"
	"time"

	"MarketScout/internal/cache"
	"MarketScout/internal/collector"
	"MarketScout/internal/recorder"

	"github.com/rs/zerolog"
)

// DefaultDelay is the pause before each provider request.
const DefaultDelay = 350 * time.Millisecond

// Options wires a fetcher to its collaborators. Provider is required; Cache
// is required for the price and fundamentals fetchers.
type Options struct {
	Provider collector.Provider
	Cache    *cache.Cache
	Pacer    collector.Pacer
	Recorder recorder.Recorder
	Logger   zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Pacer == nil {
		o.Pacer = collector.FixedPacer{Delay: DefaultDelay}
	}
	if o.Recorder == nil {
		o.Recorder = recorder.NewNoopRecorder()
	}
	return o
}

// base holds what every fetcher shares.
type base struct {
	opts Options
	log  zerolog.Logger
}

func newBase(opts Options, component string) base {
	opts = opts.withDefaults()
	return base{
		opts: opts,
		log:  opts.Logger.With().Str("component", component).Logger(),
	}
}

// paced waits on the pacer and then calls fn.
func paced[T any](ctx context.Context, p collector.Pacer, fn func(context.Context) (T, error)) (T, error) {
	if err := p.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

func (b base) recordFailure(symbol, dataset, param string, err error) {
	evt := &recorder.FetchFailure{
		Symbol:  symbol,
		Dataset: dataset,
		Param:   param,
		Error:   err.Error(),
	}
	if rerr := b.opts.Recorder.RecordFetchFailure(evt); rerr != nil {
		b.log.Error().Err(rerr).Str("symbol", symbol).Msg("record fetch failure")
	}
}
