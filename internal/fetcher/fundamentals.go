package fetcher

import (
	"context"
	"fmt"

	"MarketScout/internal/cache"
	"MarketScout/internal/model"
	"MarketScout/internal/reshape"
	"MarketScout/internal/symbols"
)

// statementOrder is the row order of the merged fundamentals table.
var statementOrder = []model.StatementKind{model.Cashflow, model.Balance, model.Income}

// FundamentalsFetcher returns merged financial statements, cached per symbol
// and frequency.
type FundamentalsFetcher struct {
	base
}

func NewFundamentalsFetcher(opts Options) *FundamentalsFetcher {
	return &FundamentalsFetcher{base: newBase(opts, "fundamentals")}
}

// Get returns the metric-by-period statements of symbol, or an empty table.
// freq must be "quarterly" or "yearly".
func (f *FundamentalsFetcher) Get(ctx context.Context, symbol, freq string) *model.Table {
	fr, err := model.ParseFrequency(freq)
	if err != nil {
		f.log.Error().Err(err).Str("symbol", symbol).Msg("invalid statement frequency")
		return model.NewTable("")
	}
	return f.get(ctx, symbol, fr)
}

func (f *FundamentalsFetcher) get(ctx context.Context, symbol string, freq model.Frequency) *model.Table {
	key := cache.Key{Symbol: symbol, Kind: cache.KindFundamentals, Param: string(freq)}
	t, err := f.opts.Cache.LoadOrFetch(ctx, key, func(ctx context.Context) (*model.Table, error) {
		return paced(ctx, f.opts.Pacer, func(ctx context.Context) (*model.Table, error) {
			return f.fetchStatements(ctx, symbol, freq)
		})
	})
	if err != nil {
		f.recordFailure(symbol, string(cache.KindFundamentals), string(freq), err)
		return model.NewTable("")
	}
	return t
}

func (f *FundamentalsFetcher) fetchStatements(ctx context.Context, symbol string, freq model.Frequency) (*model.Table, error) {
	parts := make([]*model.Table, len(statementOrder))
	for i, kind := range statementOrder {
		t, err := f.opts.Provider.FetchStatement(ctx, symbol, kind, freq)
		if err != nil {
			return nil, fmt.Errorf("%s statement: %w", kind, err)
		}
		parts[i] = t
	}
	return reshape.Statements(parts[0], parts[1], parts[2], freq)
}

// Batch fetches every symbol in order and returns the non-empty results.
func (f *FundamentalsFetcher) Batch(ctx context.Context, syms symbols.Set, freq string) map[string]*model.Table {
	out := make(map[string]*model.Table, len(syms))
	if len(syms) == 0 {
		f.log.Warn().Err(model.ErrEmptyInput).Msg("fundamentals batch skipped")
		return out
	}
	fr, err := model.ParseFrequency(freq)
	if err != nil {
		f.log.Error().Err(err).Int("symbols", len(syms)).Msg("invalid statement frequency")
		return out
	}
	for _, sym := range syms {
		if ctx.Err() != nil {
			f.log.Warn().Err(ctx.Err()).Msg("fundamentals batch interrupted")
			break
		}
		if t := f.get(ctx, sym, fr); !t.Empty() {
			out[sym] = t
		}
	}
	f.log.Info().Int("requested", len(syms)).Int("fetched", len(out)).Str("freq", string(fr)).Msg("fundamentals batch done")
	return out
}
