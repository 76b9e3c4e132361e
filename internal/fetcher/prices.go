package fetcher

import (
	"context"
	"fmt"

	"MarketScout/internal/cache"
	"MarketScout/internal/model"
	"MarketScout/internal/symbols"
)

// PriceFetcher returns adjusted OHLCV history, cached per symbol and interval.
type PriceFetcher struct {
	base
}

func NewPriceFetcher(opts Options) *PriceFetcher {
	return &PriceFetcher{base: newBase(opts, "prices")}
}

func emptyPrices() *model.Table {
	t := model.NewTable("Date", model.PriceColumns...)
	t.IndexKind = model.IndexDate
	return t
}

// Get returns the full price history of symbol at interval, or an empty table.
func (f *PriceFetcher) Get(ctx context.Context, symbol, interval string) *model.Table {
	iv, err := model.ParseInterval(interval)
	if err != nil {
		f.log.Error().Err(err).Str("symbol", symbol).Msg("invalid price interval")
		return emptyPrices()
	}
	return f.get(ctx, symbol, iv)
}

func (f *PriceFetcher) get(ctx context.Context, symbol string, iv model.Interval) *model.Table {
	key := cache.Key{Symbol: symbol, Kind: cache.KindPrice, Param: string(iv)}
	t, err := f.opts.Cache.LoadOrFetch(ctx, key, func(ctx context.Context) (*model.Table, error) {
		raw, err := paced(ctx, f.opts.Pacer, func(ctx context.Context) (*model.Table, error) {
			return f.opts.Provider.FetchPrices(ctx, symbol, iv)
		})
		if err != nil {
			return nil, err
		}
		return normalizePrices(raw)
	})
	if err != nil {
		f.recordFailure(symbol, string(cache.KindPrice), string(iv), err)
		return emptyPrices()
	}
	return t
}

// Batch fetches every symbol in order and returns the non-empty results.
func (f *PriceFetcher) Batch(ctx context.Context, syms symbols.Set, interval string) map[string]*model.Table {
	out := make(map[string]*model.Table, len(syms))
	if len(syms) == 0 {
		f.log.Warn().Err(model.ErrEmptyInput).Msg("price batch skipped")
		return out
	}
	iv, err := model.ParseInterval(interval)
	if err != nil {
		f.log.Error().Err(err).Int("symbols", len(syms)).Msg("invalid price interval")
		return out
	}
	for _, sym := range syms {
		if ctx.Err() != nil {
			f.log.Warn().Err(ctx.Err()).Msg("price batch interrupted")
			break
		}
		if t := f.get(ctx, sym, iv); !t.Empty() {
			out[sym] = t
		}
	}
	f.log.Info().Int("requested", len(syms)).Int("fetched", len(out)).Str("interval", string(iv)).Msg("price batch done")
	return out
}

// normalizePrices checks the provider layout and applies the cached column names.
func normalizePrices(raw *model.Table) (*model.Table, error) {
	if raw == nil || raw.Len() == 0 {
		return emptyPrices(), nil
	}
	if len(raw.Columns) != len(model.PriceColumns) {
		return nil, fmt.Errorf("%w: got %d price columns %v, want %d",
			model.ErrUnexpectedColumns, len(raw.Columns), raw.Columns, len(model.PriceColumns))
	}
	if err := raw.RenameColumns(model.PriceColumns); err != nil {
		return nil, err
	}
	raw.IndexName = "Date"
	raw.IndexKind = model.IndexDate
	return raw, nil
}
