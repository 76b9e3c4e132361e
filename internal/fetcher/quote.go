package fetcher

import (
	"context"

	"MarketScout/internal/model"
	"MarketScout/internal/symbols"
)

// quoteFields maps quote columns to provider fields and a scale factor.
var quoteFields = []struct {
	column string
	field  string
	scale  float64
}{
	{model.QuoteChange52w, "52WeekChange", 100},
	{model.QuotePrice, model.FieldCurrentPrice, 1},
	{model.QuotePSTTM, "priceToSalesTrailing12Months", 1},
	{model.QuotePETTM, "trailingPE", 1},
	{model.QuotePEFwd, "forwardPE", 1},
}

// QuoteFetcher returns current valuation metrics. Quotes are never cached.
type QuoteFetcher struct {
	base
}

func NewQuoteFetcher(opts Options) *QuoteFetcher {
	return &QuoteFetcher{base: newBase(opts, "quote")}
}

// Row returns the metrics of one symbol named by its long name. On failure
// the row has its columns but no values.
func (f *QuoteFetcher) Row(ctx context.Context, symbol string) *model.Row {
	info, err := paced(ctx, f.opts.Pacer, func(ctx context.Context) (model.QuoteInfo, error) {
		return f.opts.Provider.FetchQuoteInfo(ctx, symbol)
	})
	if err != nil {
		f.log.Warn().Err(err).Str("symbol", symbol).Msg("quote info unavailable, skipping")
		f.recordFailure(symbol, "quote", "", err)
		return model.NewRow("", model.QuoteColumns...)
	}
	row, err := quoteRow(info)
	if err != nil {
		f.log.Warn().Err(err).Str("symbol", symbol).Msg("incomplete quote info, skipping")
		return model.NewRow("", model.QuoteColumns...)
	}
	return row
}

func quoteRow(info model.QuoteInfo) (*model.Row, error) {
	name, err := info.String(model.FieldLongName)
	if err != nil {
		return nil, err
	}
	row := model.NewRow(name, model.QuoteColumns...)
	for _, q := range quoteFields {
		v, err := info.Float(q.field)
		if err != nil {
			return nil, err
		}
		row.Set(q.column, model.Number(model.Round(v*q.scale, 2)))
	}
	return row, nil
}

// Table returns one row per symbol that could be fetched, sorted ascending
// by price to sales. Rows are labelled by company name; a name seen twice
// keeps the first row.
func (f *QuoteFetcher) Table(ctx context.Context, syms symbols.Set) *model.Table {
	t := model.NewTable("name", model.QuoteColumns...)
	if len(syms) == 0 {
		f.log.Warn().Err(model.ErrEmptyInput).Msg("quote table skipped")
		return t
	}
	for _, sym := range syms {
		if ctx.Err() != nil {
			f.log.Warn().Err(ctx.Err()).Msg("quote batch interrupted")
			break
		}
		row := f.Row(ctx, sym)
		if row.Empty() {
			continue
		}
		if t.RowIndex(row.Name) >= 0 {
			f.log.Warn().Str("symbol", sym).Str("name", row.Name).Msg("duplicate company name, keeping first row")
			continue
		}
		if err := t.AppendRow(row.Name, row.Values...); err != nil {
			f.log.Error().Err(err).Str("symbol", sym).Msg("append quote row")
		}
	}
	t.SortByColumn(model.QuotePSTTM)
	return t
}

// Get returns Row as a one-row table for a single symbol and Table otherwise.
func (f *QuoteFetcher) Get(ctx context.Context, syms symbols.Set) *model.Table {
	switch len(syms) {
	case 0:
		f.log.Warn().Err(model.ErrEmptyInput).Msg("quote fetch skipped")
		return model.NewTable("name", model.QuoteColumns...)
	case 1:
		return f.Row(ctx, syms[0]).Table("name")
	default:
		return f.Table(ctx, syms)
	}
}
