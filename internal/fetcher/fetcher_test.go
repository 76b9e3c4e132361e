package fetcher

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"MarketScout/internal/cache"
	"MarketScout/internal/collector"
	"MarketScout/internal/model"
	"MarketScout/internal/recorder"
	"MarketScout/internal/symbols"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failureLog struct {
	recorder.NoopRecorder
	events []*recorder.FetchFailure
}

func (f *failureLog) RecordFetchFailure(evt *recorder.FetchFailure) error {
	f.events = append(f.events, evt)
	return nil
}

type fixture struct {
	provider *collector.MockProvider
	cache    *cache.Cache
	logs     *bytes.Buffer
	failures *failureLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), logger)
	require.NoError(t, err)
	return &fixture{
		provider: &collector.MockProvider{},
		cache:    c,
		logs:     &buf,
		failures: &failureLog{},
	}
}

func (f *fixture) options() Options {
	return Options{
		Provider: f.provider,
		Cache:    f.cache,
		Pacer:    collector.FixedPacer{},
		Recorder: f.failures,
		Logger:   zerolog.New(f.logs),
	}
}

func rawPrices(close float64) *model.Table {
	t := model.NewTable("date", "open", "high", "low", "close", "volume")
	_ = t.AppendRow("2024-01-02", model.Number(1), model.Number(2), model.Number(0.5), model.Number(close), model.Number(1000))
	_ = t.AppendRow("2024-01-03", model.Number(2), model.Number(3), model.Number(1.5), model.Number(close+1), model.Number(2000))
	return t
}

func statement(row string, periods []string, vals ...float64) *model.Table {
	t := model.NewTable("", periods...)
	cells := make([]model.Value, len(vals))
	for i, v := range vals {
		cells[i] = model.Number(v)
	}
	_ = t.AppendRow(row, cells...)
	return t
}

func statements(scale float64) map[model.StatementKind]*model.Table {
	periods := []string{"2024-06-30", "2024-03-31"}
	return map[model.StatementKind]*model.Table{
		model.Cashflow: statement("FreeCashFlow", periods, 2*scale, 1*scale),
		model.Balance:  statement("TotalAssets", periods, 20*scale, 10*scale),
		model.Income:   statement("TotalRevenue", periods, 200*scale, 100*scale),
	}
}

func TestPriceFetcher_RenamesAndCaches(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Prices = map[string]*model.Table{"AAPL": rawPrices(10)}
	pf := NewPriceFetcher(fx.options())

	got := pf.Get(context.Background(), "AAPL", "1d")
	require.Equal(t, model.PriceColumns, got.Columns)
	assert.Equal(t, "Date", got.IndexName)
	assert.Equal(t, model.Number(10), got.Get("2024-01-02", "Close"))
	assert.True(t, fx.cache.Has(cache.Key{Symbol: "AAPL", Kind: cache.KindPrice, Param: "1d"}))
}

func TestPriceFetcher_CacheIdempotence(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Prices = map[string]*model.Table{"AAPL": rawPrices(10)}
	pf := NewPriceFetcher(fx.options())
	ctx := context.Background()

	first := pf.Get(ctx, "AAPL", "1wk")
	fx.provider.Prices["AAPL"] = rawPrices(99)
	second := pf.Get(ctx, "AAPL", "1wk")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fx.provider.Calls("FetchPrices"))
}

func TestPriceFetcher_UnexpectedColumns(t *testing.T) {
	fx := newFixture(t)
	raw := model.NewTable("date", "open", "high", "low", "close", "adjclose", "volume")
	_ = raw.AppendRow("2024-01-02", model.Number(1), model.Number(2), model.Number(0.5), model.Number(1), model.Number(1), model.Number(1000))
	fx.provider.Prices = map[string]*model.Table{"AAPL": raw}
	pf := NewPriceFetcher(fx.options())

	got := pf.Get(context.Background(), "AAPL", "1d")
	assert.True(t, got.Empty())
	assert.Equal(t, model.PriceColumns, got.Columns)
	assert.False(t, fx.cache.Has(cache.Key{Symbol: "AAPL", Kind: cache.KindPrice, Param: "1d"}))
	require.Len(t, fx.failures.events, 1)
	assert.Contains(t, fx.failures.events[0].Error, model.ErrUnexpectedColumns.Error())
}

func TestPriceFetcher_InvalidInterval(t *testing.T) {
	fx := newFixture(t)
	pf := NewPriceFetcher(fx.options())

	got := pf.Get(context.Background(), "AAPL", "7d")
	assert.True(t, got.Empty())
	assert.Zero(t, fx.provider.Calls())
	assert.Contains(t, fx.logs.String(), `"level":"error"`)
}

func TestPriceFetcher_BatchSkipsFailures(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Prices = map[string]*model.Table{"AAPL": rawPrices(10), "MSFT": rawPrices(20)}
	fx.provider.Errors = map[string]error{"BAD": errors.New("delisted")}
	pf := NewPriceFetcher(fx.options())

	got := pf.Batch(context.Background(), symbols.Set{"AAPL", "BAD", "MSFT"}, "1d")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "MSFT")
	assert.Contains(t, fx.logs.String(), `"level":"warn"`)
	require.Len(t, fx.failures.events, 1)
	assert.Equal(t, "BAD", fx.failures.events[0].Symbol)
}

func TestFundamentalsFetcher_ReshapesAndCaches(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Statements = map[string]map[model.StatementKind]*model.Table{"AAPL": statements(1)}
	ff := NewFundamentalsFetcher(fx.options())
	ctx := context.Background()

	first := ff.Get(ctx, "AAPL", "quarterly")
	require.Equal(t, []string{"2024Q1", "2024Q2"}, first.Columns)
	assert.Equal(t, []string{"FreeCashFlow", "TotalAssets", "TotalRevenue"}, first.Index)

	fx.provider.Statements["AAPL"] = statements(10)
	second := ff.Get(ctx, "AAPL", "quarterly")

	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Index, second.Index)
	assert.Equal(t, model.Number(200), second.Get("TotalRevenue", "2024Q2"))
	assert.Equal(t, 3, fx.provider.Calls("FetchStatement"))
}

func TestFundamentalsFetcher_Yearly(t *testing.T) {
	fx := newFixture(t)
	periods := []string{"2023-09-30", "2022-09-30"}
	fx.provider.Statements = map[string]map[model.StatementKind]*model.Table{"AAPL": {
		model.Cashflow: statement("FreeCashFlow", periods, 2, 1),
		model.Balance:  statement("TotalAssets", periods, 20, 10),
		model.Income:   statement("TotalRevenue", periods, 200, 100),
	}}
	ff := NewFundamentalsFetcher(fx.options())

	got := ff.Get(context.Background(), "AAPL", "yearly")
	assert.Equal(t, []string{"2022", "2023"}, got.Columns)
}

func TestFundamentalsFetcher_UnsupportedFrequency(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Statements = map[string]map[model.StatementKind]*model.Table{"AAPL": statements(1)}
	ff := NewFundamentalsFetcher(fx.options())

	var got *model.Table
	assert.NotPanics(t, func() { got = ff.Get(context.Background(), "AAPL", "monthly") })
	assert.True(t, got.Empty())
	assert.Zero(t, fx.provider.Calls())
	assert.Contains(t, fx.logs.String(), `"level":"error"`)
	assert.Contains(t, fx.logs.String(), "monthly")

	assert.Empty(t, ff.Batch(context.Background(), symbols.Set{"AAPL"}, "monthly"))
	assert.Zero(t, fx.provider.Calls())
}

func TestFundamentalsFetcher_PartialStatementFailure(t *testing.T) {
	fx := newFixture(t)
	partial := statements(1)
	delete(partial, model.Income)
	fx.provider.Statements = map[string]map[model.StatementKind]*model.Table{"AAPL": partial}
	ff := NewFundamentalsFetcher(fx.options())

	got := ff.Get(context.Background(), "AAPL", "quarterly")
	assert.True(t, got.Empty())
	assert.False(t, fx.cache.Has(cache.Key{Symbol: "AAPL", Kind: cache.KindFundamentals, Param: "quarterly"}))
	assert.Contains(t, fx.logs.String(), `"level":"warn"`)
}

func quoteInfo(name string, ps float64) model.QuoteInfo {
	return model.QuoteInfo{
		"longName":                     name,
		"52WeekChange":                 0.1234,
		"currentPrice":                 100.456,
		"priceToSalesTrailing12Months": ps,
		"trailingPE":                   25.0,
		"forwardPE":                    22.222,
	}
}

func TestQuoteFetcher_PartialFailureSorted(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Info = map[string]model.QuoteInfo{
		"AAA": quoteInfo("Alpha Corp", 9.5),
		"CCC": quoteInfo("Gamma Inc", 2.25),
	}
	fx.provider.Errors = map[string]error{"BBB": errors.New("timeout")}
	qf := NewQuoteFetcher(fx.options())

	got := qf.Get(context.Background(), symbols.Set{"AAA", "BBB", "CCC"})
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"Gamma Inc", "Alpha Corp"}, got.Index)
	assert.Equal(t, model.Number(2.25), got.Get("Gamma Inc", model.QuotePSTTM))
	assert.Contains(t, fx.logs.String(), `"level":"warn"`)
}

func TestQuoteFetcher_SingleRow(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Info = map[string]model.QuoteInfo{"AAA": quoteInfo("Alpha Corp", 9.5)}
	qf := NewQuoteFetcher(fx.options())

	row := qf.Row(context.Background(), "AAA")
	require.False(t, row.Empty())
	assert.Equal(t, "Alpha Corp", row.Name)
	assert.Equal(t, model.Number(12.34), row.Get(model.QuoteChange52w))
	assert.Equal(t, model.Number(100.46), row.Get(model.QuotePrice))
	assert.Equal(t, model.Number(22.22), row.Get(model.QuotePEFwd))

	tb := qf.Get(context.Background(), symbols.Set{"AAA"})
	assert.Equal(t, []string{"Alpha Corp"}, tb.Index)
}

func TestQuoteFetcher_MissingFieldSkipsSymbol(t *testing.T) {
	fx := newFixture(t)
	info := quoteInfo("Alpha Corp", 9.5)
	delete(info, "forwardPE")
	fx.provider.Info = map[string]model.QuoteInfo{"AAA": info}
	qf := NewQuoteFetcher(fx.options())

	row := qf.Row(context.Background(), "AAA")
	assert.True(t, row.Empty())
	assert.Equal(t, model.QuoteColumns, row.Columns)
	assert.True(t, strings.Contains(fx.logs.String(), "forwardPE"))
}

func TestQuoteFetcher_DuplicateNameKeepsFirst(t *testing.T) {
	fx := newFixture(t)
	fx.provider.Info = map[string]model.QuoteInfo{
		"GOOGL": quoteInfo("Alphabet Inc.", 6.1),
		"GOOG":  quoteInfo("Alphabet Inc.", 6.3),
		"MSFT":  quoteInfo("Microsoft Corporation", 12.0),
	}
	qf := NewQuoteFetcher(fx.options())

	got := qf.Get(context.Background(), symbols.Set{"GOOGL", "GOOG", "MSFT"})
	assert.Equal(t, []string{"Alphabet Inc.", "Microsoft Corporation"}, got.Index)
	assert.Equal(t, model.Number(6.1), got.Get("Alphabet Inc.", model.QuotePSTTM))
	assert.Contains(t, fx.logs.String(), "duplicate company name")
}

func TestEmptySymbolSet_NoProviderCalls(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	opts := fx.options()

	quotes := NewQuoteFetcher(opts).Get(ctx, symbols.Set{})
	assert.True(t, quotes.Empty())
	assert.Equal(t, model.QuoteColumns, quotes.Columns)

	assert.Empty(t, NewPriceFetcher(opts).Batch(ctx, nil, "1d"))
	assert.Empty(t, NewFundamentalsFetcher(opts).Batch(ctx, symbols.Set{}, "quarterly"))

	assert.Zero(t, fx.provider.Calls())
	assert.Equal(t, 3, strings.Count(fx.logs.String(), `"level":"warn"`))
}
