package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketScout/internal/model"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL = "https://query2.finance.yahoo.com"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout      = 30 * time.Second
	DefaultRateLimit    = 2.0
	DefaultInfoTTL      = time.Minute
)

// summaryModules are requested together so quote info, analyst targets and
// recommendations for one symbol cost a single request.
var summaryModules = "price,summaryDetail,defaultKeyStatistics,financialData,recommendationTrend"

// Flattening order of quoteSummary modules; the first module holding a field wins.
var infoModules = []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData"}

var statementMetrics = map[model.StatementKind][]string{
	model.Income: {
		"TotalRevenue", "CostOfRevenue", "GrossProfit", "OperatingExpense", "OperatingIncome",
		"EBITDA", "EBIT", "PretaxIncome", "TaxProvision", "NetIncome",
		"BasicEPS", "DilutedEPS", "DilutedAverageShares",
	},
	model.Balance: {
		"TotalAssets", "CurrentAssets", "CashAndCashEquivalents", "Inventory",
		"TotalLiabilitiesNetMinorityInterest", "CurrentLiabilities", "TotalDebt", "LongTermDebt",
		"StockholdersEquity", "RetainedEarnings", "WorkingCapital", "OrdinarySharesNumber",
	},
	model.Cashflow: {
		"OperatingCashFlow", "InvestingCashFlow", "FinancingCashFlow", "CapitalExpenditure",
		"FreeCashFlow", "RepurchaseOfCapitalStock", "CashDividendsPaid", "EndCashPosition",
	},
}

var recommendationColumns = []string{"strongBuy", "buy", "hold", "sell", "strongSell"}

// YahooProvider implements Provider using Yahoo Finance's public endpoints.
type YahooProvider struct {
	client  *resty.Client
	limiter *rate.Limiter
	memo    *gocache.Cache
}

// YahooOption configures a YahooProvider.
type YahooOption func(*yahooOptions)

type yahooOptions struct {
	baseURL   string
	proxy     string
	userAgent string
	timeout   time.Duration
	rateLimit float64
	infoTTL   time.Duration
}

// WithBaseURL points the provider at another host. Empty keeps the default.
func WithBaseURL(u string) YahooOption {
	return func(o *yahooOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

func WithProxy(proxyURL string) YahooOption {
	return func(o *yahooOptions) { o.proxy = proxyURL }
}

// WithUserAgent overrides the browser user agent. Empty keeps the default.
func WithUserAgent(ua string) YahooOption {
	return func(o *yahooOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

func WithTimeout(d time.Duration) YahooOption {
	return func(o *yahooOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or less disables the cap.
func WithRateLimit(perSecond float64) YahooOption {
	return func(o *yahooOptions) { o.rateLimit = perSecond }
}

// WithInfoTTL sets how long a quoteSummary response is reused in memory.
// Zero disables reuse.
func WithInfoTTL(d time.Duration) YahooOption {
	return func(o *yahooOptions) { o.infoTTL = d }
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(opts ...YahooOption) *YahooProvider {
	o := yahooOptions{
		baseURL:   DefaultYahooBaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		rateLimit: DefaultRateLimit,
		infoTTL:   DefaultInfoTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(o.baseURL, "/")).
		SetTimeout(o.timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": o.userAgent,
		})
	if o.proxy != "" {
		client.SetProxy(o.proxy)
	}

	limit := rate.Inf
	if o.rateLimit > 0 {
		limit = rate.Limit(o.rateLimit)
	}
	y := &YahooProvider{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
	if o.infoTTL > 0 {
		y.memo = gocache.New(o.infoTTL, 2*o.infoTTL)
	}
	return y
}

func (y *YahooProvider) Name() string { return "yahoo" }

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// get performs a GET request and decodes the JSON body into out.
func (y *YahooProvider) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("yahoo request %s: %w", path, err)
	}
	if !resp.IsSuccess() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
			Endpoint:   path,
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("yahoo decode %s: %w", path, err)
	}
	return nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GmtOffset int `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// FetchPrices downloads the maximum available history with open, high, low
// and close scaled by the adjusted-close ratio so dividends and splits are
// accounted for.
func (y *YahooProvider) FetchPrices(ctx context.Context, symbol string, interval model.Interval) (*model.Table, error) {
	path := "/v8/finance/chart/" + strings.ToUpper(symbol)
	var chart chartResponse
	err := y.get(ctx, path, map[string]string{
		"interval":             string(interval),
		"range":                "max",
		"events":               "div,splits",
		"includeAdjustedClose": "true",
	}, &chart)
	if err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, &APIError{StatusCode: 200, Message: chart.Chart.Error.Description, Endpoint: path}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no price data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}
	loc := time.FixedZone("exchange", result.Meta.GmtOffset)
	layout := "2006-01-02"
	if intraday(interval) {
		layout = "2006-01-02 15:04:05"
	}

	t := model.NewTable("Date", "open", "high", "low", "close", "volume")
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil && h == nil && l == nil && c == nil {
			continue // null bars (holidays etc.)
		}
		ratio := 1.0
		if a := at(adj, i); a != nil && c != nil && *c != 0 {
			ratio = *a / *c
		}
		scaled := func(p *float64) model.Value {
			if p == nil {
				return model.Null
			}
			return model.Number(*p * ratio)
		}
		vol := model.Null
		if v := at(quote.Volume, i); v != nil {
			vol = model.Number(*v)
		}
		label := time.Unix(ts, 0).In(loc).Format(layout)
		if err := t.AppendRow(label, scaled(o), scaled(h), scaled(l), scaled(c), vol); err != nil {
			return nil, err
		}
	}
	t.IndexKind = model.IndexDate
	t.SortIndex(func(a, b string) bool { return a < b })
	return t, nil
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

func intraday(iv model.Interval) bool {
	s := string(iv)
	return strings.HasSuffix(s, "h") || (strings.HasSuffix(s, "m") && !strings.HasSuffix(s, "mo"))
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]any `json:"result"`
		Error  *yahooError                 `json:"error"`
	} `json:"quoteSummary"`
}

// summary returns the quoteSummary modules for symbol, reusing a recent
// response from memory.
func (y *YahooProvider) summary(ctx context.Context, symbol string) (map[string]map[string]any, error) {
	sym := strings.ToUpper(symbol)
	if y.memo != nil {
		if v, ok := y.memo.Get(sym); ok {
			return v.(map[string]map[string]any), nil
		}
	}

	path := "/v10/finance/quoteSummary/" + sym
	var resp summaryResponse
	if err := y.get(ctx, path, map[string]string{"modules": summaryModules}, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{StatusCode: 200, Message: resp.QuoteSummary.Error.Description, Endpoint: path}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no quote summary for %s", symbol)
	}
	modules := resp.QuoteSummary.Result[0]
	if y.memo != nil {
		y.memo.Set(sym, modules, gocache.DefaultExpiration)
	}
	return modules, nil
}

// rawValue unwraps Yahoo's {"raw": ..., "fmt": ...} envelopes.
func rawValue(v any) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		raw, ok := x["raw"]
		return raw, ok && raw != nil
	case string, float64, bool:
		return x, true
	default:
		return nil, false
	}
}

// FetchQuoteInfo flattens the summary modules into one mapping.
func (y *YahooProvider) FetchQuoteInfo(ctx context.Context, symbol string) (model.QuoteInfo, error) {
	modules, err := y.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	info := make(model.QuoteInfo)
	for _, name := range infoModules {
		for field, v := range modules[name] {
			if _, seen := info[field]; seen {
				continue
			}
			if raw, ok := rawValue(v); ok {
				info[field] = raw
			}
		}
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("yahoo: empty quote info for %s", symbol)
	}
	return info, nil
}

func (y *YahooProvider) FetchAnalystTargets(ctx context.Context, symbol string) (model.QuoteInfo, error) {
	modules, err := y.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	fin, ok := modules["financialData"]
	if !ok {
		return nil, fmt.Errorf("yahoo: no financial data for %s", symbol)
	}
	targets := make(model.QuoteInfo)
	for key, field := range map[string]string{
		"current": "currentPrice",
		"mean":    "targetMeanPrice",
		"median":  "targetMedianPrice",
		"high":    "targetHighPrice",
		"low":     "targetLowPrice",
	} {
		if raw, ok := rawValue(fin[field]); ok {
			targets[key] = raw
		}
	}
	return targets, nil
}

func (y *YahooProvider) FetchRecommendations(ctx context.Context, symbol string) (*model.Table, error) {
	modules, err := y.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	trend, _ := modules["recommendationTrend"]["trend"].([]any)
	if len(trend) == 0 {
		return nil, fmt.Errorf("yahoo: no recommendation trend for %s", symbol)
	}

	t := model.NewTable("period", recommendationColumns...)
	for _, item := range trend {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		period, _ := row["period"].(string)
		values := make([]model.Value, len(recommendationColumns))
		for j, col := range recommendationColumns {
			if n, ok := row[col].(float64); ok {
				values[j] = model.Number(n)
			}
		}
		if err := t.AppendRow(period, values...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

type timeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yahooError                  `json:"error"`
	} `json:"timeseries"`
}

type timeseriesPoint struct {
	AsOfDate      string `json:"asOfDate"`
	ReportedValue struct {
		Raw *float64 `json:"raw"`
	} `json:"reportedValue"`
}

// FetchStatement reads one statement from the fundamentals-timeseries
// endpoint. Periods come back newest first, as the provider reports them.
func (y *YahooProvider) FetchStatement(ctx context.Context, symbol string, kind model.StatementKind, freq model.Frequency) (*model.Table, error) {
	metrics, ok := statementMetrics[kind]
	if !ok {
		return nil, fmt.Errorf("yahoo: unknown statement %q", kind)
	}
	prefix := "annual"
	if freq == model.Quarterly {
		prefix = "quarterly"
	}
	types := make([]string, len(metrics))
	for i, m := range metrics {
		types[i] = prefix + m
	}

	sym := strings.ToUpper(symbol)
	path := "/ws/fundamentals-timeseries/v1/finance/timeseries/" + sym
	var resp timeseriesResponse
	err := y.get(ctx, path, map[string]string{
		"symbol":  sym,
		"type":    strings.Join(types, ","),
		"period1": "493590046",
		"period2": strconv.FormatInt(time.Now().Unix(), 10),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Timeseries.Error != nil {
		return nil, &APIError{StatusCode: 200, Message: resp.Timeseries.Error.Description, Endpoint: path}
	}

	values := make(map[string]map[string]float64)
	dates := make(map[string]bool)
	for _, res := range resp.Timeseries.Result {
		var meta struct {
			Type []string `json:"type"`
		}
		if err := json.Unmarshal(res["meta"], &meta); err != nil || len(meta.Type) == 0 {
			continue
		}
		typ := meta.Type[0]
		raw, ok := res[typ]
		if !ok {
			continue
		}
		var points []*timeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("yahoo decode %s: %w", typ, err)
		}
		metric := strings.TrimPrefix(typ, prefix)
		for _, p := range points {
			if p == nil || p.ReportedValue.Raw == nil || p.AsOfDate == "" {
				continue
			}
			if values[metric] == nil {
				values[metric] = make(map[string]float64)
			}
			values[metric][p.AsOfDate] = *p.ReportedValue.Raw
			dates[p.AsOfDate] = true
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("yahoo: no %s %s statement for %s", freq, kind, symbol)
	}

	periods := make([]string, 0, len(dates))
	for d := range dates {
		periods = append(periods, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	t := model.NewTable("", periods...)
	for _, m := range metrics {
		byDate, ok := values[m]
		if !ok {
			continue
		}
		row := make([]model.Value, len(periods))
		for j, d := range periods {
			if v, ok := byDate[d]; ok {
				row[j] = model.Number(v)
			}
		}
		if err := t.AppendRow(m, row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
