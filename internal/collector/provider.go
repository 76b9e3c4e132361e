package collector

import (
	"context"
	"fmt"

	"MarketScout/internal/model"
)

// Provider is the upstream market-data source. Every method may fail for any
// reason; callers treat all failures alike as "data unavailable".
type Provider interface {
	// FetchPrices returns the full adjusted OHLCV history at interval, one row
	// per bar and five columns in open, high, low, close, volume order.
	FetchPrices(ctx context.Context, symbol string, interval model.Interval) (*model.Table, error)
	// FetchStatement returns one statement oriented metric rows by period
	// columns, period labels being dates.
	FetchStatement(ctx context.Context, symbol string, kind model.StatementKind, freq model.Frequency) (*model.Table, error)
	FetchQuoteInfo(ctx context.Context, symbol string) (model.QuoteInfo, error)
	// FetchAnalystTargets returns price targets keyed mean, high, low, median, current.
	FetchAnalystTargets(ctx context.Context, symbol string) (model.QuoteInfo, error)
	// FetchRecommendations returns vote counts indexed by period ("0m", "-1m", ...).
	FetchRecommendations(ctx context.Context, symbol string) (*model.Table, error)
	Name() string
}

// APIError is a non-successful provider response.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}
