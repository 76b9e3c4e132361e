package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"MarketScout/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
// Lookups are by upper-cased symbol; a symbol listed in Errors fails every
// call with that error, a symbol with no data fails with a not-found error.
type MockProvider struct {
	Prices          map[string]*model.Table
	Statements      map[string]map[model.StatementKind]*model.Table
	Info            map[string]model.QuoteInfo
	Targets         map[string]model.QuoteInfo
	Recommendations map[string]*model.Table
	Errors          map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProvider) Name() string { return "mock" }

// Calls returns how many provider calls were made, optionally only for method.
func (m *MockProvider) Calls(method ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for k, n := range m.calls {
		if len(method) == 0 || k == method[0] {
			total += n
		}
	}
	return total
}

func (m *MockProvider) record(method, symbol string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	sym := strings.ToUpper(symbol)
	if err, ok := m.Errors[sym]; ok {
		return sym, err
	}
	return sym, nil
}

func (m *MockProvider) FetchPrices(_ context.Context, symbol string, _ model.Interval) (*model.Table, error) {
	sym, err := m.record("FetchPrices", symbol)
	if err != nil {
		return nil, err
	}
	t, ok := m.Prices[sym]
	if !ok {
		return nil, fmt.Errorf("mock: no prices for %s", sym)
	}
	return t.Clone(), nil
}

func (m *MockProvider) FetchStatement(_ context.Context, symbol string, kind model.StatementKind, _ model.Frequency) (*model.Table, error) {
	sym, err := m.record("FetchStatement", symbol)
	if err != nil {
		return nil, err
	}
	t, ok := m.Statements[sym][kind]
	if !ok {
		return nil, fmt.Errorf("mock: no %s statement for %s", kind, sym)
	}
	return t.Clone(), nil
}

func (m *MockProvider) FetchQuoteInfo(_ context.Context, symbol string) (model.QuoteInfo, error) {
	sym, err := m.record("FetchQuoteInfo", symbol)
	if err != nil {
		return nil, err
	}
	info, ok := m.Info[sym]
	if !ok {
		return nil, fmt.Errorf("mock: no quote info for %s", sym)
	}
	return info, nil
}

func (m *MockProvider) FetchAnalystTargets(_ context.Context, symbol string) (model.QuoteInfo, error) {
	sym, err := m.record("FetchAnalystTargets", symbol)
	if err != nil {
		return nil, err
	}
	targets, ok := m.Targets[sym]
	if !ok {
		return nil, fmt.Errorf("mock: no analyst targets for %s", sym)
	}
	return targets, nil
}

func (m *MockProvider) FetchRecommendations(_ context.Context, symbol string) (*model.Table, error) {
	sym, err := m.record("FetchRecommendations", symbol)
	if err != nil {
		return nil, err
	}
	t, ok := m.Recommendations[sym]
	if !ok {
		return nil, fmt.Errorf("mock: no recommendations for %s", sym)
	}
	return t.Clone(), nil
}
