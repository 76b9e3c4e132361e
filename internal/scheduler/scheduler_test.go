package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"MarketScout/internal/collector"
	"MarketScout/internal/fetcher"
	"MarketScout/internal/model"
	"MarketScout/internal/research"
	"MarketScout/internal/symbols"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (o *outbox) SendWithRetry(_ context.Context, text string, _ int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, text)
	return o.err
}

// gatePacer reports each wait on entered and blocks until release is closed.
type gatePacer struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatePacer) Wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestScheduler(t *testing.T, p *collector.MockProvider, out Notifier, syms ...string) *Scheduler {
	t.Helper()
	return newPacedScheduler(t, context.Background(), collector.FixedPacer{}, p, out, syms...)
}

func newPacedScheduler(t *testing.T, ctx context.Context, pacer collector.Pacer,
	p *collector.MockProvider, out Notifier, syms ...string) *Scheduler {
	t.Helper()
	agg, err := research.NewAggregator(research.Options{
		Provider: p,
		Dir:      filepath.Join(t.TempDir(), "research"),
		Pacer:    pacer,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2024, 5, 17, 22, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	quotes := fetcher.NewQuoteFetcher(fetcher.Options{
		Provider: p,
		Pacer:    collector.FixedPacer{},
		Logger:   zerolog.Nop(),
	})
	return NewScheduler(ctx, agg, quotes, out,
		func() symbols.Set { return symbols.Set(syms) }, zerolog.Nop())
}

func mockProvider() *collector.MockProvider {
	return &collector.MockProvider{
		Info: map[string]model.QuoteInfo{"AAPL": {
			"longName":                     "Apple Inc.",
			"52WeekChange":                 0.1,
			"currentPrice":                 190.0,
			"priceToSalesTrailing12Months": 7.6,
			"trailingPE":                   29.4,
			"forwardPE":                    27.1,
			"beta":                         1.2,
		}},
	}
}

func TestRegister_InvalidCron(t *testing.T) {
	s := newTestScheduler(t, mockProvider(), nil)
	assert.Error(t, s.Register("every tuesday"))
	assert.NoError(t, s.Register("0 30 22 * * 1-5"))
}

func TestRunResearchNow_SendsReport(t *testing.T) {
	out := &outbox{}
	s := newTestScheduler(t, mockProvider(), out, "AAPL")

	got := s.RunResearchNow()
	require.NotNil(t, got)
	assert.Equal(t, []string{"AAPL"}, got.Index)
	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0], "2024-05-17")
	assert.Contains(t, out.sent[0], "<b>AAPL</b>")
}

func TestRunResearchNow_NotifierFailureIsLogged(t *testing.T) {
	out := &outbox{err: errors.New("telegram down")}
	s := newTestScheduler(t, mockProvider(), out, "AAPL")

	assert.NotPanics(t, func() { s.RunResearchNow() })
	assert.Len(t, out.sent, 1)
}

func TestHandleCommand(t *testing.T) {
	p := mockProvider()
	s := newTestScheduler(t, p, nil, "AAPL")
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/quote aapl"), "Apple Inc.")
	assert.Contains(t, s.HandleCommand(ctx, "/quote"), "Apple Inc.")
	assert.Equal(t, "AAPL", s.HandleCommand(ctx, "/symbols"))
	assert.Equal(t, "", s.HandleCommand(ctx, "/research"))
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/research")
	assert.Equal(t, "", s.HandleCommand(ctx, "   "))
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t, mockProvider(), nil)
	require.NoError(t, s.Register("0 0 0 1 1 *"))
	s.Start()
	s.Stop()
}

func TestStop_WaitsForBackgroundRun(t *testing.T) {
	gate := gatePacer{entered: make(chan struct{}, 1), release: make(chan struct{})}
	out := &outbox{}
	s := newPacedScheduler(t, context.Background(), gate, mockProvider(), out, "AAPL")
	s.Start()

	s.RunResearchInBackground()
	<-gate.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a research run was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Len(t, out.sent, 1)
}

func TestRunResearchNow_InterruptedSkipsReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &outbox{}
	s := newPacedScheduler(t, ctx, collector.FixedPacer{}, mockProvider(), out, "AAPL")

	got := s.RunResearchNow()
	require.NotNil(t, got)
	assert.True(t, got.Empty())
	assert.Empty(t, out.sent)
}
