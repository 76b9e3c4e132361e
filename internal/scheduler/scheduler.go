package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"MarketScout/internal/fetcher"
	"MarketScout/internal/model"
	"MarketScout/internal/notifier"
	"MarketScout/internal/research"
	"MarketScout/internal/symbols"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Notifier delivers reports. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs research builds on a cron schedule and answers chat commands.
type Scheduler struct {
	cron     *cron.Cron
	research *research.Aggregator
	quotes   *fetcher.QuoteFetcher
	notifier Notifier
	symbols  func() symbols.Set
	ctx      context.Context
	log      zerolog.Logger

	running    sync.Mutex
	background sync.WaitGroup
}

// NewScheduler creates a new Scheduler. notify may be nil when reports are
// not delivered anywhere; symbolsFn is called on every run so edits to a
// symbol file are picked up.
func NewScheduler(ctx context.Context, agg *research.Aggregator, quotes *fetcher.QuoteFetcher,
	notify Notifier, symbolsFn func() symbols.Set, logger zerolog.Logger) *Scheduler {
	log := logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		research: agg,
		quotes:   quotes,
		notifier: notify,
		symbols:  symbolsFn,
		ctx:      ctx,
		log:      log,
	}
}

// Register adds the research job.
func (s *Scheduler) Register(researchCron string) error {
	if _, err := s.cron.AddFunc(researchCron, s.researchTask); err != nil {
		return fmt.Errorf("register research task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running cron jobs and
// background runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.background.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunResearchNow builds and reports today's research table immediately. It
// returns nil when a build is already in progress.
func (s *Scheduler) RunResearchNow() *model.Table {
	return s.runResearch()
}

// RunResearchInBackground starts RunResearchNow on its own goroutine. Stop
// waits for it.
func (s *Scheduler) RunResearchInBackground() {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.runResearch()
	}()
}

func (s *Scheduler) researchTask() {
	s.runResearch()
}

func (s *Scheduler) runResearch() *model.Table {
	if !s.running.TryLock() {
		s.log.Warn().Msg("research already running, skipped")
		return nil
	}
	defer s.running.Unlock()

	s.log.Info().Msg("running research task")
	// Scheduled runs are named by date so each day gets a fresh table.
	src := symbols.Source{Symbols: s.symbols()}
	t := s.research.Build(s.ctx, src)
	if s.ctx.Err() != nil {
		s.log.Warn().Msg("research interrupted, report not sent")
		return t
	}
	s.trySend(notifier.FormatResearchReport(t, s.research.Now()))
	return t
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "/research":
		// The report is sent by the task itself.
		if s.runResearch() == nil {
			return "Research is already running."
		}
		return ""
	case "/quote":
		syms := symbols.Set(fields[1:])
		if len(syms) == 0 {
			syms = s.symbols()
		}
		return notifier.FormatQuoteTable(s.quotes.Get(ctx, syms))
	case "/symbols":
		syms := s.symbols()
		if len(syms) == 0 {
			return "No symbols configured."
		}
		return strings.Join(syms, ", ")
	default:
		return "Commands:\n/research - build today's research table\n/quote [SYMBOL...] - current valuation metrics\n/symbols - configured symbols"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
