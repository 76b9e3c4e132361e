package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"MarketScout/internal/fetcher"
	"MarketScout/internal/notifier"
	"MarketScout/internal/scheduler"
	"MarketScout/internal/symbols"

	"github.com/google/subcommands"
)

type researchCmd struct {
	notify bool
}

func (*researchCmd) Name() string     { return "research" }
func (*researchCmd) Synopsis() string { return "build the research comparison table" }
func (*researchCmd) Usage() string {
	return `scout research [-notify] [<symbol>... | <symbol file>]

  Builds one row of valuation metrics per symbol and stores it under the
  research directory, named after the symbol file or today's date. A table
  already stored under that name is printed as-is.
`
}

func (c *researchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.notify, "notify", false, "Also send the table to the configured Telegram chat")
}

func (c *researchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		src := a.cfg.SymbolSource()
		if f.NArg() > 0 {
			src = symbols.SourceFromArgs(f.Args())
		}
		agg, err := a.aggregator()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}

		t := agg.Build(ctx, src)
		if err := printTable(os.Stdout, "", t); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}

		if c.notify {
			if !a.cfg.TelegramEnabled() {
				fmt.Fprintln(os.Stderr, "Error: -notify needs telegram.bot_token and telegram.chat_id")
				return subcommands.ExitUsageError
			}
			tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Provider.Proxy, a.log)
			if err := tn.SendWithRetry(ctx, notifier.FormatResearchReport(t, agg.Now()), 3); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	})
}

type daemonCmd struct {
	runOnStart bool
}

func (*daemonCmd) Name() string     { return "daemon" }
func (*daemonCmd) Synopsis() string { return "run scheduled research builds" }
func (*daemonCmd) Usage() string {
	return `scout daemon [-run-on-start]

  Builds the research table for the configured symbols on schedule.research_cron
  and, when Telegram is configured, sends the report and answers chat commands.
  Stops on SIGINT or SIGTERM.
`
}

func (c *daemonCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Build the research table once at startup")
}

func (c *daemonCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		a.log.Info().Msg("MarketScout daemon starting")

		agg, err := a.aggregator()
		if err != nil {
			a.log.Error().Err(err).Msg("init research")
			return subcommands.ExitFailure
		}
		quotes := fetcher.NewQuoteFetcher(a.fetcherOptions())

		var tn *notifier.TelegramNotifier
		var notify scheduler.Notifier
		if a.cfg.TelegramEnabled() {
			tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Provider.Proxy, a.log)
			notify = tn
		}

		sched := scheduler.NewScheduler(ctx, agg, quotes, notify,
			func() symbols.Set { return a.cfg.SymbolSource().Symbols }, a.log)
		if err := sched.Register(a.cfg.Schedule.ResearchCron); err != nil {
			a.log.Error().Err(err).Msg("register cron tasks")
			return subcommands.ExitFailure
		}
		sched.Start()

		polling := make(chan struct{})
		if tn != nil {
			go func() {
				defer close(polling)
				tn.StartPolling(ctx, sched.HandleCommand)
			}()
			a.log.Info().Msg("telegram polling started")
		} else {
			close(polling)
		}

		if c.runOnStart {
			a.log.Info().Msg("run-on-start enabled, building research now")
			sched.RunResearchInBackground()
		}

		a.log.Info().Str("cron", a.cfg.Schedule.ResearchCron).Msg("MarketScout is running. Press Ctrl+C to stop.")
		<-ctx.Done()
		a.log.Info().Msg("shutdown signal received, stopping")
		// Commands run on the polling goroutine; they must finish before the
		// recorder is closed.
		<-polling
		sched.Stop()
		return subcommands.ExitSuccess
	})
}
