package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"MarketScout/internal/calculator"
	"MarketScout/internal/fetcher"
	"MarketScout/internal/model"

	"github.com/google/subcommands"
)

type pricesCmd struct {
	interval string
	summary  bool
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "print cached OHLCV price history" }
func (*pricesCmd) Usage() string {
	return `scout prices [-i <interval>] [-summary] [<symbol>... | <symbol file>]

  Prints the full adjusted price history of each symbol as CSV, downloading
  and caching it on first use. Without arguments the configured symbols are used.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.interval, "i", "1d", "Bar interval (1m, 5m, 1h, 1d, 1wk, 1mo, ...)")
	f.BoolVar(&c.summary, "summary", false, "Print one summary line per symbol instead of the history")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		syms := a.symbolsFromArgs(f.Args())
		tables := fetcher.NewPriceFetcher(a.fetcherOptions()).Batch(ctx, syms, c.interval)
		if len(tables) == 0 {
			return subcommands.ExitFailure
		}
		for _, sym := range syms {
			t, ok := tables[sym]
			if !ok {
				continue
			}
			if c.summary {
				printBarSummary(sym, model.Bars(t))
				continue
			}
			if err := printTable(os.Stdout, sym, t); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	})
}

func printBarSummary(sym string, bars []model.OHLCV) {
	s, err := calculator.Summarize(bars)
	if err != nil {
		fmt.Printf("%-8s %v\n", sym, err)
		return
	}
	fmt.Printf("%-8s %s..%s bars=%d close=%.2f change=%+.2f%% sma50=%.2f sma200=%.2f rsi14=%.1f 52w=%.2f-%.2f (%.0f%%)\n",
		sym, s.From.Format("2006-01-02"), s.To.Format("2006-01-02"), s.Bars, s.Close, s.ChangePct,
		s.SMA50, s.SMA200, s.RSI14, s.YearLow, s.YearHigh, s.YearPosition*100)
}

type fundamentalsCmd struct {
	freq string
}

func (*fundamentalsCmd) Name() string     { return "fundamentals" }
func (*fundamentalsCmd) Synopsis() string { return "print merged financial statements" }
func (*fundamentalsCmd) Usage() string {
	return `scout fundamentals [-f quarterly|yearly] [<symbol>... | <symbol file>]

  Prints cashflow, balance sheet and income statement rows merged on the
  periods they share, oldest period first.
`
}

func (c *fundamentalsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.freq, "f", string(model.Quarterly), "Statement frequency (quarterly or yearly)")
}

func (c *fundamentalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := model.ParseFrequency(c.freq); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		syms := a.symbolsFromArgs(f.Args())
		tables := fetcher.NewFundamentalsFetcher(a.fetcherOptions()).Batch(ctx, syms, c.freq)
		if len(tables) == 0 {
			return subcommands.ExitFailure
		}
		for _, sym := range syms {
			if t, ok := tables[sym]; ok {
				if err := printTable(os.Stdout, sym, t); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					return subcommands.ExitFailure
				}
			}
		}
		return subcommands.ExitSuccess
	})
}

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "print current valuation metrics" }
func (*quoteCmd) Usage() string {
	return `scout quote [<symbol>... | <symbol file>]

  Prints 52 week change, price, P/S and P/E per company, sorted by P/S.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		syms := a.symbolsFromArgs(f.Args())
		t := fetcher.NewQuoteFetcher(a.fetcherOptions()).Get(ctx, syms)
		if t.Empty() {
			return subcommands.ExitFailure
		}
		if err := printTable(os.Stdout, "", t); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	})
}
