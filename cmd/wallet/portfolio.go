package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"wallet/internal/jobs"
	"wallet/internal/pagination"
)

type updatePortfoliosCmd struct{}

func (*updatePortfoliosCmd) Name() string     { return "update-portfolios" }
func (*updatePortfoliosCmd) Synopsis() string { return "record today's snapshot of every external portfolio" }
func (*updatePortfoliosCmd) Usage() string {
	return `update-portfolios

  Fetches today's performance from the configured data sources, records one
  snapshot per portfolio and sends a summary notification.
`
}
func (*updatePortfoliosCmd) SetFlags(*flag.FlagSet) {}

func (*updatePortfoliosCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result := jobs.NewPortfolioJob(a.portfolios, a.notifier, a.cfg.RequestTimeout*time.Duration(a.cfg.RetryAttempts+1)).Run(ctx)
	for _, s := range result.Updated {
		fmt.Printf("%s %s\n", s.Name, s.String())
	}
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type inspectPortfolioCmd struct {
	name string
}

func (*inspectPortfolioCmd) Name() string     { return "inspect-portfolio" }
func (*inspectPortfolioCmd) Synopsis() string { return "verify every stored snapshot of a portfolio" }
func (*inspectPortfolioCmd) Usage() string {
	return `inspect-portfolio -name <portfolio>
`
}

func (c *inspectPortfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Portfolio name (required)")
}

func (c *inspectPortfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required.")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.portfolios.InspectSeries(ctx, c.name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: all snapshots consistent\n", c.name)
	return subcommands.ExitSuccess
}

type fixPortfolioCmd struct {
	name string
	date string
}

func (*fixPortfolioCmd) Name() string     { return "fix-portfolio" }
func (*fixPortfolioCmd) Synopsis() string { return "repair one snapshot against the day before" }
func (*fixPortfolioCmd) Usage() string {
	return `fix-portfolio -name <portfolio> -date <YYYY-MM-DD>

  Overwrites derived fields that fail their checks and snaps a start value
  within 0.2% of the previous day's value.
`
}

func (c *fixPortfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Portfolio name (required)")
	f.StringVar(&c.date, "date", "", "Snapshot date, YYYY-MM-DD (required)")
}

func (c *fixPortfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.date == "" {
		fmt.Fprintln(os.Stderr, "Error: -name and -date are required.")
		return subcommands.ExitUsageError
	}
	date, err := time.Parse(time.DateOnly, c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date %q: %v\n", c.date, err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snapshot, corrections, err := a.portfolios.FixSnapshot(ctx, c.name, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, fix := range corrections {
		fmt.Printf("%s: %s -> %s\n", fix.Field, fix.From.StringFixed(2), fix.To.StringFixed(2))
	}
	fmt.Println(snapshot.String())
	return subcommands.ExitSuccess
}

type netValueCmd struct {
	name  string
	limit int
	list  bool
}

func (*netValueCmd) Name() string     { return "net-value" }
func (*netValueCmd) Synopsis() string { return "print the de-compounded value series of a portfolio" }
func (*netValueCmd) Usage() string {
	return `net-value -name <portfolio> [-limit N] [-stored]
`
}

func (c *netValueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Portfolio name (required)")
	f.IntVar(&c.limit, "limit", 30, "Number of most recent days")
	f.BoolVar(&c.list, "stored", false, "List stored snapshots instead of the rebuilt series")
}

func (c *netValueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required.")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.list {
		page, err := a.portfolios.ListSnapshots(ctx, c.name, pagination.PageRequest{PageSize: c.limit})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, s := range page.Data {
			fmt.Println(s.String())
		}
		return subcommands.ExitSuccess
	}

	points, err := a.portfolios.NetValueSeries(ctx, c.name, c.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, p := range points {
		fmt.Printf("%s %12s %10s %7s%%\n", p.Date.Format(time.DateOnly),
			p.Value.StringFixed(2), p.Gain.StringFixed(2), p.Rate.StringFixed(2))
	}
	return subcommands.ExitSuccess
}
