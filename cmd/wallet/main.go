package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"wallet/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&updatePortfoliosCmd{}, "portfolio")
	commander.Register(&inspectPortfolioCmd{}, "portfolio")
	commander.Register(&fixPortfolioCmd{}, "portfolio")
	commander.Register(&netValueCmd{}, "portfolio")

	commander.Register(&createUserCmd{}, "ledger")
	commander.Register(&balancesCmd{}, "ledger")
	commander.Register(&transactionsCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
