package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/pagination"
)

type createUserCmd struct {
	name string
}

func (*createUserCmd) Name() string     { return "create-user" }
func (*createUserCmd) Synopsis() string { return "create a user with its default equity account" }
func (*createUserCmd) Usage() string {
	return `create-user -name <name>
`
}

func (c *createUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "User name (required)")
}

func (c *createUserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	user, err := a.users.CreateUser(ctx, c.name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(user.ID)
	return subcommands.ExitSuccess
}

type balancesCmd struct {
	user string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "print account balances of a user" }
func (*balancesCmd) Usage() string {
	return `balances -user <name>

  Lists accounts by usage with their per-currency balances, then the signed
  net worth in USD at current exchange rates.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User name (required)")
}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required.")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	user, err := a.users.GetUserByName(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	accounts, err := a.accounts.ListForUser(ctx, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	net := decimal.Zero
	for _, acct := range accounts {
		fmt.Println(acct.String())
		if acct.Type == models.AccountTypeEquity {
			continue
		}
		for currency, amount := range acct.Balances {
			rate, err := a.rates.Rate(ctx, currency)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			net = net.Add(acct.Type.Signed(amount).Div(rate))
		}
	}
	fmt.Printf("Net worth: %s\n", models.CurrencyUSD.Format(net.Round(2)))
	return subcommands.ExitSuccess
}

type transactionsCmd struct {
	user     string
	page     int
	pageSize int
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list transactions of a user, newest first" }
func (*transactionsCmd) Usage() string {
	return `transactions -user <name> [-page N] [-page-size N]
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User name (required)")
	f.IntVar(&c.page, "page", 1, "Page number")
	f.IntVar(&c.pageSize, "page-size", 20, "Transactions per page")
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required.")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	user, err := a.users.GetUserByName(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	page, err := a.txns.GetUserTransactions(ctx, user.ID, pagination.PageRequest{Page: c.page, PageSize: c.pageSize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, t := range page.Data {
		fmt.Printf("%s %s\n", t.Occurred().Format(time.DateTime), t.String())
	}
	fmt.Printf("page %d of %d (%d transactions)\n", page.Page, page.TotalPages, page.TotalItems)
	return subcommands.ExitSuccess
}
