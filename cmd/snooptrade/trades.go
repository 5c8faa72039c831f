package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"snooptrade/config"
	"snooptrade/internal/app"
	"snooptrade/internal/dashboard"
	"snooptrade/internal/view"
	"snooptrade/observability"
	"snooptrade/services"
)

type tradesCmd struct {
	company   string
	window    string
	email     string
	password  string
	sort      string
	desc      bool
	limit     int
	breakdown bool

	out io.Writer
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "print a company's insider trades" }
func (*tradesCmd) Usage() string {
	return `snooptrade trades -company <symbol> [-window 6m] [-email <email> -password <password>]

  Logs in to the SnoopTrade API and prints the validated insider trades
  for one company, newest first unless -sort is given. Credentials default
  to SNOOPTRADE_EMAIL and SNOOPTRADE_PASSWORD.
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.company, "company", "", "Ticker symbol, e.g. AAPL.")
	f.StringVar(&c.window, "window", "", "Time window (1w, 1m, 3m, 6m, 1y). Defaults to DASHBOARD_DEFAULT_WINDOW.")
	f.StringVar(&c.email, "email", os.Getenv("SNOOPTRADE_EMAIL"), "Account email.")
	f.StringVar(&c.password, "password", os.Getenv("SNOOPTRADE_PASSWORD"), "Account password.")
	f.StringVar(&c.sort, "sort", "", "Sort column (date, type, shares, price, total).")
	f.BoolVar(&c.desc, "desc", false, "Sort descending.")
	f.IntVar(&c.limit, "limit", 0, "Print at most this many rows (0 for all).")
	f.BoolVar(&c.breakdown, "breakdown", false, "Also print the count of trades per transaction type.")
}

func (c *tradesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.company == "" {
		fmt.Fprintln(os.Stderr, "-company is required")
		return subcommands.ExitUsageError
	}
	if c.email == "" || c.password == "" {
		fmt.Fprintln(os.Stderr, "credentials are required: -email and -password, or SNOOPTRADE_EMAIL and SNOOPTRADE_PASSWORD")
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	observability.InitLogger(false)

	application := app.New(cfg, services.NewSnoopTradeService(cfg.Upstream), observability.GetMetrics())
	if err := c.run(ctx, application); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// cliSession keys the one board this command uses
const cliSession = "cli"

func (c *tradesCmd) run(ctx context.Context, application *app.App) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	company, window, err := application.ResolveSelection(c.company, c.window)
	if err != nil {
		return err
	}

	token, err := application.Login(ctx, c.email, c.password)
	if err != nil {
		var fe *app.FormError
		if errors.As(err, &fe) {
			return errors.New(fe.Message)
		}
		return err
	}
	defer application.EndSession(cliSession)

	snap, err := application.Dashboard(ctx, cliSession, token, company, window)
	if err != nil {
		return err
	}
	if snap.TradeError != "" {
		return errors.New(snap.TradeError)
	}

	rows := snap.Trades.Recent
	if col := dashboard.ParseColumn(c.sort); col != dashboard.ColumnDefault {
		rows = dashboard.SortRows(rows, col, c.desc)
	}
	if c.limit > 0 && len(rows) > c.limit {
		rows = rows[:c.limit]
	}

	fmt.Fprintf(out, "%s insider trades, %s\n\n", company, window.Label())
	if len(rows) == 0 {
		fmt.Fprintln(out, "No insider trades in this period.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	headers := make([]string, len(dashboard.Columns))
	for i, col := range dashboard.Columns {
		headers[i] = col.Label()
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, t := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			view.FormatDate(t.TransactionDate), t.Code.Label(), view.FormatShares(t.Shares),
			view.FormatMoney(t.PricePerShare), view.FormatMoney(t.TotalValue))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if c.breakdown {
		fmt.Fprintln(out)
		for _, s := range dashboard.Breakdown(snap.Trades.Chronological) {
			fmt.Fprintln(out, s.Tooltip())
		}
	}
	return nil
}
