package cmd

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/etnz/tally"
	"github.com/google/subcommands"
)

type fetchCmd struct {
	symbols string
	from    string
	to      string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch daily prices and print them as CSV" }
func (*fetchCmd) Usage() string {
	return `tly fetch -s <symbol>[,<symbol>...] [-from <date>] [-to <date>]

  Fetches the daily Open, High, Low and Close prices of the symbols from the
  market data provider, converts them to SEK and prints a CSV price table that
  the value and sharpe commands can read back. Symbols that cannot be fetched
  are skipped with a warning.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "s", "", "Comma separated symbols")
	f.StringVar(&c.from, "from", "", "First day, defaults to 2020-01-01")
	f.StringVar(&c.to, "to", "", "Last day, defaults to today")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var symbols []string
	for _, s := range strings.Split(c.symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	r, err := a.priceRange(c.from, c.to)
	if err != nil {
		return fail(err)
	}
	prices, err := a.loader().Load(ctx, tally.NewForge(), r, symbols...)
	if err != nil {
		return fail(err)
	}
	if err := prices.WriteCSV(os.Stdout); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
