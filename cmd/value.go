package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/etnz/tally"
	"github.com/etnz/tally/date"
	"github.com/etnz/tally/renderer"
	"github.com/google/subcommands"
)

// readPrices reads a price table from a CSV file.
func readPrices(path string) (*tally.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tally.ReadFrameCSV(f)
}

type valueCmd struct {
	prices string
	from   string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "mark the open positions to market" }
func (*valueCmd) Usage() string {
	return `tly value [-prices <file.csv>] [-from <date>]

  Values every open position at its price in the most recent row of a price
  table, or at its last transaction price when the table has none. The table is
  read from a CSV file, or fetched from the market data provider.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.prices, "prices", "", "CSV price table, the first column is the date")
	f.StringVar(&c.from, "from", "", "First day of prices to fetch")
}

func (c *valueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var prices *tally.Frame
	if c.prices != "" {
		if prices, err = readPrices(c.prices); err != nil {
			return fail(err)
		}
	} else {
		positions, err := a.ledger.Snapshot(ctx)
		if err != nil {
			return fail(err)
		}
		r, err := a.priceRange(c.from, "")
		if err != nil {
			return fail(err)
		}
		symbols := make([]string, 0, len(positions))
		for _, p := range positions {
			symbols = append(symbols, p.Symbol)
		}
		forge := tally.NewForge()
		if prices, err = a.loader().Load(ctx, forge, r, symbols...); err != nil {
			return fail(err)
		}
		if prices.Len() == 0 {
			// A column matching no symbol: every position is valued at its last price.
			prices = forge.Merge(tally.Series{{At: r.To.Time(), Value: 1}}, "Valuation date")
		}
	}

	report, err := tally.NewValuation(a.ledger).Breakdown(ctx, prices)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Valuation(report))
	return subcommands.ExitSuccess
}

type sharpeCmd struct {
	column   string
	symbol   string
	prices   string
	from     string
	riskFree float64
}

func (*sharpeCmd) Name() string     { return "sharpe" }
func (*sharpeCmd) Synopsis() string { return "compute the annualized Sharpe ratio of a price series" }
func (*sharpeCmd) Usage() string {
	return `tly sharpe (-prices <file.csv> -col <column> | -s <symbol>) [-rf <rate>] [-from <date>]

  Computes (mean(r)*252 - rf) / (stdev(r)*sqrt(252)) over the daily returns r
  of a price column. With -s the close prices of the symbol are fetched.
`
}

func (c *sharpeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.column, "col", "", "Price column, defaults to the close of -s")
	f.StringVar(&c.symbol, "s", "", "Symbol to fetch")
	f.StringVar(&c.prices, "prices", "", "CSV price table, the first column is the date")
	f.StringVar(&c.from, "from", "", "First day of prices to fetch")
	f.Float64Var(&c.riskFree, "rf", tally.DefaultRiskFree, "Annual risk-free rate")
}

func (c *sharpeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.prices == "") == (c.symbol == "") || (c.prices != "" && c.column == "") {
		f.Usage()
		return subcommands.ExitUsageError
	}
	column := c.column
	if column == "" {
		column = tally.ColumnName("Close", c.symbol)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var prices *tally.Frame
	if c.prices != "" {
		prices, err = readPrices(c.prices)
	} else {
		var r date.Range
		if r, err = a.priceRange(c.from, ""); err == nil {
			prices, err = a.loader().Load(ctx, tally.NewForge(), r, c.symbol)
		}
	}
	if err != nil {
		return fail(err)
	}

	ratio, err := tally.Sharpe(prices, column, c.riskFree)
	if errors.Is(err, tally.ErrUndefinedRatio) {
		printMarkdown(renderer.Sharpe(column, c.riskFree, math.NaN()))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Sharpe(column, c.riskFree, ratio))
	return subcommands.ExitSuccess
}
