package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/tally"
	"github.com/etnz/tally/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// recordCmd records a transaction of a given kind.
type recordCmd struct {
	kind     tally.Kind
	symbol   string
	quantity string
	price    string
	currency string
	at       string
}

var synopses = map[tally.Kind]string{
	tally.Buy:      "purchase units of a security, paid from cash",
	tally.Sell:     "sell units of a security, credited to cash",
	tally.Deposit:  "deposit cash, or units received without payment",
	tally.Withdraw: "withdraw cash, or units given away without payment",
}

func (c *recordCmd) Name() string     { return strings.ToLower(c.kind.String()) }
func (c *recordCmd) Synopsis() string { return synopses[c.kind] }
func (c *recordCmd) Usage() string {
	if c.kind == tally.Buy || c.kind == tally.Sell {
		return fmt.Sprintf(`tly %s -s <symbol> -q <quantity> -p <price> [-c <currency>] [-t <time>]

  The price is converted to SEK with the FX table of the configuration.
`, c.Name())
	}
	return fmt.Sprintf(`tly %s -q <quantity> [-s <symbol>] [-p <price>] [-c <currency>] [-t <time>]

  Without a symbol, the quantity is an amount of cash in the given currency.
`, c.Name())
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	symbol, price := "", ""
	if c.kind == tally.Deposit || c.kind == tally.Withdraw {
		symbol, price = tally.Cash, "1"
	}
	f.StringVar(&c.symbol, "s", symbol, "Symbol of the security")
	f.StringVar(&c.quantity, "q", "", "Number of units, always positive")
	f.StringVar(&c.price, "p", price, "Price per unit")
	f.StringVar(&c.currency, "c", tally.Home, "Currency of the price")
	f.StringVar(&c.at, "t", "", "Time of the transaction (YYYY-MM-DD or RFC 3339), defaults to now")
}

func (c *recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.quantity == "" || c.price == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	req := tally.Request{Kind: c.kind.String(), Symbol: c.symbol, Currency: c.currency}
	var err error
	if req.Quantity, err = decimal.NewFromString(c.quantity); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}
	if req.UnitPrice, err = decimal.NewFromString(c.price); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.at != "" {
		if req.At, err = parseTime(c.at); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	out, err := a.ledger.Record(ctx, req)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Outcome(out))
	if out.Denied() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// parseTime parses a timestamp in the local time zone. A date alone is
// midnight.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, want YYYY-MM-DD[ HH:MM[:SS]] or RFC 3339", s)
}
