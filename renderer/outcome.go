package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/etnz/tally"
)

// Outcome renders the result of a recorded request.
func Outcome(o tally.Outcome) string {
	tx := o.Transaction
	if o.Denied() {
		return fmt.Sprintf("**Denied**: %s %s %s requires %s, the cash balance is %s.\n",
			tx.Kind, tx.Quantity, tx.Symbol, SEK(tx.Amount), SEK(o.Available))
	}
	return fmt.Sprintf("Recorded #%d: %s\n", tx.ID, Transaction(tx))
}

// Transaction renders a transaction to a string.
func Transaction(tx tally.Transaction) string {
	switch tx.Kind {
	case tally.Buy:
		return fmt.Sprintf("Bought %s of %s for %s", tx.Quantity, tx.Symbol, SEK(tx.Amount))
	case tally.Sell:
		return fmt.Sprintf("Sold %s of %s for %s", tx.Quantity, tx.Symbol, SEK(tx.Amount))
	case tally.Deposit:
		if tx.Symbol == tally.Cash {
			return fmt.Sprintf("Deposited %s", SEK(tx.Amount))
		}
		return fmt.Sprintf("Deposited %s of %s worth %s", tx.Quantity, tx.Symbol, SEK(tx.Amount))
	case tally.Withdraw:
		if tx.Symbol == tally.Cash {
			return fmt.Sprintf("Withdrew %s", SEK(tx.Amount))
		}
		return fmt.Sprintf("Withdrew %s of %s worth %s", tx.Quantity, tx.Symbol, SEK(tx.Amount))
	default:
		return tx.Kind.String()
	}
}

// Mismatches renders the result of a snapshot verification.
func Mismatches(mismatches []tally.Mismatch) string {
	if len(mismatches) == 0 {
		return "The snapshot matches the log.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Snapshot Mismatches\n\n")
	fmt.Fprintf(&b, "| Symbol | Stored Units | Replayed Units | Stored Value | Replayed Value |\n")
	fmt.Fprintf(&b, "|:---|---:|---:|---:|---:|\n")
	for _, m := range mismatches {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", m.Symbol,
			m.Stored.NetUnits, m.Replayed.NetUnits, SEK(m.Stored.TotalValue), SEK(m.Replayed.TotalValue))
	}
	fmt.Fprintf(&b, "\nRun `tly rebuild` to replace the snapshot by the replay of the log.\n")
	return b.String()
}

// Sharpe renders a Sharpe ratio.
func Sharpe(column string, riskFree, ratio float64) string {
	if math.IsNaN(ratio) {
		return fmt.Sprintf("The Sharpe ratio of `%s` is undefined.\n", column)
	}
	return fmt.Sprintf("Sharpe ratio of `%s` (risk-free %.2f%%): **%.4f**\n", column, riskFree*100, ratio)
}
