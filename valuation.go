package tally

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/tally/date"
	"github.com/shopspring/decimal"
)

// SnapshotSource provides the open positions to value. *Ledger implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]Position, error)
}

// Valuation marks a snapshot to market against a price table.
type Valuation struct {
	source SnapshotSource
}

// NewValuation returns a Valuation of the positions provided by source.
func NewValuation(source SnapshotSource) *Valuation {
	return &Valuation{source: source}
}

// PriceSource tells where the price of a valuation line comes from.
type PriceSource int

const (
	// Market is a value read in the price table.
	Market PriceSource = iota
	// Stale is the last transaction price of the position, used when the
	// price table has no value for it.
	Stale
	// Pinned is the fixed unit price of CASH.
	Pinned
)

func (s PriceSource) String() string {
	switch s {
	case Market:
		return "market"
	case Stale:
		return "stale"
	case Pinned:
		return "pinned"
	default:
		return fmt.Sprintf("PriceSource(%d)", int(s))
	}
}

// Line is the valuation of one position.
type Line struct {
	Symbol string
	Units  decimal.Decimal
	Price  decimal.Decimal
	Source PriceSource
	Column string // price table column, for Market prices.
	Value  decimal.Decimal
}

// Report is the valuation of the whole snapshot on the last day of a price table.
type Report struct {
	On    date.Date
	Lines []Line
	Total decimal.Decimal
}

// Breakdown values every open position using the most recent row of prices.
//
// The price of a position is read in the column resolved for its symbol (see
// PriceColumn). When no column matches or the matching column has no value on
// that row, the last transaction price of the position is used instead.
//
// It fails with ErrInvalidInput for a missing or empty table, with
// ErrEmptyPortfolio when there is no open position, and with
// ErrAmbiguousPriceColumn when a symbol matches several close columns.
func (v *Valuation) Breakdown(ctx context.Context, prices *Frame) (Report, error) {
	if prices == nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInvalidInput, errNoFrame)
	}
	last, ok := prices.Last()
	if !ok {
		return Report{}, fmt.Errorf("%w: empty price table", ErrInvalidInput)
	}
	positions, err := v.source.Snapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(positions) == 0 {
		return Report{}, ErrEmptyPortfolio
	}

	report := Report{On: last, Total: decimal.Zero}
	for _, p := range positions {
		line, err := lineOf(p, prices, last)
		if err != nil {
			return Report{}, err
		}
		report.Lines = append(report.Lines, line)
		report.Total = report.Total.Add(line.Value)
	}
	return report, nil
}

// TotalValuation returns the sum of the values of every open position,
// CASH included, as of the most recent row of prices.
func (v *Valuation) TotalValuation(ctx context.Context, prices *Frame) (decimal.Decimal, error) {
	report, err := v.Breakdown(ctx, prices)
	if err != nil {
		return decimal.Zero, err
	}
	return report.Total, nil
}

func lineOf(p Position, prices *Frame, on date.Date) (Line, error) {
	line := Line{Symbol: p.Symbol, Units: p.NetUnits, Price: p.LastUnitPrice, Source: Stale}
	switch column, err := PriceColumn(prices.Columns(), p.Symbol); {
	case p.Symbol == Cash:
		line.Price, line.Source = one, Pinned
	case err != nil:
		return Line{}, err
	case column != "":
		if price, ok := prices.Value(column, on); ok {
			line.Price, line.Source, line.Column = D(price), Market, column
		}
	}
	line.Value = line.Units.Mul(line.Price)
	return line, nil
}

// PriceColumn returns the column holding the price of symbol, or "" if there
// is none.
//
// A column pertains to a symbol when its name contains the symbol between
// parentheses, as in "Close (AAPL)", case-insensitively. Among those, a
// close-type column (its name contains "close") is preferred, otherwise the
// first one is used. Several close-type columns are ambiguous.
func PriceColumn(columns []string, symbol string) (string, error) {
	token := "(" + strings.ToUpper(symbol) + ")"
	var candidates, closes []string
	for _, c := range columns {
		name := strings.ToUpper(c)
		if !strings.Contains(name, token) {
			continue
		}
		candidates = append(candidates, c)
		if strings.Contains(name, "CLOSE") {
			closes = append(closes, c)
		}
	}
	switch {
	case len(closes) > 1:
		return "", fmt.Errorf("%w: %s matches %q", ErrAmbiguousPriceColumn, symbol, closes)
	case len(closes) == 1:
		return closes[0], nil
	case len(candidates) > 0:
		return candidates[0], nil
	default:
		return "", nil
	}
}
