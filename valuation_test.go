package tally

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// positions is a fixed SnapshotSource.
type positions []Position

func (p positions) Snapshot(context.Context) ([]Position, error) { return p, nil }

func position(symbol string, units, price float64) Position {
	return Apply(Position{}, Delta{Symbol: symbol, Units: D(units), Price: D(price)})
}

func prices(t *testing.T, columns ...Column) *Frame {
	t.Helper()
	f, err := ParseFrame([]string{"2025-01-01", "2025-01-02"}, columns...)
	require.NoError(t, err)
	return f
}

func TestValuation_Breakdown(t *testing.T) {
	ctx := context.Background()
	v := NewValuation(positions{
		position("AAPL", 10, 150),
		position("MSFT", 2, 400),
		position("GOLD", 1, 700),
		position("IBM", 3, 90),
		position(Cash, 250, 1),
	})
	table := prices(t,
		Column{Name: "Open (AAPL)", Values: []float64{151, 152}},
		Column{Name: "Close (AAPL)", Values: []float64{155, 160}},
		Column{Name: "High (msft)", Values: []float64{410, 420}},
		Column{Name: "Low (MSFT)", Values: []float64{390, 395}},
		Column{Name: "Close (IBM)", Values: []float64{95, math.NaN()}},
	)

	report, err := v.Breakdown(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", report.On.String())
	require.Len(t, report.Lines, 5)

	byName := make(map[string]Line)
	for _, l := range report.Lines {
		byName[l.Symbol] = l
	}
	tests := []struct {
		symbol string
		price  string
		source PriceSource
		column string
	}{
		{"AAPL", "160", Market, "Close (AAPL)"},
		{"MSFT", "420", Market, "High (msft)"}, // no close column: first candidate
		{"GOLD", "700", Stale, ""},             // no column
		{"IBM", "90", Stale, ""},               // no value on the last row
		{Cash, "1", Pinned, ""},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			l := byName[tt.symbol]
			assert.Equal(t, tt.price, l.Price.String())
			assert.Equal(t, tt.source, l.Source)
			assert.Equal(t, tt.column, l.Column)
		})
	}
	// 10*160 + 2*420 + 700 + 3*90 + 250
	assert.Equal(t, "3660", report.Total.String())

	total, err := v.TotalValuation(ctx, table)
	require.NoError(t, err)
	assert.True(t, total.Equal(report.Total))
}

func TestValuation_TotalIsNotRounded(t *testing.T) {
	v := NewValuation(positions{position("AAPL", 3, 1), position(Cash, 0.00001, 1)})
	table := prices(t, Column{Name: "Close (AAPL)", Values: []float64{1, 0.123456789}})

	report, err := v.Breakdown(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, "0.370370367", report.Lines[0].Value.String())
	assert.Equal(t, "0.370380367", report.Total.String())
}

func TestValuation_Errors(t *testing.T) {
	ctx := context.Background()
	table := prices(t,
		Column{Name: "Close (AAPL)", Values: []float64{1, 2}},
		Column{Name: "Adj Close (AAPL)", Values: []float64{1, 2}},
	)

	_, err := NewValuation(positions{position("AAPL", 1, 1)}).TotalValuation(ctx, table)
	assert.ErrorIs(t, err, ErrAmbiguousPriceColumn)

	_, err = NewValuation(positions{}).TotalValuation(ctx, table)
	assert.ErrorIs(t, err, ErrEmptyPortfolio)

	_, err = NewValuation(positions{position("AAPL", 1, 1)}).TotalValuation(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewValuation(positions{position("AAPL", 1, 1)}).TotalValuation(ctx, NewFrame())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValuation_Ledger(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, nil)
	record(t, l, "DEPOSIT", Cash, 1000, 1)
	record(t, l, "BUY", "AAPL", 2, 100)

	total, err := NewValuation(l).TotalValuation(ctx, prices(t, Column{Name: "Close (MSFT)", Values: []float64{1, 2}}))
	require.NoError(t, err)
	assert.Equal(t, "1000", total.String(), "AAPL is valued at its last transaction price")
}

func TestPriceColumn(t *testing.T) {
	columns := []string{"Open (AA)", "Close (AAPL)", "Close (AA)"}
	got, err := PriceColumn(columns, "aa")
	require.NoError(t, err)
	assert.Equal(t, "Close (AA)", got, "the symbol must match between parentheses")

	got, err = PriceColumn(columns, "IBM")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSharpe(t *testing.T) {
	f := prices(t, Column{Name: "Close (X)", Values: []float64{100, 110}})
	f.set("Close (X)", f.Index()[1].Add(1), 99)

	returns, err := Returns(f, "Close (X)")
	require.NoError(t, err)
	require.Len(t, returns, 2)

	mean := (returns[0] + returns[1]) / 2
	stdev := math.Sqrt(((returns[0]-mean)*(returns[0]-mean) + (returns[1]-mean)*(returns[1]-mean)) / 1)
	want := (mean*TradingDays - DefaultRiskFree) / (stdev * math.Sqrt(TradingDays))

	got, err := Sharpe(f, "Close (X)", DefaultRiskFree)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
	assert.InDelta(t, -0.0089, got, 1e-4)
}

func TestSharpe_Gaps(t *testing.T) {
	f, err := ParseFrame([]string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04"},
		Column{Name: "A", Values: []float64{100, math.NaN(), 110, 121}},
		Column{Name: "B", Values: []float64{1, 2, 3, 4}},
	)
	require.NoError(t, err)
	returns, err := Returns(f, "A")
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, 0.1, returns[1], 1e-12)
}

func TestSharpe_Undefined(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"single return", []float64{100, 101, math.NaN()}},
		{"zero volatility", []float64{100, 100, 100}},
		{"zero price", []float64{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]string{"2025-01-01", "2025-01-02", "2025-01-03"}, Column{Name: "A", Values: tt.values})
			require.NoError(t, err)
			_, err = Sharpe(f, "A", DefaultRiskFree)
			assert.ErrorIs(t, err, ErrUndefinedRatio)
		})
	}

	_, err := Sharpe(NewFrame(), "A", DefaultRiskFree)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
