package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	p := Apply(Position{}, Delta{Symbol: "AAPL", Units: D(10), Price: D(150), At: testNow})
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, "10", p.NetUnits.String())
	assert.Equal(t, "1500", p.TotalValue.String())
	assert.Equal(t, testNow, p.LastUpdated)

	p = Apply(p, Delta{Symbol: "AAPL", Units: D(-4), Price: D(160), At: testNow})
	assert.Equal(t, "6", p.NetUnits.String())
	assert.Equal(t, "160", p.LastUnitPrice.String())
	assert.Equal(t, "960", p.TotalValue.String())

	cash := Apply(Position{}, Delta{Symbol: Cash, Units: D(50), Price: D(3)})
	assert.Equal(t, "1", cash.LastUnitPrice.String(), "cash price is pinned")
	assert.Equal(t, "50", cash.TotalValue.String())
}

func TestEffects(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want []Delta
	}{
		{
			name: "buy",
			tx:   Transaction{Kind: Buy, Symbol: "AAPL", Quantity: D(2), UnitPrice: D(10), Amount: D(20)},
			want: []Delta{{Symbol: "AAPL", Units: D(2), Price: D(10)}, {Symbol: Cash, Units: D(-20), Price: one}},
		},
		{
			name: "sell",
			tx:   Transaction{Kind: Sell, Symbol: "AAPL", Quantity: D(2), UnitPrice: D(10), Amount: D(20)},
			want: []Delta{{Symbol: "AAPL", Units: D(-2), Price: D(10)}, {Symbol: Cash, Units: D(20), Price: one}},
		},
		{
			name: "deposit cash",
			tx:   Transaction{Kind: Deposit, Symbol: Cash, Quantity: D(5), UnitPrice: one, Amount: D(5)},
			want: []Delta{{Symbol: Cash, Units: D(5), Price: one}},
		},
		{
			name: "withdraw security",
			tx:   Transaction{Kind: Withdraw, Symbol: "GOLD", Quantity: D(1), UnitPrice: D(7), Amount: D(7)},
			want: []Delta{{Symbol: "GOLD", Units: D(-1), Price: D(7)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Effects(tt.tx)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.Equal(t, tt.want[i].Symbol, got[i].Symbol)
				assert.True(t, tt.want[i].Units.Equal(got[i].Units), "units %s, want %s", got[i].Units, tt.want[i].Units)
				assert.True(t, tt.want[i].Price.Equal(got[i].Price), "price %s, want %s", got[i].Price, tt.want[i].Price)
			}
		})
	}
}

func TestReplayAndOpen(t *testing.T) {
	txs := []Transaction{
		{Kind: Deposit, Symbol: Cash, Quantity: D(1000), UnitPrice: one, Amount: D(1000)},
		{Kind: Buy, Symbol: "MSFT", Quantity: D(2), UnitPrice: D(100), Amount: D(200)},
		{Kind: Buy, Symbol: "AAPL", Quantity: D(1), UnitPrice: D(300), Amount: D(300)},
		{Kind: Buy, Symbol: "IBM", Quantity: D(1), UnitPrice: D(50), Amount: D(50)},
		{Kind: Sell, Symbol: "IBM", Quantity: D(1), UnitPrice: D(60), Amount: D(60)},
	}
	positions := Replay(txs)
	var symbols []string
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	assert.Equal(t, []string{"AAPL", "CASH", "IBM", "MSFT"}, symbols)

	open := Open(positions)
	symbols = symbols[:0]
	for _, p := range open {
		symbols = append(symbols, p.Symbol)
	}
	// CASH is 1000-200-300-50+60 = 510, then AAPL 300 and MSFT 200. IBM is closed.
	assert.Equal(t, []string{"CASH", "AAPL", "MSFT"}, symbols)
	assert.Equal(t, "510", open[0].NetUnits.String())
}
