package tally

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 3, 10, 30, 0, 0, time.UTC)

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestPrepare_Conversion(t *testing.T) {
	tx, err := Prepare(Request{Kind: "buy", Symbol: "aapl", Quantity: D(10), UnitPrice: D(100), Currency: "usd"}, DefaultRates(), testNow)
	require.NoError(t, err)

	assert.Equal(t, Buy, tx.Kind)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.Equal(t, "930", tx.UnitPrice.String())
	assert.Equal(t, "9300", tx.Amount.String())
	assert.Equal(t, "SEK", tx.Currency)
	assert.Equal(t, "USD", tx.SourceCurrency)
	assert.Equal(t, "9.3", tx.Rate.String())
	assert.Equal(t, testNow, tx.Timestamp)
}

func TestPrepare_Rounding(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		price     string
		currency  string
		wantPrice string
		wantTotal string
	}{
		{"sek price kept", "3", "1.23456", "SEK", "1.23456", "3.7037"},
		{"amount on the exact price", "3", "101.33333", "sek", "101.33333", "304"},
		{"converted price rounded", "3", "1.23456", "USD", "11.4814", "34.4442"},
		{"half away from zero", "1", "0.00005", "SEK", "0.00005", "0.0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Kind: "SELL", Symbol: "X", Quantity: decimalOf(t, tt.quantity), UnitPrice: decimalOf(t, tt.price), Currency: tt.currency}
			tx, err := Prepare(req, DefaultRates(), testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, tx.UnitPrice.String())
			assert.Equal(t, tt.wantTotal, tx.Amount.String())
		})
	}
}

func TestPrepare_Cash(t *testing.T) {
	at := testNow.Add(-time.Hour)
	tx, err := Prepare(Request{Kind: "Deposit", Symbol: "cash", Quantity: D(100), UnitPrice: D(5), Currency: "SEK", At: at}, DefaultRates(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "1", tx.UnitPrice.String(), "cash price is forced to 1")
	assert.Equal(t, "100", tx.Amount.String())
	assert.Equal(t, at, tx.Timestamp)

	tx, err = Prepare(Request{Kind: "deposit", Symbol: Cash, Quantity: D(100), UnitPrice: D(1), Currency: "EUR"}, DefaultRates(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "1092", tx.Quantity.String(), "foreign cash is counted in SEK")
	assert.Equal(t, "1092", tx.Amount.String())
}

func TestPrepare_Errors(t *testing.T) {
	valid := Request{Kind: "BUY", Symbol: "AAPL", Quantity: D(1), UnitPrice: D(1), Currency: "SEK"}
	tests := []struct {
		name    string
		edit    func(*Request)
		wantErr error
	}{
		{"unknown kind", func(r *Request) { r.Kind = "hold" }, ErrInvalidArgument},
		{"empty kind", func(r *Request) { r.Kind = "" }, ErrInvalidArgument},
		{"buy cash", func(r *Request) { r.Symbol = "CASH" }, ErrInvalidArgument},
		{"sell cash", func(r *Request) { r.Kind, r.Symbol = "sell", "cash" }, ErrInvalidArgument},
		{"missing symbol", func(r *Request) { r.Symbol = " " }, ErrInvalidArgument},
		{"zero quantity", func(r *Request) { r.Quantity = D(0) }, ErrInvalidArgument},
		{"negative quantity", func(r *Request) { r.Quantity = D(-1) }, ErrInvalidArgument},
		{"negative price", func(r *Request) { r.UnitPrice = D(-1) }, ErrInvalidArgument},
		{"unknown currency", func(r *Request) { r.Currency = "JPY" }, ErrUnsupportedCurrency},
		{"missing currency", func(r *Request) { r.Currency = "" }, ErrUnsupportedCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.edit(&req)
			_, err := Prepare(req, DefaultRates(), testNow)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
