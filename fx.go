package tally

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Home is the currency every price and amount of the ledger is expressed in.
const Home = "SEK"

// Rates maps a currency code to the number of SEK for one unit of it.
//
// Rates are applied when a transaction is recorded and never revisited:
// changing the table does not affect transactions already in the ledger.
type Rates map[string]decimal.Decimal

// DefaultRates returns the built-in FX table.
func DefaultRates() Rates {
	return Rates{
		Home:  one,
		"USD": decimal.RequireFromString("9.3"),
		"EUR": decimal.RequireFromString("10.92"),
	}
}

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// Rate returns the SEK multiplier of a currency, the lookup is case-insensitive.
func (r Rates) Rate(code string) (decimal.Decimal, error) {
	code = normalizeCode(code)
	if code == Home {
		return one, nil
	}
	rate, ok := r[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q, want one of %s", ErrUnsupportedCurrency, code, strings.Join(r.Currencies(), ", "))
	}
	return rate, nil
}

// ToSEK converts a price expressed in currency code into SEK. A converted
// price is rounded to Precision places, a SEK price is returned as is.
func (r Rates) ToSEK(price decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, err := r.Rate(code)
	if err != nil {
		return decimal.Zero, err
	}
	return convert(price, code, rate), nil
}

func convert(v decimal.Decimal, code string, rate decimal.Decimal) decimal.Decimal {
	if normalizeCode(code) == Home {
		return v
	}
	return round(v.Mul(rate))
}

// With returns a copy of r updated with the given rates, typically read from
// a configuration file.
func (r Rates) With(overrides map[string]float64) Rates {
	next := make(Rates, len(r)+len(overrides))
	for code, rate := range r {
		next[normalizeCode(code)] = rate
	}
	for code, rate := range overrides {
		next[normalizeCode(code)] = D(rate)
	}
	return next
}

// Validate checks that every code is an ISO 4217 currency, that every rate is
// positive, and that SEK maps to 1.
func (r Rates) Validate() error {
	for code, rate := range r {
		if money.GetCurrency(code) == nil {
			return fmt.Errorf("%w: %q is not an ISO 4217 code", ErrUnsupportedCurrency, code)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("%w: rate for %s must be positive, got %s", ErrInvalidArgument, code, rate)
		}
		if code == Home && !rate.Equal(one) {
			return fmt.Errorf("%w: rate for %s must be 1, got %s", ErrInvalidArgument, Home, rate)
		}
	}
	return nil
}

// Currencies returns the sorted list of supported codes.
func (r Rates) Currencies() []string {
	codes := slices.Collect(maps.Keys(r))
	if _, ok := r[Home]; !ok {
		codes = append(codes, Home)
	}
	slices.Sort(codes)
	return codes
}
