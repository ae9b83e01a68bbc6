package tally

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed transaction request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedCurrency reports a currency code missing from the FX table.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrStorage reports a failure of the underlying store. The ledger has
	// been rolled back when it is returned.
	ErrStorage = errors.New("storage failure")
	// ErrEmptyPortfolio reports a valuation requested with no open position.
	ErrEmptyPortfolio = errors.New("empty portfolio")
	// ErrInvalidInput reports a price table that is missing, empty, or not date indexed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAmbiguousPriceColumn reports several close columns for the same symbol.
	ErrAmbiguousPriceColumn = errors.New("ambiguous price column")
	// ErrUndefinedRatio reports a ratio that has no finite value (too few
	// observations or zero volatility).
	ErrUndefinedRatio = errors.New("undefined ratio")
)

// storageErr wraps err so that it matches both ErrStorage and err.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
