package tally

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request is a caller's demand to record a transaction.
//
// Quantity is always positive, the direction is derived from Kind.
// UnitPrice is expressed in Currency. A zero At means "now".
type Request struct {
	Kind      string
	Symbol    string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Currency  string
	At        time.Time
}

// Transaction is an immutable record of the ledger log.
//
// UnitPrice and Amount are in SEK. SourceCurrency and Rate keep the currency
// the caller used and the multiplier applied, for audit.
type Transaction struct {
	ID             int64           `db:"id" json:"id"`
	Timestamp      time.Time       `db:"ts" json:"timestamp"`
	Kind           Kind            `db:"kind" json:"type"`
	Symbol         string          `db:"symbol" json:"symbol"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	Currency       string          `db:"currency" json:"currency"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	SourceCurrency string          `db:"source_currency" json:"source_currency"`
	Rate           decimal.Decimal `db:"fx_rate" json:"fx_rate"`
}

// Prepare validates a request and computes the transaction it would record.
// It performs no I/O: every structural error is reported before anything is
// written.
//
// A Cash movement in a foreign currency is converted into SEK units, so that
// the Cash position always counts SEK.
func Prepare(req Request, rates Rates, now time.Time) (Transaction, error) {
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return Transaction{}, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return Transaction{}, fmt.Errorf("%w: missing symbol", ErrInvalidArgument)
	}
	if symbol == Cash && !kind.isCashMovement() {
		return Transaction{}, fmt.Errorf("%w: %s is not allowed on %s", ErrInvalidArgument, kind, Cash)
	}
	if !req.Quantity.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidArgument, req.Quantity)
	}
	if req.UnitPrice.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: unit price must not be negative, got %s", ErrInvalidArgument, req.UnitPrice)
	}
	rate, err := rates.Rate(req.Currency)
	if err != nil {
		return Transaction{}, err
	}

	quantity, price := req.Quantity, convert(req.UnitPrice, req.Currency, rate)
	if symbol == Cash {
		quantity, price = convert(req.Quantity, req.Currency, rate), one
	}
	at := req.At
	if at.IsZero() {
		at = now
	}
	return Transaction{
		Timestamp:      at,
		Kind:           kind,
		Symbol:         symbol,
		Quantity:       quantity,
		UnitPrice:      price,
		Currency:       Home,
		Amount:         round(quantity.Mul(price)),
		SourceCurrency: normalizeCode(req.Currency),
		Rate:           rate,
	}, nil
}
