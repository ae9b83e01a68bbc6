package tally

import "github.com/shopspring/decimal"

// Precision is the number of decimal places kept for converted prices and amounts.
const Precision = 4

var one = decimal.NewFromInt(1)

// round rounds d half away from zero to Precision places.
func round(d decimal.Decimal) decimal.Decimal { return d.Round(Precision) }

// D returns the decimal value of a number. Floats are taken by their shortest
// representation, so D(0.1) is exactly 0.1.
func D[T float64 | int | int64](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}
