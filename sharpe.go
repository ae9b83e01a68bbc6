package tally

import (
	"fmt"
	"math"
)

const (
	// TradingDays is the number of periods used to annualize daily returns.
	TradingDays = 252
	// DefaultRiskFree is the annual risk-free rate used by default.
	DefaultRiskFree = 0.02
)

// Returns computes the simple period-over-period returns of column, the
// first (undefined) return being dropped. Missing values are skipped: a
// return is computed between two consecutive observations.
func Returns(prices *Frame, column string) ([]float64, error) {
	if prices == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, errNoFrame)
	}
	series, ok := prices.Series(column)
	if !ok {
		return nil, fmt.Errorf("%w: no column %q", ErrInvalidInput, column)
	}
	var returns []float64
	previous, started := 0.0, false
	for _, v := range series.Values() {
		if started {
			returns = append(returns, v/previous-1)
		}
		previous, started = v, true
	}
	return returns, nil
}

// Sharpe returns the annualized Sharpe ratio of the prices in column:
//
//	(mean(r)*TradingDays - riskFree) / (stdev(r)*sqrt(TradingDays))
//
// where r are the daily returns and stdev is the sample standard deviation.
//
// The ratio is undefined, and ErrUndefinedRatio returned, when there are
// fewer than two returns, when the volatility is zero, or when a return is
// not finite (a zero price).
func Sharpe(prices *Frame, column string, riskFree float64) (float64, error) {
	returns, err := Returns(prices, column)
	if err != nil {
		return 0, err
	}
	n := len(returns)
	if n < 2 {
		return 0, fmt.Errorf("%w: %d returns in %q", ErrUndefinedRatio, n, column)
	}
	var sum float64
	for _, r := range returns {
		if math.IsInf(r, 0) || math.IsNaN(r) {
			return 0, fmt.Errorf("%w: non finite return in %q", ErrUndefinedRatio, column)
		}
		sum += r
	}
	mean := sum / float64(n)
	var squares float64
	for _, r := range returns {
		squares += (r - mean) * (r - mean)
	}
	stdev := math.Sqrt(squares / float64(n-1))
	if stdev == 0 || math.IsNaN(stdev) || math.IsInf(stdev, 0) {
		return 0, fmt.Errorf("%w: zero volatility in %q", ErrUndefinedRatio, column)
	}
	return (mean*TradingDays - riskFree) / (stdev * math.Sqrt(TradingDays)), nil
}
