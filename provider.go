package tally

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/etnz/tally/date"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Bar holds the daily prices of a security.
type Bar struct {
	Day                    date.Date
	Open, High, Low, Close float64
}

// PriceHistory is the daily price series of a symbol, one bar per calendar
// day, in the currency of its market.
type PriceHistory struct {
	Symbol   string
	Currency string
	Bars     []Bar
}

// PriceProvider fetches price histories from a market data source.
type PriceProvider interface {
	History(ctx context.Context, symbol string, r date.Range) (PriceHistory, error)
}

// ColumnName returns the name of the frame column holding field prices of symbol,
// e.g. "Close (AAPL)".
func ColumnName(field, symbol string) string { return fmt.Sprintf("%s (%s)", field, symbol) }

// DefaultRange is the range of prices fetched when none is given: from the
// first day of 2020 up to today.
func DefaultRange(today date.Date) date.Range {
	return date.Range{From: date.New(2020, time.January, 1), To: today}
}

// PriceLoader fetches price histories and merges them, converted to SEK, in a Forge.
type PriceLoader struct {
	Provider PriceProvider
	Rates    Rates
	Metrics  *Metrics // optional
}

// Load merges the Open, High, Low and Close prices of every symbol in forge.
//
// A symbol that cannot be fetched, or whose currency is not in the rates,
// contributes no column: the failure is logged and counted, and valuation
// falls back to the last transaction price. CASH is never fetched. Only
// context cancellation is returned as an error.
func (l PriceLoader) Load(ctx context.Context, forge *Forge, r date.Range, symbols ...string) (*Frame, error) {
	for _, symbol := range symbols {
		if symbol == Cash {
			continue
		}
		if err := ctx.Err(); err != nil {
			return forge.Frame(), err
		}
		if err := l.load(ctx, forge, r, symbol); err != nil {
			l.Metrics.countFetchFailure(symbol)
			log.Warn().Err(err).Str("symbol", symbol).Msg("no price data")
		}
	}
	return forge.Frame(), nil
}

func (l PriceLoader) load(ctx context.Context, forge *Forge, r date.Range, symbol string) error {
	h, err := l.Provider.History(ctx, symbol, r)
	if err != nil {
		return err
	}
	code := h.Currency
	if code == "" {
		code = Home
	}
	if _, err := l.Rates.Rate(code); err != nil {
		return err
	}
	fields := []struct {
		name string
		get  func(Bar) float64
	}{
		{"Open", func(b Bar) float64 { return b.Open }},
		{"High", func(b Bar) float64 { return b.High }},
		{"Low", func(b Bar) float64 { return b.Low }},
		{"Close", func(b Bar) float64 { return b.Close }},
	}
	for _, field := range fields {
		series := make(Series, 0, len(h.Bars))
		for _, b := range h.Bars {
			price := field.get(b)
			if !r.Contains(b.Day) || math.IsNaN(price) || math.IsInf(price, 0) {
				continue
			}
			sek, err := l.Rates.ToSEK(D(price), code)
			if err != nil {
				return err
			}
			v, _ := sek.Float64()
			series = append(series, Point{At: b.Day.Time(), Value: v})
		}
		forge.Merge(series, ColumnName(field.name, symbol))
	}
	log.Debug().Str("symbol", symbol).Str("currency", code).Int("bars", len(h.Bars)).Msg("prices loaded")
	return nil
}

// GuardedProvider paces the requests to a provider and stops calling it
// once it keeps failing.
type GuardedProvider struct {
	provider PriceProvider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// Guard wraps p with a limiter of perSecond requests (no limit if not
// positive) and a circuit breaker that opens after three consecutive
// failures and probes again after a minute.
func Guard(p PriceProvider, name string, perSecond float64) *GuardedProvider {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	st := gobreaker.Settings{Name: name, Timeout: time.Minute}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 3 }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("provider", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
	}
	return &GuardedProvider{
		provider: p,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  gobreaker.NewCircuitBreaker(st),
	}
}

// History implements PriceProvider.
func (g *GuardedProvider) History(ctx context.Context, symbol string, r date.Range) (PriceHistory, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return PriceHistory{}, err
	}
	v, err := g.breaker.Execute(func() (interface{}, error) {
		return g.provider.History(ctx, symbol, r)
	})
	if err != nil {
		return PriceHistory{}, err
	}
	return v.(PriceHistory), nil
}
