// Package yahoo fetches daily prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/tally"
	"github.com/etnz/tally/date"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the root of the chart API.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a tally.PriceProvider on the Yahoo chart API.
type Client struct {
	BaseURL string
	// Suffix is the market appended to symbols that have none, e.g. ".ST".
	Suffix string
	HTTP   *http.Client
}

// New returns a client on the public API.
func New() *Client {
	return &Client{BaseURL: DefaultBaseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Ticker returns the Yahoo symbol of symbol.
func (c *Client) Ticker(symbol string) string {
	if strings.Contains(symbol, ".") || c.Suffix == "" {
		return symbol
	}
	return symbol + "." + strings.TrimPrefix(c.Suffix, ".")
}

/*
	{
	    "chart": {
	        "result": [{
	            "meta": {"currency": "USD", "symbol": "AAPL", "gmtoffset": -14400, ...},
	            "timestamp": [1704205800, 1704292200],
	            "indicators": {
	                "quote": [{"open": [...], "high": [...], "low": [...], "close": [...], "volume": [...]}],
	                "adjclose": [{"adjclose": [...]}]
	            }
	        }],
	        "error": null
	    }
	}
*/

// History implements tally.PriceProvider.
func (c *Client) History(ctx context.Context, symbol string, r date.Range) (tally.PriceHistory, error) {
	ticker := c.Ticker(symbol)
	jobj, err := c.chart(ctx, ticker, r)
	if err != nil {
		return tally.PriceHistory{}, fmt.Errorf("yahoo chart of %s: %w", ticker, err)
	}

	currency, _ := get(jobj, "$.chart.result[0].meta.currency").(string)
	offset, _ := get(jobj, "$.chart.result[0].meta.gmtoffset").(float64)
	stamps, ok := get(jobj, "$.chart.result[0].timestamp").([]any)
	if !ok {
		return tally.PriceHistory{}, fmt.Errorf("yahoo chart of %s: no data", ticker)
	}
	fields := make([][]any, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		fields[i], _ = get(jobj, "$.chart.result[0].indicators.quote[0]."+name).([]any)
	}

	h := tally.PriceHistory{Symbol: symbol, Currency: strings.ToUpper(currency)}
	for i, stamp := range stamps {
		sec, ok := stamp.(float64)
		if !ok {
			continue
		}
		// The day is the one of the exchange.
		day := date.Of(time.Unix(int64(sec+offset), 0).UTC())
		bar := tally.Bar{
			Day:   day,
			Open:  at(fields[0], i),
			High:  at(fields[1], i),
			Low:   at(fields[2], i),
			Close: at(fields[3], i),
		}
		if math.IsNaN(bar.Close) {
			continue
		}
		// The live point of the current day may repeat the last bar.
		if n := len(h.Bars); n > 0 && h.Bars[n-1].Day == day {
			h.Bars[n-1] = bar
			continue
		}
		h.Bars = append(h.Bars, bar)
	}
	log.Debug().Str("ticker", ticker).Int("bars", len(h.Bars)).Msg("yahoo")
	return h, nil
}

func (c *Client) chart(ctx context.Context, ticker string, r date.Range) (any, error) {
	query := url.Values{"interval": {"1d"}, "events": {"history"}}
	from, to := r.From, r.To
	if from.IsZero() {
		from = tally.DefaultRange(date.Today()).From
	}
	if to.IsZero() {
		to = date.Today()
	}
	query.Set("period1", fmt.Sprint(from.Time().Unix()))
	query.Set("period2", fmt.Sprint(to.Add(1).Time().Unix()))

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimSuffix(base, "/"), url.PathEscape(ticker), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	// The API rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tly)")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return nil, fmt.Errorf("%s: %w", resp.Status, err)
	}
	if description, ok := get(jobj, "$.chart.error.description").(string); ok {
		return nil, errors.New(description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return jobj, nil
}

// get evaluates a json path, nil if it does not match.
func get(jobj any, path string) any {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil
	}
	return jval
}

// at returns the i-th number of values, NaN for a null or a missing one.
func at(values []any, i int) float64 {
	if i >= len(values) {
		return math.NaN()
	}
	v, ok := values[i].(float64)
	if !ok {
		return math.NaN()
	}
	return v
}
