// Package eodhd fetches daily prices from the EOD Historical Data API.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/tally"
	"github.com/etnz/tally/date"
)

// DefaultBaseURL is the root of the EODHD API.
const DefaultBaseURL = "https://eodhd.com/api"

// Client is a tally.PriceProvider on the EODHD end-of-day API.
type Client struct {
	BaseURL string
	APIKey  string
	// Suffix is the exchange appended to symbols that have none, e.g. ".US".
	Suffix string
	// Currency of the prices. When empty, the currency of the exchange is used.
	Currency string
	// HTTP client used for price queries.
	HTTP *http.Client
	// Exchanges is the HTTP client used for the list of exchanges, which
	// rarely changes.
	Exchanges *http.Client
}

// New returns a client with an API key, caching responses on disk: prices
// for a day, the list of exchanges for a month.
func New(apiKey string) *Client {
	return &Client{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		Suffix:    ".US",
		HTTP:      newCachingClient(24 * time.Hour),
		Exchanges: newCachingClient(30 * 24 * time.Hour),
	}
}

// Ticker returns the EODHD ticker of symbol: "SYMBOL.EXCHANGE".
func (c *Client) Ticker(symbol string) string {
	if strings.Contains(symbol, ".") || c.Suffix == "" {
		return symbol
	}
	return symbol + "." + strings.TrimPrefix(c.Suffix, ".")
}

// History implements tally.PriceProvider.
func (c *Client) History(ctx context.Context, symbol string, r date.Range) (tally.PriceHistory, error) {
	// https://eodhd.com/api/eod/MCD.US?api_token=demo&fmt=json&from=2024-01-01&to=2024-02-01
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	},
	// bounds are included in the response.
	ticker := c.Ticker(symbol)
	query := url.Values{"fmt": {"json"}, "api_token": {c.APIKey}}
	if !r.From.IsZero() {
		query.Set("from", r.From.String())
	}
	if !r.To.IsZero() {
		query.Set("to", r.To.String())
	}
	addr := fmt.Sprintf("%s/eod/%s?%s", c.baseURL(), url.PathEscape(ticker), query.Encode())

	type info struct {
		Date  date.Date `json:"date"`
		Open  float64   `json:"open"`
		High  float64   `json:"high"`
		Low   float64   `json:"low"`
		Close float64   `json:"close"`
	}
	content := make([]info, 0)
	if err := jwget(ctx, c.client(c.HTTP), addr, &content); err != nil {
		return tally.PriceHistory{}, fmt.Errorf("eodhd prices of %s: %w", ticker, err)
	}

	h := tally.PriceHistory{Symbol: symbol, Currency: c.Currency}
	for _, i := range content {
		h.Bars = append(h.Bars, tally.Bar{Day: i.Date, Open: i.Open, High: i.High, Low: i.Low, Close: i.Close})
	}
	if h.Currency == "" {
		currency, err := c.exchangeCurrency(ctx, ticker)
		if err != nil {
			return tally.PriceHistory{}, err
		}
		h.Currency = currency
	}
	return h, nil
}

// exchangeCurrency returns the trading currency of the exchange of ticker.
func (c *Client) exchangeCurrency(ctx context.Context, ticker string) (string, error) {
	// https://eodhd.com/api/exchanges-list/?api_token=demo&fmt=json
	// [
	//	{
	//		"Name": "Frankfurt Exchange",
	//		"Code": "F",
	//		"OperatingMIC": "XFRA",
	//		"Country": "Germany",
	//		"Currency": "EUR",
	//		"CountryISO2": "DE",
	//		"CountryISO3": "DEU"
	//	},
	_, exchange, ok := strings.Cut(ticker, ".")
	if !ok {
		return "", fmt.Errorf("ticker %q has no exchange", ticker)
	}
	query := url.Values{"fmt": {"json"}, "api_token": {c.APIKey}}
	addr := fmt.Sprintf("%s/exchanges-list/?%s", c.baseURL(), query.Encode())

	type info struct {
		Code     string
		Currency string
	}
	content := make([]info, 0)
	if err := jwget(ctx, c.client(c.Exchanges), addr, &content); err != nil {
		return "", fmt.Errorf("eodhd exchanges: %w", err)
	}
	for _, i := range content {
		if strings.EqualFold(i.Code, exchange) {
			return strings.ToUpper(i.Currency), nil
		}
	}
	return "", fmt.Errorf("unknown eodhd exchange %q", exchange)
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(c.BaseURL, "/")
}

func (c *Client) client(h *http.Client) *http.Client {
	if h == nil {
		return http.DefaultClient
	}
	return h
}
