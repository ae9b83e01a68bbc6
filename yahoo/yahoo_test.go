package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/tally/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02 and 2024-01-03 at 09:30 New York, then a live point on 2024-01-03.
const chart = `{"chart": {"result": [{
	"meta": {"currency": "usd", "symbol": "AAPL", "gmtoffset": -18000},
	"timestamp": [1704205800, 1704292200, 1704310000],
	"indicators": {
		"quote": [{
			"open":  [187.15, 184.22, null],
			"high":  [188.44, 185.88, null],
			"low":   [183.89, 183.43, null],
			"close": [185.64, 184.25, 184.5]
		}],
		"adjclose": [{"adjclose": [185.1, 183.7, 184.0]}]
	}
}], "error": null}}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1704153600", r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, chart)
	})
	mux.HandleFunc("/v8/finance/chart/NOPE.ST", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var jan = date.Range{From: date.New(2024, time.January, 2), To: date.New(2024, time.January, 3)}

func TestClient_History(t *testing.T) {
	srv := newServer(t)
	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}

	h, err := c.History(context.Background(), "AAPL", jan)
	require.NoError(t, err)
	assert.Equal(t, "USD", h.Currency)
	require.Len(t, h.Bars, 2, "the live point replaces the bar of its day")

	assert.Equal(t, date.New(2024, time.January, 2), h.Bars[0].Day)
	assert.Equal(t, 187.15, h.Bars[0].Open)
	assert.Equal(t, 185.64, h.Bars[0].Close)

	assert.Equal(t, date.New(2024, time.January, 3), h.Bars[1].Day)
	assert.Equal(t, 184.5, h.Bars[1].Close)
	assert.True(t, math.IsNaN(h.Bars[1].Open), "null is a missing value")
}

func TestClient_HistoryError(t *testing.T) {
	srv := newServer(t)
	c := &Client{BaseURL: srv.URL, Suffix: ".ST", HTTP: srv.Client()}

	_, err := c.History(context.Background(), "NOPE", jan)
	assert.ErrorContains(t, err, "No data found")
}

func TestClient_Ticker(t *testing.T) {
	c := &Client{Suffix: "ST"}
	assert.Equal(t, "VOLV-B.ST", c.Ticker("VOLV-B"))
	assert.Equal(t, "AAPL.US", c.Ticker("AAPL.US"))
}
