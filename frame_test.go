package tally

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/etnz/tally/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame(
		[]string{"2025-01-03", "2025-01-01T15:00:00Z", "2025-01-02 09:30:00"},
		Column{Name: "Close (AAPL)", Values: []float64{3, 1, math.NaN()}},
		Column{Name: "Close (MSFT)", Values: []float64{30, 10, 20}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Close (AAPL)", "Close (MSFT)"}, f.Columns())
	assert.Equal(t, []date.Date{
		date.New(2025, time.January, 1),
		date.New(2025, time.January, 2),
		date.New(2025, time.January, 3),
	}, f.Index())
	assert.Equal(t, 3, f.Len())

	_, ok := f.Value("Close (AAPL)", date.New(2025, time.January, 2))
	assert.False(t, ok, "NaN is a missing value")
	v, ok := f.Value("Close (MSFT)", date.New(2025, time.January, 2))
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	last, ok := f.Last()
	assert.True(t, ok)
	assert.Equal(t, date.New(2025, time.January, 3), last)
}

func TestParseFrame_Errors(t *testing.T) {
	tests := []struct {
		name    string
		index   []string
		columns []Column
	}{
		{"empty index", nil, []Column{{Name: "A"}}},
		{"no column", []string{"2025-01-01"}, nil},
		{"length mismatch", []string{"2025-01-01", "2025-01-02"}, []Column{{Name: "A", Values: []float64{1}}}},
		{"duplicate column", []string{"2025-01-01"}, []Column{{Name: "A", Values: []float64{1}}, {Name: "A", Values: []float64{2}}}},
		{"not a date", []string{"yesterday"}, []Column{{Name: "A", Values: []float64{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.index, tt.columns...)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFrameCSV(t *testing.T) {
	input := `Date,Close (AAPL),Open (AAPL)
2025-01-02,101.5,
2025-01-01,100,99.5
`
	f, err := ReadFrameCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	_, ok := f.Value("Open (AAPL)", date.New(2025, time.January, 2))
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, `Date,Close (AAPL),Open (AAPL)
2025-01-01,100,99.5
2025-01-02,101.5,
`, buf.String())

	_, err = ReadFrameCSV(strings.NewReader("Date,A\n2025-01-01,abc\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ReadFrameCSV(strings.NewReader("Date,A\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestForge_Merge(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2025, time.January, d, h, 0, 0, 0, time.UTC) }
	forge := NewForge()

	forge.Merge(Series{{At: day(2, 16), Value: 2}, {At: day(1, 16), Value: 1}}, "A")
	f := forge.Merge(Series{{At: day(3, 0), Value: 30}, {At: day(2, 9), Value: 20}}, "B")

	assert.Equal(t, []string{"A", "B"}, f.Columns())
	require.Equal(t, 3, f.Len())
	assert.Equal(t, date.New(2025, time.January, 1), f.Index()[0])

	_, ok := f.Value("B", date.New(2025, time.January, 1))
	assert.False(t, ok, "B has a gap before its first date")
	_, ok = f.Value("A", date.New(2025, time.January, 3))
	assert.False(t, ok, "A has a gap on the new date")
	v, _ := f.Value("B", date.New(2025, time.January, 2))
	assert.Equal(t, 20.0, v)

	forge.Merge(Series{{At: day(2, 23), Value: 2.5}}, "A")
	v, _ = f.Value("A", date.New(2025, time.January, 2))
	assert.Equal(t, 2.5, v, "merging a label again overwrites its values")
	assert.Equal(t, []string{"A", "B"}, forge.Frame().Columns())
}
