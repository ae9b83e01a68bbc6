package tally

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/tally/date"
)

// Frame is a table of named price series indexed by calendar date.
//
// A cell with no value is simply absent from its column's History: the index
// of the frame is the union of the dates of every column.
type Frame struct {
	columns []string
	data    map[string]*date.History[float64]
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{data: make(map[string]*date.History[float64])}
}

// Columns returns the column names, in insertion order.
func (f *Frame) Columns() []string { return slices.Clone(f.columns) }

// Index returns the dates of the frame, ascending.
func (f *Frame) Index() []date.Date {
	return slices.Collect(date.Iterate(f.histories()...))
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	n := 0
	for range date.Iterate(f.histories()...) {
		n++
	}
	return n
}

// Last returns the date of the most recent row, false for an empty frame.
func (f *Frame) Last() (date.Date, bool) {
	var last date.Date
	for _, h := range f.data {
		if day, _ := h.Latest(); h.Len() > 0 && day.After(last) {
			last = day
		}
	}
	return last, !last.IsZero()
}

// Series returns the values of a column.
func (f *Frame) Series(column string) (*date.History[float64], bool) {
	h, ok := f.data[column]
	return h, ok
}

// Value returns the value of a cell, false when the cell is empty.
func (f *Frame) Value(column string, day date.Date) (float64, bool) {
	h, ok := f.data[column]
	if !ok {
		return 0, false
	}
	return h.Get(day)
}

func (f *Frame) histories() []*date.History[float64] {
	hs := make([]*date.History[float64], 0, len(f.columns))
	for _, c := range f.columns {
		hs = append(hs, f.data[c])
	}
	return hs
}

// column returns the history of name, creating an empty column if needed.
func (f *Frame) column(name string) *date.History[float64] {
	h, ok := f.data[name]
	if !ok {
		h = new(date.History[float64])
		f.data[name] = h
		f.columns = append(f.columns, name)
	}
	return h
}

// set stores a cell, non finite values are treated as missing.
func (f *Frame) set(column string, day date.Date, v float64) {
	h := f.column(column)
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		h.Append(day, v)
	}
}

// Column is a named sequence of values, aligned on an index.
type Column struct {
	Name   string
	Values []float64
}

// ParseFrame builds a frame from an index of date-like strings and columns
// aligned on it.
//
// Index values are coerced to calendar dates (see date.Parse) and rows are
// sorted ascending. NaN values are missing cells. It fails with
// ErrInvalidInput when the table is empty, when a column is not aligned with
// the index, when a column name is repeated, or when an index value is not a
// date.
func ParseFrame(index []string, columns ...Column) (*Frame, error) {
	if len(index) == 0 || len(columns) == 0 {
		return nil, fmt.Errorf("%w: empty price table", ErrInvalidInput)
	}
	days := make([]date.Date, len(index))
	for i, s := range index {
		day, err := date.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidInput, i, err)
		}
		days[i] = day
	}
	f := NewFrame()
	for _, c := range columns {
		if len(c.Values) != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values for %d rows", ErrInvalidInput, c.Name, len(c.Values), len(index))
		}
		if _, dup := f.data[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, c.Name)
		}
		f.column(c.Name)
		for i, v := range c.Values {
			f.set(c.Name, days[i], v)
		}
	}
	return f, nil
}

// ReadFrameCSV reads a frame from CSV. The first column is the date index,
// the header row names the other columns, and empty cells are missing.
func ReadFrameCSV(r io.Reader) (*Frame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: empty price table", ErrInvalidInput)
	}
	header, rows := records[0], records[1:]
	index := make([]string, len(rows))
	columns := make([]Column, len(header)-1)
	for j := range columns {
		columns[j] = Column{Name: strings.TrimSpace(header[j+1]), Values: make([]float64, len(rows))}
	}
	for i, row := range rows {
		index[i] = row[0]
		for j := range columns {
			columns[j].Values[i], err = parseCell(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %q: %w", ErrInvalidInput, i+1, columns[j].Name, err)
			}
		}
	}
	return ParseFrame(index, columns...)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteCSV writes the frame as CSV, in the format read by ReadFrameCSV.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Date"}, f.columns...)); err != nil {
		return err
	}
	row := make([]string, len(f.columns)+1)
	for _, day := range f.Index() {
		row[0] = day.String()
		for j, c := range f.columns {
			row[j+1] = ""
			if v, ok := f.Value(c, day); ok {
				row[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// errNoFrame is returned for a nil frame.
var errNoFrame = errors.New("no price table")
