// Package date provides a calendar day type and date-indexed series.
//
// Every value in this package has day granularity: times of day and time
// zones are dropped when a Date is built, so two observations of the same
// calendar day always land on the same index entry.
package date

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

// layouts accepted by Parse, in order. Timestamps are truncated to their day.
var layouts = []string{
	readDateFormat,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/1/2",
}

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.Time().Date()
	return d
}

// Of returns the calendar day of t, in t's own location.
func Of(t time.Time) Date { return New(t.Date()) }

// Today returns the current date.
func Today() Date { return Of(time.Now()) }

// Time returns the canonical representation of that day: midnight UTC.
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// Compare returns -1, 0 or +1 when d is before, equal to or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmpInt(d.y, x.y)
	case d.m != x.m:
		return cmpInt(int(d.m), int(x.m))
	default:
		return cmpInt(d.d, x.d)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// String format the date in its standard format.
func (d Date) String() string { return d.Time().Format(DateFormat) }

// Parse parses a Date from a string.
//
// It is lenient: "2025-7-1", RFC 3339 timestamps and "2025-07-01 13:45:00"
// are all accepted, the time of day being dropped.
func Parse(str string) (Date, error) {
	str = strings.TrimSpace(str)
	for _, layout := range layouts {
		if on, err := time.Parse(layout, str); err == nil {
			return Of(on), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q want format %q", str, DateFormat)
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	v, err := Parse(str)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = (*Date)(nil)

// Range represents an inclusive range of dates.
type Range struct{ From, To Date }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(d Date) bool { return !d.Before(r.From) && !d.After(r.To) }

// Iterate returns an iterator over all unique, sorted dates of several histories.
func Iterate[T any](histories ...*History[T]) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		next := make([]int, len(histories))
		for {
			var (
				first Date
				found bool
			)
			for i, h := range histories {
				if next[i] >= len(h.days) {
					continue
				}
				if on := h.days[next[i]]; !found || on.Before(first) {
					first, found = on, true
				}
			}
			if !found {
				return
			}
			for i, h := range histories {
				if next[i] < len(h.days) && h.days[next[i]] == first {
					next[i]++
				}
			}
			if !yield(first) {
				return
			}
		}
	}
}
