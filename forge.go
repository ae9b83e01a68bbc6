package tally

import (
	"time"

	"github.com/etnz/tally/date"
)

// Point is a timestamped observation.
type Point struct {
	At    time.Time
	Value float64
}

// Series is a sequence of observations, in any order.
type Series []Point

// Forge accumulates several series into a single date-aligned Frame.
type Forge struct {
	frame *Frame
}

// NewForge returns a forge with an empty frame.
func NewForge() *Forge { return &Forge{frame: NewFrame()} }

// Frame returns the accumulated frame.
func (f *Forge) Frame() *Frame { return f.frame }

// Merge outer-joins series into the accumulated frame as the column label,
// and returns the frame.
//
// Timestamps are normalized to their calendar day. New dates become new rows
// with gaps in the other columns, a new label becomes a new column with gaps
// on the rows it has no value for. Merging an existing label overwrites its
// values on the same dates. Rows are always sorted by date.
func (f *Forge) Merge(series Series, label string) *Frame {
	f.frame.column(label)
	for _, p := range series {
		f.frame.set(label, date.Of(p.At), p.Value)
	}
	return f.frame
}
