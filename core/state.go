package core

import (
	"fmt"
	"time"
)

// Bounds is the earliest and latest slot for which a profile holds data.
type Bounds struct {
	Start int64 `json:"tstart"`
	End   int64 `json:"tend"`
}

func (b Bounds) Contains(ts int64) bool {
	return ts >= b.Start && ts <= b.End
}

// State is the window and cursor of one navigation session.
type State struct {
	Scale       int   `json:"wsize"`
	WindowStart int64 `json:"tstart"`
	WindowEnd   int64 `json:"tend"`
	CursorLeft  int64 `json:"tleft"`
	CursorRight int64 `json:"tright"`
}

// NewState returns the state shown on first entry into a profile: the
// window ends at the latest data and a point cursor sits half a day before
// it, or at the first slot for shorter profiles.
func NewState(b Bounds, scale int, cycle int64) State {
	if cycle <= 0 {
		cycle = DefaultCycleTime
	}
	if !ValidScale(scale) {
		scale = DefaultScale
	}
	cursor := b.End - floorTo(initialCursorOffset, cycle)
	if cursor < b.Start {
		cursor = b.Start
	}
	return State{
		Scale:       scale,
		WindowStart: b.End - FullRange(scale, cycle),
		WindowEnd:   b.End,
		CursorLeft:  cursor,
		CursorRight: cursor,
	}
}

// IsPoint reports whether the cursor selects a single slot.
func (s State) IsPoint() bool {
	return s.CursorLeft == s.CursorRight
}

// Span is the number of seconds covered by the cursor, including the last
// slot, so a point cursor spans one cycle.
func (s State) Span(cycle int64) int64 {
	return s.CursorRight - s.CursorLeft + cycle
}

const timeslotLayout = "Jan 02 2006 - 15:04"

// Timeslot renders the cursor for the statistics header.
func (s State) Timeslot(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	left := time.Unix(s.CursorLeft, 0).In(loc).Format(timeslotLayout)
	if s.IsPoint() {
		return "timeslot " + left
	}
	right := time.Unix(s.CursorRight, 0).In(loc).Format(timeslotLayout)
	return fmt.Sprintf("timeslot %s - %s", left, right)
}
