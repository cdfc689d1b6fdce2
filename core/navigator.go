package core

import (
	"context"
	"errors"
)

// Warnings returned by Advance. They are shown to the user verbatim.
const (
	WarnMarkOutside  = "Mark outside available timeframe"
	WarnNoPeak       = "Could not find max time slot"
	WarnInvalidScale = "Unknown window size, using default"
)

var ErrPeakNotFound = errors.New("no peak in time window")

// PeakFinder locates the slot with the highest value between start and end.
type PeakFinder interface {
	FindPeak(ctx context.Context, start, end int64) (int64, error)
}

// Action is one navigation input. The set of actions is closed.
type Action interface {
	navAction()
}

type (
	// SetScale selects a window size from Scales.
	SetScale struct{ Index int }
	// SetEnd moves the right edge of the window.
	SetEnd struct{ End int64 }
	// Page applies one of the paging buttons.
	Page struct{ Move Move }
	// SetCursorLeft places the left cursor mark.
	SetCursorLeft struct{ At int64 }
	// SetCursorRight places the right cursor mark.
	SetCursorRight struct{ At int64 }
	// NoOp re-derives and clamps the state without changing it.
	NoOp struct{}
)

func (SetScale) navAction()       {}
func (SetEnd) navAction()         {}
func (Page) navAction()           {}
func (SetCursorLeft) navAction()  {}
func (SetCursorRight) navAction() {}
func (NoOp) navAction()           {}

type Move int

const (
	StepForward Move = iota + 1
	StepBack
	PageForward
	PageBack
	JumpToEnd
	Center
	JumpToPeak
)

var moveNames = map[Move]string{
	StepForward: "step-forward",
	StepBack:    "step-back",
	PageForward: "page-forward",
	PageBack:    "page-back",
	JumpToEnd:   "jump-to-end",
	Center:      "center",
	JumpToPeak:  "jump-to-peak",
}

func (m Move) String() string {
	if s, ok := moveNames[m]; ok {
		return s
	}
	return "none"
}

// Navigator folds navigation actions onto a State. It keeps no state of its
// own and may be shared between sessions.
type Navigator struct {
	CycleTime     int64
	MarginPercent int64
	Peaks         PeakFinder
}

func NewNavigator(cycle int64, marginPercent int, peaks PeakFinder) *Navigator {
	if cycle <= 0 {
		cycle = DefaultCycleTime
	}
	if marginPercent < 0 || marginPercent >= 50 {
		marginPercent = 10
	}
	return &Navigator{
		CycleTime:     cycle,
		MarginPercent: int64(marginPercent),
		Peaks:         peaks,
	}
}

// WithPeaks returns a copy of n searching peaks with p.
func (n *Navigator) WithPeaks(p PeakFinder) *Navigator {
	cp := *n
	cp.Peaks = p
	return &cp
}

type plan struct {
	scale *int
	end   *int64
	move  Move
	left  *int64
	right *int64
}

func collect(actions []Action) plan {
	var p plan
	for _, a := range actions {
		switch a := a.(type) {
		case SetScale:
			idx := a.Index
			p.scale = &idx
		case SetEnd:
			end := a.End
			p.end = &end
		case Page:
			p.move = a.Move
		case SetCursorLeft:
			at := a.At
			p.left = &at
		case SetCursorRight:
			at := a.At
			p.right = &at
		}
	}
	return p
}

// Advance applies actions to st within the profile bounds b and returns
// the new state with any warnings. The steps always run in the same order
// regardless of the order of actions: window end, scale, window start,
// paging or cursor edits, recentering. A paging move suppresses cursor
// edits of the same call. When several actions of one kind are given the
// last one wins.
func (n *Navigator) Advance(ctx context.Context, st State, b Bounds, actions ...Action) (State, []string) {
	cycle := n.cycle()
	p := collect(actions)
	var warnings []string

	if p.end != nil {
		st.WindowEnd = *p.end
		if b.Contains(st.WindowEnd) {
			st.WindowEnd = max(floorTo(st.WindowEnd, cycle), b.Start)
		}
	}
	if st.WindowEnd > b.End || st.WindowEnd < b.Start {
		st.WindowEnd = b.End
	}
	// expired data: the old cursor no longer touches the profile
	if st.CursorRight < b.Start || st.CursorLeft > b.End {
		st.CursorLeft = b.End
		st.CursorRight = b.End
	}

	if p.scale != nil {
		if ValidScale(*p.scale) {
			st.Scale = *p.scale
		} else {
			st.Scale = DefaultScale
			warnings = append(warnings, WarnInvalidScale)
		}
	}
	if !ValidScale(st.Scale) {
		st.Scale = DefaultScale
	}
	full := FullRange(st.Scale, cycle)

	st.WindowStart = st.WindowEnd - full

	if p.move != 0 {
		warnings = n.page(ctx, &st, b, full, p.move, warnings)
	} else {
		if p.left != nil {
			at := floorTo(*p.left, cycle)
			if at < st.WindowStart || at > st.WindowEnd {
				at = st.WindowStart
				warnings = append(warnings, WarnMarkOutside)
			}
			st.CursorLeft = at
		}
		if st.CursorLeft < b.Start {
			st.CursorLeft = b.Start
		}
		if p.right != nil {
			at := floorTo(*p.right, cycle)
			if at < st.WindowStart || at > st.WindowEnd {
				at = st.CursorLeft
				warnings = append(warnings, WarnMarkOutside)
			}
			st.CursorRight = at
		}
	}
	st.CursorLeft = clamp(st.CursorLeft, b.Start, b.End)
	st.CursorRight = clamp(st.CursorRight, b.Start, b.End)
	if st.CursorRight < st.CursorLeft {
		st.CursorRight = st.CursorLeft
	}

	n.recenter(&st, b, full)

	st.WindowEnd = clamp(st.WindowEnd, b.Start, b.End)
	st.WindowStart = st.WindowEnd - full
	return st, warnings
}

func (n *Navigator) cycle() int64 {
	if n.CycleTime <= 0 {
		return DefaultCycleTime
	}
	return n.CycleTime
}

func (n *Navigator) page(ctx context.Context, st *State, b Bounds, full int64, m Move, warnings []string) []string {
	cycle := n.cycle()
	switch m {
	case StepForward:
		if st.CursorRight+cycle <= b.End {
			st.CursorLeft += cycle
			st.CursorRight += cycle
		}
	case StepBack:
		if st.CursorLeft-cycle >= b.Start {
			st.CursorLeft -= cycle
			st.CursorRight -= cycle
		}
	case PageForward:
		if st.WindowEnd+full <= b.End && st.CursorRight+full <= b.End {
			st.shift(full)
		} else {
			st.shift(b.End - st.WindowEnd)
		}
	case PageBack:
		d := full
		if st.WindowStart-d < b.Start {
			d = st.WindowStart - b.Start
		}
		if st.CursorLeft-d < b.Start {
			d = st.CursorLeft - b.Start
		}
		if d > 0 {
			st.shift(-d)
		}
	case JumpToEnd:
		st.shift(b.End - st.WindowEnd)
	case Center:
		delta := floorTo(floorDiv(full-(st.CursorRight-st.CursorLeft), 2), cycle)
		st.WindowEnd = min(st.CursorRight+delta, b.End)
		st.WindowStart = st.WindowEnd - full
	case JumpToPeak:
		if n.Peaks == nil {
			return append(warnings, WarnNoPeak)
		}
		ts, err := n.Peaks.FindPeak(ctx, st.WindowStart, st.WindowEnd)
		if err != nil {
			return append(warnings, WarnNoPeak)
		}
		ts = clamp(floorTo(ts, cycle), b.Start, b.End)
		st.CursorLeft = ts
		st.CursorRight = ts
	}
	return warnings
}

// shift moves window and cursor together, keeping the cursor's distance to
// both window edges.
func (s *State) shift(d int64) {
	s.WindowStart += d
	s.WindowEnd += d
	s.CursorLeft += d
	s.CursorRight += d
}

// recenter moves the window so the cursor sits in its middle once the
// cursor comes within the margin of either edge. The move only happens
// while the new end stays before the end of the profile; the profile start
// is not checked.
func (n *Navigator) recenter(st *State, b Bounds, full int64) {
	margin := full * n.MarginPercent / 100
	offset := floorTo(floorDiv(full-(st.CursorRight-st.CursorLeft), 2), n.cycle())
	nearEdge := st.CursorRight > st.WindowEnd-margin || st.CursorLeft < st.WindowStart+margin
	if nearEdge && st.CursorRight+offset < b.End {
		st.WindowEnd = st.CursorRight + offset
		st.WindowStart = st.WindowEnd - full
	}
}
