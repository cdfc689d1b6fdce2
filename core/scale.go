package core

const (
	// DefaultCycleTime is the slot width of the aggregated data in seconds.
	DefaultCycleTime int64 = 300

	// BaseRange is the window length of scale multiplier 1: two days, so a
	// 576 px main graph shows one 5 min slot per pixel.
	BaseRange int64 = 172800

	// DefaultScale is used when a scale index is missing or out of range.
	DefaultScale = 1

	// initialCursorOffset places a fresh cursor half a day before the end.
	initialCursorOffset int64 = 43200
)

type Scale struct {
	Label      string  `json:"label"`
	Multiplier float64 `json:"multiplier"`
}

// Scales lists the window sizes offered by the wsize selector.
var Scales = []Scale{
	{Label: "1 day", Multiplier: 0.5},
	{Label: "2 days", Multiplier: 1},
	{Label: "4 days", Multiplier: 2},
	{Label: "1 week", Multiplier: 3.5},
	{Label: "2 weeks", Multiplier: 7},
	{Label: "1 month", Multiplier: 15},
	{Label: "2 months", Multiplier: 30},
	{Label: "6 months", Multiplier: 90},
	{Label: "8 months", Multiplier: 120},
	{Label: "1 year", Multiplier: 183},
}

func ValidScale(index int) bool {
	return index >= 0 && index < len(Scales)
}

// FullRange returns the window length of a scale, floored to a multiple of
// cycle. An invalid index yields the range of DefaultScale.
func FullRange(index int, cycle int64) int64 {
	if !ValidScale(index) {
		index = DefaultScale
	}
	r := int64(Scales[index].Multiplier * float64(BaseRange))
	return floorTo(r, cycle)
}

// floorTo rounds v down to a multiple of step, also for negative v.
func floorTo(v, step int64) int64 {
	if step <= 0 {
		return v
	}
	m := v % step
	if m < 0 {
		m += step
	}
	return v - m
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(v, d int64) int64 {
	q := v / d
	if (v%d != 0) && ((v < 0) != (d < 0)) {
		q--
	}
	return q
}
