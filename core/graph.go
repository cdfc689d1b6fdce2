package core

import (
	"strconv"
	"strings"
)

var (
	Protocols = []string{"any", "TCP", "UDP", "ICMP", "other"}
	Metrics   = []string{"flows", "packets", "traffic"}
)

// GraphVariant fixes the size of a rendered graph.
type GraphVariant struct {
	Width      int
	Resolution int
	Thumbnail  bool
}

var (
	MainGraph      = GraphVariant{Width: 576, Resolution: 200}
	ThumbnailGraph = GraphVariant{Width: 288, Resolution: 100, Thumbnail: true}
)

// GraphSelect names the series a graph draws.
type GraphSelect struct {
	Channels []string
	Proto    string
	Metric   string
}

type Presentation struct {
	LogScale  bool
	LineGraph bool
}

// GraphArgs is the argument tuple consumed by the graph renderer.
type GraphArgs struct {
	Channels     []string `json:"channels"`
	Proto        string   `json:"proto"`
	Metric       string   `json:"type"`
	ProfileStart int64    `json:"profile_start"`
	WindowStart  int64    `json:"tstart"`
	WindowEnd    int64    `json:"tend"`
	CursorLeft   int64    `json:"tleft"`
	CursorRight  int64    `json:"tright"`
	Width        int      `json:"width"`
	Resolution   int      `json:"resolution"`
	Thumbnail    bool     `json:"thumbnail"`
	LogScale     bool     `json:"logscale"`
	LineGraph    bool     `json:"linegraph"`
}

// BuildGraphArgs projects st into renderer arguments. It does not modify
// anything.
func BuildGraphArgs(st State, b Bounds, sel GraphSelect, v GraphVariant, p Presentation) GraphArgs {
	channels := make([]string, len(sel.Channels))
	copy(channels, sel.Channels)
	return GraphArgs{
		Channels:     channels,
		Proto:        sel.Proto,
		Metric:       sel.Metric,
		ProfileStart: b.Start,
		WindowStart:  st.WindowStart,
		WindowEnd:    st.WindowEnd,
		CursorLeft:   st.CursorLeft,
		CursorRight:  st.CursorRight,
		Width:        v.Width,
		Resolution:   v.Resolution,
		Thumbnail:    v.Thumbnail,
		LogScale:     p.LogScale,
		LineGraph:    p.LineGraph,
	}
}

// Fields returns the arguments in renderer order. Channels are joined
// with ':' and flags are written as 0 or 1.
func (g GraphArgs) Fields() []string {
	return []string{
		strings.Join(g.Channels, ":"),
		g.Proto,
		g.Metric,
		strconv.FormatInt(g.ProfileStart, 10),
		strconv.FormatInt(g.WindowStart, 10),
		strconv.FormatInt(g.WindowEnd, 10),
		strconv.FormatInt(g.CursorLeft, 10),
		strconv.FormatInt(g.CursorRight, 10),
		strconv.Itoa(g.Width),
		strconv.Itoa(g.Resolution),
		flag(g.Thumbnail),
		flag(g.LogScale),
		flag(g.LineGraph),
	}
}

func (g GraphArgs) String() string {
	return strings.Join(g.Fields(), " ")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// GraphSet holds the main graph and the per-protocol and per-metric
// thumbnails of a details page.
type GraphSet struct {
	Main      GraphArgs            `json:"main"`
	Protocols map[string]GraphArgs `json:"protocols"`
	Metrics   map[string]GraphArgs `json:"metrics"`
}

// BuildGraphSet builds every graph of the details page. The protocol
// thumbnail of the selected protocol is drawn as "any".
func BuildGraphSet(st State, b Bounds, sel GraphSelect, p Presentation) GraphSet {
	set := GraphSet{
		Main:      BuildGraphArgs(st, b, sel, MainGraph, p),
		Protocols: make(map[string]GraphArgs, len(Protocols)-1),
		Metrics:   make(map[string]GraphArgs, len(Metrics)),
	}
	for _, proto := range Protocols[1:] {
		label := proto
		if label == sel.Proto {
			label = "any"
		}
		thumb := sel
		thumb.Proto = label
		set.Protocols[proto] = BuildGraphArgs(st, b, thumb, ThumbnailGraph, p)
	}
	for _, metric := range Metrics {
		thumb := sel
		thumb.Metric = metric
		set.Metrics[metric] = BuildGraphArgs(st, b, thumb, ThumbnailGraph, p)
	}
	return set
}
