package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Ogstra/ogs-flownav/core"
)

// adjustMoves maps the labels of the paging buttons to moves.
var adjustMoves = map[string]core.Move{
	" < ":  core.StepBack,
	" > ":  core.StepForward,
	" << ": core.PageBack,
	" >> ": core.PageForward,
	" >| ": core.JumpToEnd,
	" | ":  core.Center,
	" ^ ":  core.JumpToPeak,
}

func parseAdjust(v string) (core.Move, bool) {
	if m, ok := adjustMoves[v]; ok {
		return m, true
	}
	// some clients trim submit values
	m, ok := adjustMoves[" "+strings.TrimSpace(v)+" "]
	return m, ok
}

// parseTimestamp accepts integer timestamps only.
func parseTimestamp(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// decodeActions turns form values into navigation actions. Fields that do
// not parse are dropped.
func decodeActions(form url.Values) []core.Action {
	var actions []core.Action
	if v, ok := parseTimestamp(form.Get("tend")); ok {
		actions = append(actions, core.SetEnd{End: v})
	}
	if v := strings.TrimSpace(form.Get("wsize")); v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			actions = append(actions, core.SetScale{Index: idx})
		}
	}
	if form.Has("adjust") {
		if m, ok := parseAdjust(form.Get("adjust")); ok {
			actions = append(actions, core.Page{Move: m})
		}
	}
	if v, ok := parseTimestamp(form.Get("tleft")); ok {
		actions = append(actions, core.SetCursorLeft{At: v})
	}
	if v, ok := parseTimestamp(form.Get("tright")); ok {
		actions = append(actions, core.SetCursorRight{At: v})
	}
	if len(actions) == 0 {
		actions = append(actions, core.NoOp{})
	}
	return actions
}

// decodeOptions applies the detail option fields of form onto prev. Values
// outside the allowed sets keep the previous setting.
func decodeOptions(form url.Values, prev core.DetailOptions) core.DetailOptions {
	opts := prev
	if v := form.Get("proto"); core.ValidProto(v) {
		opts.Proto = v
	}
	if v := form.Get("type"); core.ValidMetric(v) {
		opts.Metric = v
	}
	if v, ok := parseFlag(form.Get("logscale")); ok {
		opts.LogScale = v
	}
	if v, ok := parseFlag(form.Get("linegraph")); ok {
		opts.LineGraph = v
	}
	if form.Has("channellist") {
		opts.Channels = nil
		for _, c := range strings.Split(form.Get("channellist"), "!") {
			if c = strings.TrimSpace(c); c != "" {
				opts.Channels = append(opts.Channels, c)
			}
		}
	}
	return opts
}

func parseFlag(v string) (bool, bool) {
	switch strings.TrimSpace(v) {
	case "1", "true", "on":
		return true, true
	case "0", "false", "off":
		return false, true
	}
	return false, false
}

// requestedProfile returns the profile named by the form, if any.
func requestedProfile(form url.Values) string {
	if v := form.Get("profileswitch"); v != "" {
		return core.NormalizeProfileName(v)
	}
	return core.NormalizeProfileName(form.Get("profile"))
}
