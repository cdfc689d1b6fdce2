package core

import (
	"fmt"
	"slices"
)

// DetailOptions select the series and presentation of the details graphs.
type DetailOptions struct {
	Proto     string   `json:"proto"`
	Metric    string   `json:"type"`
	Channels  []string `json:"channels,omitempty"`
	LogScale  bool     `json:"logscale"`
	LineGraph bool     `json:"linegraph"`
}

func DefaultDetailOptions() DetailOptions {
	return DetailOptions{Proto: "any", Metric: "flows"}
}

func ValidProto(p string) bool {
	return slices.Contains(Protocols, p)
}

func ValidMetric(m string) bool {
	return slices.Contains(Metrics, m)
}

// FilterChannels keeps the requested channels present in available and
// returns a warning for each unknown one. An empty result selects all
// available channels.
func FilterChannels(requested, available []string) ([]string, []string) {
	var kept, warnings []string
	for _, c := range requested {
		if c == "" {
			continue
		}
		if !slices.Contains(available, c) {
			warnings = append(warnings, fmt.Sprintf("Requested channel '%s' does not exist in this profile", c))
			continue
		}
		if !slices.Contains(kept, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, available...)
	}
	return kept, warnings
}

func (o DetailOptions) Select() GraphSelect {
	return GraphSelect{Channels: o.Channels, Proto: o.Proto, Metric: o.Metric}
}

func (o DetailOptions) Presentation() Presentation {
	return Presentation{LogScale: o.LogScale, LineGraph: o.LineGraph}
}
