package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrNoData         = errors.New("profile has no data")
)

type ProfileType int

const (
	ProfileLive ProfileType = iota
	ProfileHistory
	ProfileContinuous

	// ProfileShadow is or-ed onto the base type.
	ProfileShadow ProfileType = 4
)

func (t ProfileType) String() string {
	var s string
	switch t & 3 {
	case ProfileLive:
		s = "live"
	case ProfileHistory:
		s = "history"
	case ProfileContinuous:
		s = "continuous"
	default:
		s = "unknown"
	}
	if t&ProfileShadow != 0 {
		s += " / shadow"
	}
	return s
}

// Profile is a named data series. Names have the form group/name; the
// group "." holds ungrouped profiles.
type Profile struct {
	Name        string      `json:"name"`
	Type        ProfileType `json:"type"`
	ExpireHours int64       `json:"expire"`
	MaxSize     int64       `json:"maxsize"`
}

// Group returns the group part of the profile name.
func (p Profile) Group() string {
	if i := strings.Index(p.Name, "/"); i >= 0 {
		return p.Name[:i]
	}
	return "."
}

// ShortName returns the name without its group.
func (p Profile) ShortName() string {
	if i := strings.Index(p.Name, "/"); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// ExpireLabel renders the expiry as "never", "5 hours" or "2 days 1 hour".
func (p Profile) ExpireLabel() string {
	if p.ExpireHours <= 0 {
		return "never"
	}
	d := p.ExpireHours / 24
	h := p.ExpireHours % 24
	if d == 0 {
		return fmt.Sprintf("%d %s", h, plural(h, "hour"))
	}
	return fmt.Sprintf("%d %s %d %s", d, plural(d, "day"), h, plural(h, "hour"))
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// NormalizeProfileName puts ungrouped names into the "." group.
func NormalizeProfileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if !strings.Contains(name, "/") {
		return "./" + name
	}
	return name
}
