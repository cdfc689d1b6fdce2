package api

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Ogstra/ogs-flownav/core"
)

// Bookmark captures a profile and navigation state in a URL-safe token.
type Bookmark struct {
	Profile string
	State   core.State
}

func (b Bookmark) Encode() string {
	v := url.Values{}
	v.Set("profile", b.Profile)
	v.Set("wsize", strconv.Itoa(b.State.Scale))
	v.Set("tend", strconv.FormatInt(b.State.WindowEnd, 10))
	v.Set("tleft", strconv.FormatInt(b.State.CursorLeft, 10))
	v.Set("tright", strconv.FormatInt(b.State.CursorRight, 10))
	return base64.RawURLEncoding.EncodeToString([]byte(v.Encode()))
}

// DecodeBookmark parses a token produced by Bookmark.Encode into form
// values, so restoring a bookmark runs through the ordinary navigation
// actions.
func DecodeBookmark(token string) (url.Values, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode bookmark: %w", err)
	}
	v, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse bookmark: %w", err)
	}
	if v.Get("profile") == "" {
		return nil, fmt.Errorf("parse bookmark: missing profile")
	}
	return v, nil
}

// applyBookmark overlays the bookmark fields onto form. Fields present in
// the bookmark win.
func applyBookmark(form url.Values, bm url.Values) url.Values {
	out := url.Values{}
	for k, vs := range form {
		out[k] = vs
	}
	out.Del("adjust")
	for _, k := range []string{"wsize", "tend", "tleft", "tright"} {
		if v := bm.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	out.Set("profileswitch", bm.Get("profile"))
	return out
}
