package api

import (
	"net/url"
	"testing"

	"github.com/Ogstra/ogs-flownav/core"
)

func TestBookmarkRoundTrip(t *testing.T) {
	bm := Bookmark{
		Profile: "./live",
		State:   core.State{Scale: 2, WindowEnd: 499_800, CursorLeft: 400_200, CursorRight: 420_000},
	}
	v, err := DecodeBookmark(bm.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{
		"profile": "./live",
		"wsize":   "2",
		"tend":    "499800",
		"tleft":   "400200",
		"tright":  "420000",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Fatalf("%s: expected %s, got %s", k, w, got)
		}
	}
}

func TestDecodeBookmarkInvalid(t *testing.T) {
	if _, err := DecodeBookmark("%%%"); err == nil {
		t.Fatalf("expected error for invalid token")
	}
	if _, err := DecodeBookmark(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestApplyBookmark(t *testing.T) {
	form := url.Values{"adjust": {" >> "}, "proto": {"TCP"}, "tend": {"1"}}
	bm := url.Values{"profile": {"./live"}, "tend": {"499800"}, "wsize": {"2"}}
	out := applyBookmark(form, bm)

	if out.Has("adjust") {
		t.Fatalf("expected paging to be dropped")
	}
	if out.Get("tend") != "499800" || out.Get("wsize") != "2" || out.Get("proto") != "TCP" {
		t.Fatalf("unexpected form %v", out)
	}
	if out.Get("profileswitch") != "./live" {
		t.Fatalf("expected profile switch, got %q", out.Get("profileswitch"))
	}
	if form.Get("tend") != "1" {
		t.Fatalf("input form was modified")
	}
}
