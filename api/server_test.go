package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ogstra/ogs-flownav/core"
)

func newTestServer(t *testing.T) (*Server, *core.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := core.LoadConfig(filepath.Join(dir, "config.json"))
	cfg.DatabasePath = filepath.Join(dir, "flows.db")
	cfg.TimeZone = "UTC"

	store, err := core.NewStore(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SaveProfile(core.Profile{Name: "live", Type: core.ProfileLive}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if err := store.SaveProfile(core.Profile{Name: "empty", Type: core.ProfileHistory}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	err = store.BulkInsert([]core.Sample{
		{Profile: "live", Channel: "wg0", Proto: "any", Timestamp: 300, Flows: 1},
		{Profile: "live", Channel: "wg0", Proto: "any", Timestamp: 900_000, Flows: 50},
		{Profile: "live", Channel: "in-reality", Proto: "any", Timestamp: 999_900, Flows: 2},
	})
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	return NewServer(store, cfg), store
}

func details(t *testing.T, h http.Handler, cookies []*http.Cookie, query url.Values) (DetailsResponse, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/details?"+query.Encode(), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp DetailsResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, rec
}

func TestDetailsNavigation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	resp, rec := details(t, h, nil, url.Values{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != srv.config.SessionCookie {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	want := core.State{Scale: 1, WindowStart: 827_100, WindowEnd: 999_900, CursorLeft: 956_700, CursorRight: 956_700}
	if resp.State != want {
		t.Fatalf("expected initial state %+v, got %+v", want, resp.State)
	}
	if resp.Profile.Name != "./live" || resp.Profile.Bounds == nil || resp.Profile.Bounds.Start != 300 {
		t.Fatalf("unexpected profile %+v", resp.Profile)
	}
	if len(resp.Scales) != len(core.Scales) || !resp.Scales[1].Selected {
		t.Fatalf("unexpected scales %+v", resp.Scales)
	}
	if !strings.HasPrefix(resp.Args["main"], "in-reality:wg0 any flows 300 827100 999900 956700 956700 576 200 0") {
		t.Fatalf("unexpected main graph args %q", resp.Args["main"])
	}
	if _, ok := resp.Args["proto_TCP"]; !ok {
		t.Fatalf("missing protocol thumbnail args: %v", resp.Args)
	}

	resp, _ = details(t, h, cookies, url.Values{"adjust": {" < "}})
	if resp.State.CursorLeft != 956_400 {
		t.Fatalf("expected step back to 956400, got %d", resp.State.CursorLeft)
	}

	resp, _ = details(t, h, cookies, url.Values{"adjust": {" ^ "}})
	if resp.State.CursorLeft != 900_000 || resp.State.CursorRight != 900_000 {
		t.Fatalf("expected cursor on peak 900000, got %d-%d", resp.State.CursorLeft, resp.State.CursorRight)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}

	resp, _ = details(t, h, cookies, url.Values{"tleft": {"5"}})
	if resp.State.CursorLeft != 827_100 {
		t.Fatalf("expected mark clamped to window start 827100, got %+v", resp.State)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != core.WarnMarkOutside {
		t.Fatalf("expected mark warning, got %v", resp.Warnings)
	}
}

func TestDetailsOptionsPersist(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	resp, rec := details(t, h, nil, url.Values{"proto": {"UDP"}, "type": {"packets"}, "channellist": {"wg0!nope"}})
	cookies := rec.Result().Cookies()
	if resp.Options.Proto != "UDP" || resp.Options.Metric != "packets" {
		t.Fatalf("unexpected options %+v", resp.Options)
	}
	if len(resp.Options.Channels) != 1 || resp.Options.Channels[0] != "wg0" {
		t.Fatalf("unexpected channels %v", resp.Options.Channels)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "'nope'") {
		t.Fatalf("expected channel warning, got %v", resp.Warnings)
	}

	resp, _ = details(t, h, cookies, url.Values{})
	if resp.Options.Proto != "UDP" || resp.Options.Metric != "packets" {
		t.Fatalf("expected options to persist, got %+v", resp.Options)
	}
}

func TestDetailsProfileErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	_, rec := details(t, h, nil, url.Values{"profile": {"missing"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	resp, rec := details(t, h, nil, url.Values{"profile": {"empty"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != warnNoBounds {
		t.Fatalf("expected bounds warning, got %v", resp.Warnings)
	}
	if resp.Graphs != nil {
		t.Fatalf("expected no graphs without data")
	}
}

func TestBookmarkRestoresState(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	first, rec := details(t, h, nil, url.Values{"wsize": {"0"}, "adjust": {" < "}})
	cookies := rec.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/api/bookmark", nil)
	req.AddCookie(cookies[0])
	brec := httptest.NewRecorder()
	h.ServeHTTP(brec, req)
	if brec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", brec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(brec.Body).Decode(&body); err != nil {
		t.Fatalf("decode bookmark: %v", err)
	}
	if body["bookmark"] != first.Bookmark {
		t.Fatalf("bookmark differs from details response")
	}

	restored, _ := details(t, h, nil, url.Values{"bookmark": {body["bookmark"]}})
	if restored.State != first.State {
		t.Fatalf("expected %+v, got %+v", first.State, restored.State)
	}
}

func TestCollectorDisabled(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collector/run", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Profiles != 2 || status.Samples != 3 || status.CollectorEnabled {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAuthAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.APIKey = "s3cret"
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var profiles []ProfileInfo
	if err := json.NewDecoder(rec.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode profiles: %v", err)
	}
	if len(profiles) != 2 || profiles[0].ShortName != "empty" || profiles[1].Expire != "never" {
		t.Fatalf("unexpected profiles %+v", profiles)
	}
}

func TestAuthLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	srv.config.JWTSecret = "jwt-secret"
	srv.config.AdminUsername = "admin"
	srv.config.AdminPasswordHash = string(hash)
	h := srv.Routes()

	login := func(password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(LoginRequest{Username: "admin", Password: password})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body)))
		return rec
	}

	if rec := login("wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec := login("pw")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var lr LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&lr); err != nil || lr.Token == "" {
		t.Fatalf("expected token, got %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token+"x")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with tampered token, got %d", rec.Code)
	}
}

func TestSources(t *testing.T) {
	cfg := core.LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	cfg.StatsInbounds = []string{"in-reality"}
	cfg.EnableWireGuard = true
	sources := Sources(cfg)
	if len(sources) != 2 || sources[0].Name() != "xray-stats" || sources[1].Name() != "wireguard" {
		t.Fatalf("unexpected sources %v", sources)
	}

	cfg.StatsInbounds = nil
	cfg.EnableWireGuard = false
	if sources := Sources(cfg); len(sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(sources))
	}
}
