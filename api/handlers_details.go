package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/Ogstra/ogs-flownav/core"
)

const warnNoBounds = "Could not read profile time range"

type ProfileInfo struct {
	Name      string       `json:"name"`
	Group     string       `json:"group"`
	ShortName string       `json:"short_name"`
	Type      string       `json:"type"`
	Expire    string       `json:"expire"`
	MaxSize   int64        `json:"maxsize"`
	Bounds    *core.Bounds `json:"bounds,omitempty"`
}

func (s *Server) profileInfo(ctx context.Context, p core.Profile) ProfileInfo {
	info := ProfileInfo{
		Name:      p.Name,
		Group:     p.Group(),
		ShortName: p.ShortName(),
		Type:      p.Type.String(),
		Expire:    p.ExpireLabel(),
		MaxSize:   p.MaxSize,
	}
	if b, err := s.store.ProfileBounds(ctx, p.Name); err == nil {
		info.Bounds = &b
	}
	return info
}

func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		http.Error(w, "Failed to load profiles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	result := make([]ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, s.profileInfo(r.Context(), p))
	}
	writeJSON(w, result)
}

// sessionID returns the navigation session of r, issuing a new cookie when
// the request carries none or an invalid one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.config.SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type ScaleOption struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type DetailsResponse struct {
	Profile  ProfileInfo        `json:"profile"`
	State    core.State         `json:"state"`
	Options  core.DetailOptions `json:"options"`
	Scales   []ScaleOption      `json:"scales"`
	Warnings []string           `json:"warnings"`
	Timeslot string             `json:"timeslot,omitempty"`
	Span     int64              `json:"span,omitempty"`
	Graphs   *core.GraphSet     `json:"graphs,omitempty"`
	Args     map[string]string  `json:"args,omitempty"`
	Bookmark string             `json:"bookmark,omitempty"`
}

func scaleOptions(selected int) []ScaleOption {
	res := make([]ScaleOption, 0, len(core.Scales))
	for i, sc := range core.Scales {
		res = append(res, ScaleOption{Index: i, Label: sc.Label, Selected: i == selected})
	}
	return res
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	session := s.sessionID(w, r)
	form := r.Form
	warnings := []string{}

	if token := form.Get("bookmark"); token != "" {
		bm, err := DecodeBookmark(token)
		if err != nil {
			warnings = append(warnings, "Invalid bookmark")
		} else {
			form = applyBookmark(form, bm)
		}
	}

	active, prevOpts, _, err := s.store.ActiveSession(ctx, session)
	if err != nil {
		http.Error(w, "Failed to load session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := requestedProfile(form)
	if name == "" {
		name = active
	}
	if name == "" {
		name = core.NormalizeProfileName(s.config.LiveProfile)
	}
	profile, err := s.store.GetProfile(ctx, name)
	if err != nil {
		if errors.Is(err, core.ErrUnknownProfile) {
			http.Error(w, "Unknown profile "+name, http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	changed := active != "" && active != profile.Name
	if changed {
		prevOpts = core.DefaultDetailOptions()
	}
	opts := decodeOptions(form, prevOpts)

	resp := DetailsResponse{
		Profile: s.profileInfo(ctx, *profile),
		Options: opts,
	}

	key := core.SessionKey{Session: session, Profile: profile.Name}
	st, found, err := s.store.LoadSession(ctx, key)
	if err != nil {
		log.Printf("Details: load session %s: %v", session, err)
		found = false
	}

	bounds, err := s.store.ProfileBounds(ctx, profile.Name)
	if err != nil {
		if !errors.Is(err, core.ErrNoData) {
			log.Printf("Details: bounds of %s: %v", profile.Name, err)
		}
		resp.State = st
		resp.Scales = scaleOptions(st.Scale)
		resp.Warnings = append(warnings, warnNoBounds)
		writeJSON(w, resp)
		return
	}

	if changed || !found {
		st = core.NewState(bounds, s.config.DefaultScale, s.config.CycleTimeSec)
	}

	channels, err := s.store.Channels(ctx, profile.Name)
	if err != nil {
		log.Printf("Details: channels of %s: %v", profile.Name, err)
	}
	var chWarnings []string
	opts.Channels, chWarnings = core.FilterChannels(opts.Channels, channels)
	warnings = append(warnings, chWarnings...)
	resp.Options = opts

	nav := s.nav.WithPeaks(s.store.Peaks(profile.Name, opts.Select()))
	st, navWarnings := nav.Advance(ctx, st, bounds, decodeActions(form)...)
	warnings = append(warnings, navWarnings...)

	if err := s.store.SaveSession(ctx, key, st); err != nil {
		log.Printf("Details: save session %s: %v", session, err)
	}
	if err := s.store.SetActiveSession(ctx, session, profile.Name, opts); err != nil {
		log.Printf("Details: save active profile %s: %v", session, err)
	}

	graphs := core.BuildGraphSet(st, bounds, opts.Select(), opts.Presentation())
	resp.State = st
	resp.Scales = scaleOptions(st.Scale)
	resp.Warnings = warnings
	resp.Timeslot = st.Timeslot(s.loc)
	resp.Span = st.Span(s.nav.CycleTime)
	resp.Graphs = &graphs
	resp.Args = graphArgStrings(graphs)
	resp.Bookmark = Bookmark{Profile: profile.Name, State: st}.Encode()
	writeJSON(w, resp)
}

func graphArgStrings(g core.GraphSet) map[string]string {
	args := map[string]string{"main": g.Main.String()}
	for proto, a := range g.Protocols {
		args["proto_"+proto] = a.String()
	}
	for metric, a := range g.Metrics {
		args["type_"+metric] = a.String()
	}
	return args
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := s.sessionID(w, r)
	active, _, ok, err := s.store.ActiveSession(ctx, session)
	if err != nil {
		http.Error(w, "Failed to load session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "No navigation state", http.StatusNotFound)
		return
	}
	st, found, err := s.store.LoadSession(ctx, core.SessionKey{Session: session, Profile: active})
	if err != nil {
		http.Error(w, "Failed to load session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No navigation state", http.StatusNotFound)
		return
	}
	token := Bookmark{Profile: active, State: st}.Encode()
	writeJSON(w, map[string]string{
		"bookmark": token,
		"url":      "/api/details?" + url.Values{"bookmark": {token}}.Encode(),
	})
}
