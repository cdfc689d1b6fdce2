package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleRunCollector(w http.ResponseWriter, r *http.Request) {
	if !s.requireCollector(w) {
		return
	}
	s.collector.TriggerOnce(r.Context())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePauseCollector(w http.ResponseWriter, r *http.Request) {
	if !s.requireCollector(w) {
		return
	}
	s.collector.SetPaused(true)
	writeJSON(w, map[string]bool{"paused": true})
}

func (s *Server) handleResumeCollector(w http.ResponseWriter, r *http.Request) {
	if !s.requireCollector(w) {
		return
	}
	s.collector.SetPaused(false)
	writeJSON(w, map[string]bool{"paused": false})
}

func (s *Server) handleCollectorHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.GetCollectorRuns(limit)
	if err != nil {
		http.Error(w, "Failed to load collector history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handlePruneNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.pruneOnce(r.Context())
	if err != nil {
		http.Error(w, "Prune failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

type StatusResponse struct {
	Profiles         int   `json:"profiles"`
	Samples          int64 `json:"samples"`
	CycleTime        int64 `json:"cycle_time"`
	CollectorEnabled bool  `json:"collector_enabled"`
	CollectorPaused  bool  `json:"collector_paused"`
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		http.Error(w, "Failed to load profiles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	samples, err := s.store.CountSamples()
	if err != nil {
		http.Error(w, "Failed to count samples: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := StatusResponse{
		Profiles:         len(profiles),
		Samples:          samples,
		CycleTime:        s.nav.CycleTime,
		CollectorEnabled: s.collector != nil,
	}
	if s.collector != nil {
		resp.CollectorPaused = s.collector.IsPaused()
	}
	writeJSON(w, resp)
}
