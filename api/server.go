package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Ogstra/ogs-flownav/core"
)

type Server struct {
	store     *core.Store
	config    *core.Config
	nav       *core.Navigator
	collector *core.Collector
	loc       *time.Location
}

func NewServer(store *core.Store, config *core.Config) *Server {
	return &Server{
		store:     store,
		config:    config,
		nav:       core.NewNavigator(config.CycleTimeSec, config.MarginPercent, nil),
		collector: nil,
		loc:       config.Location(),
	}
}

// SetCollector attaches a running collector for the control endpoints.
func (s *Server) SetCollector(c *core.Collector) {
	s.collector = c
}

func (s *Server) requireCollector(w http.ResponseWriter) bool {
	if s.collector == nil {
		http.Error(w, "collector disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("GET /api/profiles", s.handleGetProfiles)
	mux.HandleFunc("GET /api/details", s.handleDetails)
	mux.HandleFunc("POST /api/details", s.handleDetails)
	mux.HandleFunc("GET /api/bookmark", s.handleGetBookmark)

	mux.HandleFunc("POST /api/collector/run", s.handleRunCollector)
	mux.HandleFunc("POST /api/collector/pause", s.handlePauseCollector)
	mux.HandleFunc("POST /api/collector/resume", s.handleResumeCollector)
	mux.HandleFunc("GET /api/collector/history", s.handleCollectorHistory)
	mux.HandleFunc("POST /api/retention/prune", s.handlePruneNow)

	mux.HandleFunc("GET /api/status", s.handleGetStatus)

	return s.AuthMiddleware(mux)
}

func StartServer(cfg *core.Config) {
	store, err := core.NewStore(cfg.DatabasePath)
	if err != nil {
		panic("StartServer: failed to open database: " + err.Error())
	}

	server := NewServer(store, cfg)

	if cfg.EnableCollector {
		collector := core.NewCollector(store, cfg, Sources(cfg)...)
		collector.Start()
		server.SetCollector(collector)
	} else {
		log.Printf("collector disabled via config; serving stored profiles only")
	}

	go server.retentionLoop()

	router := http.NewServeMux()
	router.Handle("/api/", server.Routes())

	distDir := "./frontend/dist"
	if _, err := os.Stat(distDir); os.IsNotExist(err) {
		if exe, e2 := os.Executable(); e2 == nil {
			distDir = filepath.Join(filepath.Dir(exe), "frontend", "dist")
		}
	}
	log.Printf("Serving static files from %s", distDir)
	fs := http.FileServer(http.Dir(distDir))
	router.Handle("/assets/", http.StripPrefix("/", fs))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(distDir, "index.html"))
	})

	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		panic("HTTP server error: " + err.Error())
	}
}

// Sources returns the counter sources enabled in cfg.
func Sources(cfg *core.Config) []core.CounterSource {
	var sources []core.CounterSource
	if len(cfg.StatsInbounds) > 0 && cfg.StatsAPIAddr != "" {
		sources = append(sources, core.NewStatsClient(cfg.StatsAPIAddr, cfg.StatsInbounds))
	}
	if cfg.EnableWireGuard {
		sources = append(sources, core.WireGuardSource{})
	}
	return sources
}

func (s *Server) retentionLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		s.pruneOnce(context.Background())
		<-ticker.C
	}
}

type pruneResult struct {
	Samples  int64 `json:"samples"`
	Expired  int64 `json:"expired"`
	Sessions int64 `json:"sessions"`
}

func (s *Server) pruneOnce(ctx context.Context) (pruneResult, error) {
	var res pruneResult
	now := time.Now()
	if s.config.RetentionEnabled && s.config.RetentionDays > 0 {
		cutoff := now.Add(-time.Duration(s.config.RetentionDays) * 24 * time.Hour).Unix()
		deleted, err := s.store.PruneOlderThan(cutoff)
		if err != nil {
			log.Printf("Retention prune error: %v", err)
			return res, err
		}
		res.Samples = deleted
		if deleted > 0 {
			log.Printf("Retention prune: removed %d samples older than %d", deleted, cutoff)
		}
	}
	expired, err := s.store.PruneExpired(ctx, now)
	if err != nil {
		log.Printf("Retention prune error: %v", err)
		return res, err
	}
	res.Expired = expired
	if expired > 0 {
		log.Printf("Retention prune: removed %d expired profile samples", expired)
	}
	sessions, err := s.store.PruneSessions(now.Add(-30 * 24 * time.Hour))
	if err != nil {
		log.Printf("Retention prune error: %v", err)
		return res, err
	}
	res.Sessions = sessions
	return res, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
