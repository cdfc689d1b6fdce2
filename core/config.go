package core

import (
	"encoding/json"
	"os"
	"time"
)

type Config struct {
	ListenAddr           string   `json:"listen_addr"`
	DatabasePath         string   `json:"database_path"`
	CycleTimeSec         int64    `json:"cycle_time_sec"`
	MarginPercent        int      `json:"margin_percent"`
	DefaultScale         int      `json:"default_scale"`
	TimeZone             string   `json:"time_zone"`
	SessionCookie        string   `json:"session_cookie"`
	APIKey               string   `json:"api_key"`
	JWTSecret            string   `json:"jwt_secret"`
	AdminUsername        string   `json:"admin_username"`
	AdminPasswordHash    string   `json:"admin_password_hash"`
	EnableCollector      bool     `json:"enable_collector"`
	StatsAPIAddr         string   `json:"stats_api_addr"`
	StatsInbounds        []string `json:"stats_inbounds"`
	EnableWireGuard      bool     `json:"enable_wireguard"`
	LiveProfile          string   `json:"live_profile"`
	CollectorIntervalSec int      `json:"collector_interval_sec"`
	RetentionEnabled     bool     `json:"retention_enabled"`
	RetentionDays        int      `json:"retention_days"`
	ConfigPath           string   `json:"-"`
}

func LoadConfig(path ...string) *Config {
	cfg := &Config{
		ListenAddr:           ":8080",
		DatabasePath:         "/var/lib/ogs-flownav/flows.db",
		CycleTimeSec:         DefaultCycleTime,
		MarginPercent:        10,
		DefaultScale:         DefaultScale,
		TimeZone:             "Local",
		SessionCookie:        "flownav_session",
		APIKey:               "",
		JWTSecret:            "",
		AdminUsername:        "admin",
		EnableCollector:      false,
		StatsAPIAddr:         "127.0.0.1:10085",
		StatsInbounds:        []string{"in-reality"},
		EnableWireGuard:      false,
		LiveProfile:          "./live",
		CollectorIntervalSec: int(DefaultCycleTime),
		RetentionEnabled:     false,
		RetentionDays:        365,
	}

	configPath := "config.json"
	if len(path) > 0 && path[0] != "" {
		configPath = path[0]
	}
	cfg.ConfigPath = configPath

	f, err := os.Open(configPath)
	if err == nil {
		defer f.Close()
		json.NewDecoder(f).Decode(cfg)
	}
	cfg.normalize()

	return cfg
}

func (c *Config) normalize() {
	if c.CycleTimeSec <= 0 {
		c.CycleTimeSec = DefaultCycleTime
	}
	if !ValidScale(c.DefaultScale) {
		c.DefaultScale = DefaultScale
	}
	if c.MarginPercent < 0 || c.MarginPercent >= 50 {
		c.MarginPercent = 10
	}
	if c.SessionCookie == "" {
		c.SessionCookie = "flownav_session"
	}
	if c.CollectorIntervalSec <= 0 {
		c.CollectorIntervalSec = int(c.CycleTimeSec)
	}
}

// Location resolves TimeZone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// AuthEnabled reports whether any credential is configured.
func (c *Config) AuthEnabled() bool {
	return c.APIKey != "" || (c.JWTSecret != "" && c.AdminPasswordHash != "")
}

func (c *Config) SaveAppConfig() error {
	path := c.ConfigPath
	if path == "" {
		path = "config.json"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
