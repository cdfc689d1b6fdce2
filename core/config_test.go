package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if cfg.CycleTimeSec != DefaultCycleTime || cfg.MarginPercent != 10 || cfg.DefaultScale != DefaultScale {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LiveProfile != "./live" || cfg.AuthEnabled() {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"cycle_time_sec": -5, "margin_percent": 70, "default_scale": 42, "collector_interval_sec": 0, "time_zone": "UTC"}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := LoadConfig(path)
	if cfg.CycleTimeSec != DefaultCycleTime || cfg.MarginPercent != 10 || cfg.DefaultScale != DefaultScale {
		t.Fatalf("expected out of range values to be reset, got %+v", cfg)
	}
	if cfg.CollectorIntervalSec != int(DefaultCycleTime) {
		t.Fatalf("expected interval %d, got %d", DefaultCycleTime, cfg.CollectorIntervalSec)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
}

func TestSaveAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := LoadConfig(path)
	cfg.APIKey = "k"
	cfg.RetentionDays = 30
	if err := cfg.SaveAppConfig(); err != nil {
		t.Fatalf("save config: %v", err)
	}
	loaded := LoadConfig(path)
	if loaded.APIKey != "k" || loaded.RetentionDays != 30 || !loaded.AuthEnabled() {
		t.Fatalf("unexpected reloaded config %+v", loaded)
	}
}
