package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Capture.Thinking || !cfg.Capture.ToolIO {
		t.Error("capture toggles default off, want on")
	}
	if cfg.Capture.MaxBlockBytes != 64*1024 {
		t.Errorf("MaxBlockBytes = %d, want 65536", cfg.Capture.MaxBlockBytes)
	}
	if cfg.Writer.QueueCapacity != 1024 || cfg.Writer.BatchSize != 100 {
		t.Errorf("writer = %+v, want 1024/100", cfg.Writer)
	}
	if cfg.Writer.FlushInterval() != time.Second {
		t.Errorf("FlushInterval = %v, want 1s", cfg.Writer.FlushInterval())
	}
	if cfg.Retention.Days != 0 || cfg.Retention.Horizon() != 0 {
		t.Errorf("retention = %d days, want disabled", cfg.Retention.Days)
	}
	if cfg.Observe.Addr != "127.0.0.1:8790" {
		t.Errorf("observe addr = %q, want 127.0.0.1:8790", cfg.Observe.Addr)
	}
}

func TestRetentionHorizon(t *testing.T) {
	r := RetentionConfig{Days: 30}
	if got := r.Horizon(); got != 30*24*time.Hour {
		t.Errorf("Horizon() = %v, want 720h", got)
	}
	r.Days = -1
	if got := r.Horizon(); got != 0 {
		t.Errorf("Horizon() with negative days = %v, want 0", got)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Writer.BatchSize != DefaultConfig().Writer.BatchSize {
		t.Errorf("BatchSize = %d, want default", cfg.Writer.BatchSize)
	}
	if Exists() {
		t.Error("Exists() = true with no file on disk")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Store.Path = "/data/custom.db"
	cfg.Capture.Thinking = false
	cfg.Writer.BatchSize = 250
	cfg.Retention.Days = 7
	in := 9.0
	cfg.Pricing.Overrides = map[string]ModelPricingOverride{
		"claude-sonnet-4-5": {InputPerMTok: &in},
	}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Store.Path != "/data/custom.db" {
		t.Errorf("Store.Path = %q", got.Store.Path)
	}
	if got.Capture.Thinking {
		t.Error("Capture.Thinking = true, want saved false")
	}
	if got.Writer.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", got.Writer.BatchSize)
	}
	if got.Retention.Days != 7 {
		t.Errorf("Retention.Days = %d, want 7", got.Retention.Days)
	}
	ov, ok := got.Pricing.Overrides["claude-sonnet-4-5"]
	if !ok || ov.InputPerMTok == nil || *ov.InputPerMTok != 9.0 {
		t.Errorf("pricing override not round-tripped: %+v", ov)
	}
}

func TestConfigPath_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "trailhound", "config.toml")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestDataDir_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	want := filepath.Join(dir, "trailhound", "trailhound.db")
	if got := DefaultStorePath(); got != want {
		t.Errorf("DefaultStorePath() = %q, want %q", got, want)
	}
}
