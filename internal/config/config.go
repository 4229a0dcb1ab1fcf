// Package config loads and persists trailhound configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all trailhound configuration.
type Config struct {
	Store     StoreConfig      `toml:"store"`
	Capture   CaptureConfig    `toml:"capture"`
	Writer    WriterConfig     `toml:"writer"`
	Retention RetentionConfig  `toml:"retention"`
	Observe   ObserveConfig    `toml:"observe"`
	Pricing   PricingOverrides `toml:"pricing"`
}

// StoreConfig locates the on-disk event store.
type StoreConfig struct {
	Path string `toml:"path,omitempty"`
}

// CaptureConfig controls which event categories are persisted and how large
// a single text block may grow before truncation.
type CaptureConfig struct {
	Thinking      bool `toml:"thinking"`
	ToolIO        bool `toml:"tool_io"`
	MaxBlockBytes int  `toml:"max_block_bytes"`
}

// WriterConfig tunes the batch writer's queue and flush cadence.
type WriterConfig struct {
	QueueCapacity   int `toml:"queue_capacity"`
	BatchSize       int `toml:"batch_size"`
	FlushIntervalMs int `toml:"flush_interval_ms"`
}

// FlushInterval returns the flush time threshold as a duration.
func (w WriterConfig) FlushInterval() time.Duration {
	return time.Duration(w.FlushIntervalMs) * time.Millisecond
}

// RetentionConfig sets the cleanup horizon. Zero days disables cleanup.
type RetentionConfig struct {
	Days int `toml:"days"`
}

// Horizon returns the retention horizon as a duration, zero when disabled.
func (r RetentionConfig) Horizon() time.Duration {
	if r.Days <= 0 {
		return 0
	}
	return time.Duration(r.Days) * 24 * time.Hour
}

// ObserveConfig holds the observe daemon's listen address and process files.
type ObserveConfig struct {
	Addr    string `toml:"addr,omitempty"`
	PIDFile string `toml:"pid_file,omitempty"`
	LogFile string `toml:"log_file,omitempty"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides.
type ModelPricingOverride struct {
	InputPerMTok      *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok     *float64 `toml:"output_per_mtok,omitempty"`
	CacheWritePerMTok *float64 `toml:"cache_write_per_mtok,omitempty"`
	CacheReadPerMTok  *float64 `toml:"cache_read_per_mtok,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Path: DefaultStorePath()},
		Capture: CaptureConfig{
			Thinking:      true,
			ToolIO:        true,
			MaxBlockBytes: 64 * 1024,
		},
		Writer: WriterConfig{
			QueueCapacity:   1024,
			BatchSize:       100,
			FlushIntervalMs: 1000,
		},
		Retention: RetentionConfig{Days: 0},
		Observe:   ObserveConfig{Addr: "127.0.0.1:8790"},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "trailhound")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "trailhound")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory for the store file.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "trailhound")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "trailhound")
}

// DefaultStorePath returns the default on-disk location of the event store.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "trailhound.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
