package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/task-forest/internal/reconstruct"
)

// Config holds all application configuration
type Config struct {
	General        GeneralConfig        `toml:"general"`
	Reconstruction ReconstructionConfig `toml:"reconstruction"`
	Notifications  NotificationsConfig  `toml:"notifications"`
	Web            WebConfig            `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	TranscriptDir   string `toml:"transcript_dir"`
	DatabasePath    string `toml:"database_path"`
	WatchDebounceMs int    `toml:"watch_debounce_ms"`
}

// ReconstructionConfig holds the knobs consumed by the reconstruction
// core.
type ReconstructionConfig struct {
	MaxPrefixLength int `toml:"max_prefix_length"`

	// FallbackPrefixLengths lists shorter prefix lengths retried in
	// decreasing order when the full-length match fails, e.g. [128, 64].
	// Empty means the single full-length pass only.
	FallbackPrefixLengths []int `toml:"fallback_prefix_lengths"`

	TemporalToleranceMs      int  `toml:"temporal_tolerance_ms"`
	StrictWorkspaceIsolation bool `toml:"strict_workspace_isolation"`
	Parallelism              int  `toml:"parallelism"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds web API settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			TranscriptDir:   filepath.Join(home, ".claude", "projects"),
			DatabasePath:    filepath.Join(home, ".task-forest", "forest.db"),
			WatchDebounceMs: 500,
		},
		Reconstruction: ReconstructionConfig{
			MaxPrefixLength:          192,
			TemporalToleranceMs:      1000,
			StrictWorkspaceIsolation: true,
			Parallelism:              4,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.TranscriptDir = ExpandPath(cfg.General.TranscriptDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// Options maps the reconstruction section onto core options.
func (c *Config) Options() reconstruct.Options {
	return reconstruct.Options{
		MaxPrefixLength:          c.Reconstruction.MaxPrefixLength,
		FallbackPrefixLengths:    c.Reconstruction.FallbackPrefixLengths,
		TemporalTolerance:        time.Duration(c.Reconstruction.TemporalToleranceMs) * time.Millisecond,
		StrictWorkspaceIsolation: c.Reconstruction.StrictWorkspaceIsolation,
		Parallelism:              c.Reconstruction.Parallelism,
	}
}

// WatchDebounce returns the watcher debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.General.WatchDebounceMs) * time.Millisecond
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "task-forest", "config.toml")
}
