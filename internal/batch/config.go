package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// RebuildConfig represents a scheduled rebuild configuration
type RebuildConfig struct {
	Name             string        `toml:"name"`
	Cron             string        `toml:"cron"`
	TranscriptDir    string        `toml:"transcript_dir"`
	MaxDuration      time.Duration `toml:"max_duration"`
	NotifyOnComplete bool          `toml:"notify_on_complete"`

	// PruneRunsAfterDays drops run history older than this after a
	// successful rebuild. Zero disables pruning.
	PruneRunsAfterDays int `toml:"prune_runs_after_days"`
}

// ScheduleConfig holds all rebuild configurations
type ScheduleConfig struct {
	Rebuilds []RebuildConfig `toml:"rebuild"`
}

// Validate checks if the config is valid
func (c *RebuildConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("rebuild name is required")
	}
	if c.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(c.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 10 * time.Minute // Default
	}
	return nil
}

// LoadScheduleConfig loads rebuild configuration from a TOML file
func LoadScheduleConfig(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ScheduleConfig{}, nil
		}
		return nil, err
	}

	var cfg ScheduleConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Validate all rebuilds
	for i := range cfg.Rebuilds {
		if err := cfg.Rebuilds[i].Validate(); err != nil {
			return nil, fmt.Errorf("rebuild %d: %w", i, err)
		}
	}

	return &cfg, nil
}
