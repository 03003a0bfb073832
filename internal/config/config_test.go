package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Reconstruction.MaxPrefixLength != 192 {
		t.Errorf("MaxPrefixLength = %d, want 192", cfg.Reconstruction.MaxPrefixLength)
	}
	if len(cfg.Reconstruction.FallbackPrefixLengths) != 0 {
		t.Errorf("FallbackPrefixLengths = %v, want empty", cfg.Reconstruction.FallbackPrefixLengths)
	}
	if cfg.Reconstruction.TemporalToleranceMs != 1000 {
		t.Errorf("TemporalToleranceMs = %d, want 1000", cfg.Reconstruction.TemporalToleranceMs)
	}
	if !cfg.Reconstruction.StrictWorkspaceIsolation {
		t.Error("StrictWorkspaceIsolation should default to true")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
}

func TestLoad(t *testing.T) {
	content := `
[general]
transcript_dir = "/data/transcripts"

[reconstruction]
max_prefix_length = 128
fallback_prefix_lengths = [96, 64]
temporal_tolerance_ms = 5000
strict_workspace_isolation = false

[web]
port = 9090
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.TranscriptDir != "/data/transcripts" {
		t.Errorf("TranscriptDir = %q", cfg.General.TranscriptDir)
	}
	if cfg.Reconstruction.MaxPrefixLength != 128 {
		t.Errorf("MaxPrefixLength = %d, want 128", cfg.Reconstruction.MaxPrefixLength)
	}
	if len(cfg.Reconstruction.FallbackPrefixLengths) != 2 {
		t.Errorf("FallbackPrefixLengths = %v", cfg.Reconstruction.FallbackPrefixLengths)
	}
	if cfg.Reconstruction.StrictWorkspaceIsolation {
		t.Error("StrictWorkspaceIsolation should be false")
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Web.Port)
	}

	opts := cfg.Options()
	if opts.TemporalTolerance != 5*time.Second {
		t.Errorf("TemporalTolerance = %v, want 5s", opts.TemporalTolerance)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := ExpandPath("~/transcripts")
	want := filepath.Join(home, "transcripts")
	if got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}

	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
