package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}

	// A missing file also yields defaults.
	cfg, err = Load("/nonexistent/cybereye.yaml")
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Workers != 10 {
		t.Errorf("workers = %d, want 10", cfg.Workers)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
workers: 25
probe_timeout: 5s
host_interval: 250ms
database_path: /tmp/scans.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 25 {
		t.Errorf("workers = %d, want 25", cfg.Workers)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("probe_timeout = %v", cfg.ProbeTimeout)
	}
	if cfg.HostInterval != 250*time.Millisecond {
		t.Errorf("host_interval = %v", cfg.HostInterval)
	}
	if cfg.DatabasePath != "/tmp/scans.db" {
		t.Errorf("database_path = %q", cfg.DatabasePath)
	}
	// Untouched keys keep their defaults.
	if cfg.BatchSize != 50 {
		t.Errorf("batch_size = %d, want the default", cfg.BatchSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero workers", "workers: 0"},
		{"negative timeout", "probe_timeout: -1s"},
		{"zero body limit", "body_limit: 0"},
		{"zero batch size", "batch_size: 0"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
