// Package config holds the global pipeline knobs, loadable from an
// optional YAML file with sensible defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration. Scan-time behavior toggles
// live on engine.Options; these are the fixed resource constants.
type Config struct {
	// Workers is the resolution/probing worker pool size.
	Workers int `yaml:"workers"`

	// ProbeTimeout bounds each individual HTTP probe attempt.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// HostInterval is the minimum spacing between requests to the
	// same candidate host.
	HostInterval time.Duration `yaml:"host_interval"`

	// BodyLimit caps the retained probe response body in bytes.
	BodyLimit int `yaml:"body_limit"`

	// BatchSize bounds one persistence write.
	BatchSize int `yaml:"batch_size"`

	// ResolverURL is the DNS-over-HTTPS endpoint; empty uses the
	// system resolver.
	ResolverURL string `yaml:"resolver_url"`

	// DatabasePath is the SQLite file for scan history.
	DatabasePath string `yaml:"database_path"`

	// ListenAddr is the bind address for serve mode.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Workers:      10,
		ProbeTimeout: 10 * time.Second,
		HostInterval: 100 * time.Millisecond,
		BodyLimit:    10000,
		BatchSize:    50,
		ResolverURL:  "https://cloudflare-dns.com/dns-query",
		DatabasePath: "cybereye.db",
		ListenAddr:   ":8080",
	}
}

// Load reads a YAML config file over the defaults. A missing path is
// not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.validated()
}

func (c Config) validated() (Config, error) {
	if c.Workers < 1 {
		return c, fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ProbeTimeout <= 0 {
		return c, fmt.Errorf("probe_timeout must be positive")
	}
	if c.BodyLimit < 1 {
		return c, fmt.Errorf("body_limit must be at least 1")
	}
	if c.BatchSize < 1 {
		return c, fmt.Errorf("batch_size must be at least 1")
	}
	return c, nil
}
