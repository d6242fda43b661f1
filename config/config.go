// Package config handles operator configuration for the microiaas daemon
// and CLI.
//
// Config is stored at $XDG_CONFIG_HOME/microiaas/config.yaml (defaults to
// ~/.config/microiaas/config.yaml). Every field has a working default, so a
// missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load for fields the file leaves unset.
const (
	DefaultListenAddr       = "127.0.0.1:8080"
	DefaultSnapshotInterval = 5 * time.Minute
	DefaultLogLevel         = "info"
)

// Config holds the daemon's tunables.
type Config struct {
	// ListenAddr is the address the HTTP API binds to.
	ListenAddr string `yaml:"listen-addr,omitempty"`
	// DataDir holds the ledger database. Defaults to
	// $XDG_DATA_HOME/microiaas (~/.local/share/microiaas).
	DataDir string `yaml:"data-dir,omitempty"`
	// SnapshotInterval is the cadence of the periodic fleet snapshot.
	SnapshotInterval time.Duration `yaml:"snapshot-interval,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log-level,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/microiaas/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "microiaas", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "microiaas", "config.yaml")
}

// Load reads the config file and fills in defaults. If the file does not
// exist, the default Config is returned (not an error).
func Load() (*Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = DefaultSnapshotInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// DBPath returns the ledger database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "microiaas")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "microiaas")
}
