// Package config loads the tool's YAML configuration and the session file
// produced by the external login flow.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all settings, read from ~/.studyflow/config.yaml.
type Config struct {
	// BaseURL of the learning platform.
	BaseURL string `yaml:"base_url"`
	// StoreDSN selects the answer store backend: a postgres:// DSN or a
	// SQLite file path.
	StoreDSN string `yaml:"store_dsn"`
	LogLevel string `yaml:"log_level"`
	// PollIntervalMS paces the watch loop between heartbeat and re-poll.
	PollIntervalMS int           `yaml:"poll_interval_ms"`
	Workers        WorkersConfig `yaml:"workers"`
}

// WorkersConfig sizes the per-batch worker pools.
type WorkersConfig struct {
	Videos    int `yaml:"videos"`
	Homeworks int `yaml:"homeworks"`
	Questions int `yaml:"questions"`
	Harvest   int `yaml:"harvest"`
}

// SessionConfig is the header material of an authenticated session, written
// by the login collaborator into ~/.studyflow/session.yaml.
type SessionConfig struct {
	Headers map[string]string `yaml:"headers"`
}

// Dir returns the path to ~/.studyflow.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".studyflow"), nil
}

// EnsureDir creates ~/.studyflow if it does not exist.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}
	return dir, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		BaseURL:        "https://www.yuketang.cn",
		StoreDSN:       "", // resolved to <dir>/answers.db by Load
		LogLevel:       "info",
		PollIntervalMS: 1500,
		Workers: WorkersConfig{
			Videos:    5,
			Homeworks: 5,
			Questions: 5,
			Harvest:   10,
		},
	}
}

// Load reads ~/.studyflow/config.yaml, falling back to defaults when the
// file is absent.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	path := filepath.Join(dir, "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.StoreDSN == "" {
		cfg.StoreDSN = filepath.Join(dir, "answers.db")
	}
	return cfg, nil
}

// Save writes the configuration to ~/.studyflow/config.yaml.
func Save(cfg *Config) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadSession reads the session file. A missing file is an error: without a
// session there is nothing the tool can do.
func LoadSession() (*SessionConfig, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "session.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file (run the login flow first): %w", err)
	}
	var sess SessionConfig
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if len(sess.Headers) == 0 {
		return nil, fmt.Errorf("session file %s holds no headers", path)
	}
	return &sess, nil
}

// SaveSession writes session header material with owner-only permissions.
func SaveSession(sess *SessionConfig) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
