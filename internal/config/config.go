package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config represents the global ~/.chatdock/config.toml.
type Config struct {
	DefaultSession    string   `toml:"default_session"`
	BackendURL        string   `toml:"backend_url"`
	SocketURL         string   `toml:"socket_url"`
	LogLevel          string   `toml:"log_level"`
	PollInterval      Duration `toml:"poll_interval"`
	SuppressWindow    Duration `toml:"suppress_window"`
	MaxExpanded       int      `toml:"max_expanded"`
	MaxMinimized      int      `toml:"max_minimized"`
	RequestTimeout    Duration `toml:"request_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession:    "main",
		BackendURL:        "http://localhost:3000/api",
		SocketURL:         "ws://localhost:3000/ws",
		LogLevel:          "info",
		PollInterval:      Duration{30 * time.Second},
		SuppressWindow:    Duration{10 * time.Second},
		MaxExpanded:       3,
		MaxMinimized:      8,
		RequestTimeout:    Duration{15 * time.Second},
		RequestsPerSecond: 10,
	}
}

// Load reads config from the given path over the defaults. Returns an error
// if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	for key, raw := range map[string]string{"backend_url": c.BackendURL, "socket_url": c.SocketURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%s: invalid url %q", key, raw)
		}
	}
	switch {
	case c.PollInterval.Duration <= 0:
		return fmt.Errorf("poll_interval must be positive")
	case c.SuppressWindow.Duration <= 0:
		return fmt.Errorf("suppress_window must be positive")
	case c.RequestTimeout.Duration <= 0:
		return fmt.Errorf("request_timeout must be positive")
	case c.MaxExpanded < 1:
		return fmt.Errorf("max_expanded must be at least 1")
	case c.MaxMinimized < 0:
		return fmt.Errorf("max_minimized must not be negative")
	case c.RequestsPerSecond < 0:
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
