// Package config loads host settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
	"github.com/reglet-dev/reglet-addon-host/capability/gatekeeper"
)

// Config holds the host settings.
type Config struct {
	HostVersion   string `env:"ADDON_HOST_VERSION" envDefault:"4.2.0"`
	GrantsPath    string `env:"ADDON_GRANTS_PATH"`
	EnabledPath   string `env:"ADDON_ENABLED_PATH"`
	SecurityLevel string `env:"ADDON_SECURITY_LEVEL" envDefault:"standard"`
	LogLevel      string `env:"ADDON_LOG_LEVEL" envDefault:"info"`
	Workers       int    `env:"ADDON_WORKERS" envDefault:"4"`
	TrustAll      bool   `env:"ADDON_TRUST_ALL" envDefault:"false"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GrantsPath != "" && c.EnabledPath != "" {
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".addon-host")
	if c.GrantsPath == "" {
		c.GrantsPath = filepath.Join(dir, "grants.yaml")
	}
	if c.EnabledPath == "" {
		c.EnabledPath = filepath.Join(dir, "enabled.yaml")
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if _, err := semver.NewVersion(c.HostVersion); err != nil {
		return fmt.Errorf("ADDON_HOST_VERSION %q: %w", c.HostVersion, err)
	}
	if _, err := c.Security(); err != nil {
		return fmt.Errorf("ADDON_SECURITY_LEVEL: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("ADDON_LOG_LEVEL: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("ADDON_WORKERS must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Security returns the configured gatekeeper security level.
func (c Config) Security() (gatekeeper.SecurityLevel, error) {
	return gatekeeper.ParseSecurityLevel(strings.ToLower(c.SecurityLevel))
}

// Level returns the configured log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return l, nil
}

// NewLogger builds a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
