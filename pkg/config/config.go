// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultRequestTimeout  = 60 * time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultPageSize        = 50
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 10
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAgeDays   = 28
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🌐 ServerConfig says where the file operations backend lives
type ServerConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	Token          string `json:"token,omitempty" yaml:"token,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`

	timeout time.Duration
}

// Timeout is the parsed request timeout, valid after Validate
func (s ServerConfig) Timeout() time.Duration {
	return s.timeout
}

// 📋 DefaultsConfig holds the initial values of a new operation form
type DefaultsConfig struct {
	CreateBackup        *bool `json:"create_backup,omitempty" yaml:"create_backup,omitempty"`
	ValidateConsistency *bool `json:"validate_consistency,omitempty" yaml:"validate_consistency,omitempty"`
}

// 🔄 RefreshConfig controls the background list refresh
type RefreshConfig struct {
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
	PageSize int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`

	interval time.Duration
}

// Every is the parsed refresh interval, valid after Validate
func (r RefreshConfig) Every() time.Duration {
	return r.interval
}

// 📜 LogConfig controls log level and the optional rotating log file
type LogConfig struct {
	Level      string `json:"level,omitempty" yaml:"level,omitempty"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Server         ServerConfig   `json:"server" yaml:"server"`
	Defaults       DefaultsConfig `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Refresh        RefreshConfig  `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	ProtectedPaths []string       `json:"protected_paths,omitempty" yaml:"protected_paths,omitempty"`
	Log            LogConfig      `json:"log,omitempty" yaml:"log,omitempty"`
}

// 🎯 Load reads and validates the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Msg("loaded configuration")
	return cfg, nil
}

// 📖 Read parses a config file without validating it, so callers can apply
// overrides first
func Read(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// 🔍 Validate checks the configuration, normalizes paths and fills defaults.
// It is safe to call more than once.
func (cfg *Config) Validate() error {
	cfg.Server.BaseURL = strings.TrimSpace(cfg.Server.BaseURL)
	if cfg.Server.BaseURL == "" {
		return errors.Errorf("server.base_url is required")
	}
	u, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return errors.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("server.base_url must be http or https, got %q", cfg.Server.BaseURL)
	}
	if u.Host == "" {
		return errors.Errorf("server.base_url has no host: %q", cfg.Server.BaseURL)
	}

	if cfg.Server.timeout, err = parseDuration("server.request_timeout", cfg.Server.RequestTimeout, DefaultRequestTimeout); err != nil {
		return err
	}
	if cfg.Refresh.interval, err = parseDuration("refresh.interval", cfg.Refresh.Interval, DefaultRefreshInterval); err != nil {
		return err
	}

	if cfg.Refresh.PageSize < 0 {
		return errors.Errorf("refresh.page_size must not be negative")
	}
	if cfg.Refresh.PageSize == 0 {
		cfg.Refresh.PageSize = DefaultPageSize
	}

	for i, p := range cfg.ProtectedPaths {
		p = strings.TrimSpace(p)
		if !path.IsAbs(p) {
			return errors.Errorf("protected_paths[%d] must be absolute: %q", i, p)
		}
		p = path.Clean(p)
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("protected_paths[%d] is not a valid pattern: %q", i, p)
		}
		cfg.ProtectedPaths[i] = p
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Errorf("log.level: %w", err)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = filepath.Clean(cfg.Log.File)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return errors.Errorf("log rotation limits must not be negative")
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = DefaultLogMaxBackups
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}

	return nil
}

// CreateBackup is the form default for backups, true unless disabled
func (cfg *Config) CreateBackup() bool {
	return cfg.Defaults.CreateBackup == nil || *cfg.Defaults.CreateBackup
}

// ValidateConsistency is the form default for consistency checks, true unless disabled
func (cfg *Config) ValidateConsistency() bool {
	return cfg.Defaults.ValidateConsistency == nil || *cfg.Defaults.ValidateConsistency
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	timeout := cfg.Server.timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	interval := cfg.Refresh.interval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	return fmt.Sprintf("%s (timeout %s, refresh %s, %d protected)", cfg.Server.BaseURL, timeout, interval, len(cfg.ProtectedPaths))
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, errors.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}
