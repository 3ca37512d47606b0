// Copyright 2025 Poiesic Systems
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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

const (
	// EnvPrefix prefixes environment variables read by Load, e.g. PERMITSEARCH_ADDR.
	EnvPrefix = "PERMITSEARCH"

	defaultBadgerPath = "data/permits"
	defaultSQLitePath = "data/data.db"
)

// Config holds the settings shared by the permitsearch commands.
type Config struct {
	// DataPath is the badger directory or the SQLite database file.
	DataPath string `mapstructure:"data_path"`

	// Store selects the record store: "badger" or "sqlite".
	Store string `mapstructure:"store"`

	// SeedPath is a CSV or XLSX dataset imported at startup when the store is empty.
	SeedPath string `mapstructure:"seed_path"`

	// SeedSheet selects the worksheet of an XLSX seed file. Empty means the first.
	SeedSheet string `mapstructure:"seed_sheet"`

	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`

	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string `mapstructure:"cors_origin"`

	// DefaultStatus applies when a request has no status parameter.
	// An explicit empty status parameter still disables status filtering.
	DefaultStatus string `mapstructure:"default_status"`

	// DefaultLimit applies when a request has no limit parameter.
	DefaultLimit int `mapstructure:"default_limit"`

	// MaxLimit caps the limit a request may ask for.
	MaxLimit int `mapstructure:"max_limit"`

	// RateLimit is the sustained requests per second allowed per client. 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`

	// RateBurst is the number of requests a client may make at once.
	RateBurst int `mapstructure:"rate_burst"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// ImportBatchSize is the number of permits written per transaction.
	ImportBatchSize int `mapstructure:"import_batch_size"`

	// ImportWorkers is the number of concurrent batch writers.
	ImportWorkers int `mapstructure:"import_workers"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDataPath sets the badger directory or SQLite database file.
func WithDataPath(path string) ConfigOption {
	return func(c *Config) {
		c.DataPath = path
	}
}

// WithStore selects the record store, StoreBadger or StoreSQLite.
func WithStore(store string) ConfigOption {
	return func(c *Config) {
		c.Store = store
	}
}

// WithSeed sets the dataset imported into an empty store and its XLSX worksheet.
func WithSeed(path, sheet string) ConfigOption {
	return func(c *Config) {
		c.SeedPath = path
		c.SeedSheet = sheet
	}
}

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithDefaultStatus sets the status used when a request has no status parameter.
func WithDefaultStatus(status string) ConfigOption {
	return func(c *Config) {
		c.DefaultStatus = status
	}
}

// WithLimits sets the default result limit and the largest limit a request may ask for.
func WithLimits(defaultLimit, maxLimit int) ConfigOption {
	return func(c *Config) {
		c.DefaultLimit = defaultLimit
		c.MaxLimit = maxLimit
	}
}

// WithRateLimit sets the per-client request rate and burst. A zero rate disables limiting.
func WithRateLimit(perSecond float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RateLimit = perSecond
		c.RateBurst = burst
	}
}

// WithLogLevel sets the log level: debug, info, warn or error.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// DefaultConfig returns a configuration with default values.
// The default store is badger under data/permits, serving on :3000.
func DefaultConfig() *Config {
	return &Config{
		DataPath:        defaultBadgerPath,
		Store:           StoreBadger,
		Addr:            ":3000",
		CORSOrigin:      "*",
		DefaultStatus:   "APPROVED",
		DefaultLimit:    5,
		MaxLimit:        500,
		RateLimit:       0,
		RateBurst:       20,
		LogLevel:        "info",
		ImportBatchSize: 500,
		ImportWorkers:   4,
	}
}

// NewConfig creates a configuration with the provided options.
// Options are applied on top of DefaultConfig().
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize lowercases enumerated settings and points a SQLite store at a
// database file when DataPath still holds the badger default.
func (c *Config) Normalize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.Store == StoreSQLite && c.DataPath == defaultBadgerPath {
		c.DataPath = defaultSQLitePath
	}
}

// Validate normalizes the configuration and checks that it is usable.
// Returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	c.Normalize()

	if c.DataPath == "" {
		return errors.New("config: DataPath is required")
	}
	if c.Store != StoreBadger && c.Store != StoreSQLite {
		return fmt.Errorf("config: Store must be %q or %q, got %q", StoreBadger, StoreSQLite, c.Store)
	}
	if c.DefaultLimit < 1 {
		return errors.New("config: DefaultLimit must be at least 1")
	}
	if c.MaxLimit < c.DefaultLimit {
		return errors.New("config: MaxLimit must not be below DefaultLimit")
	}
	if c.RateLimit < 0 {
		return errors.New("config: RateLimit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("config: RateBurst must be at least 1 when rate limiting")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown LogLevel %q", c.LogLevel)
	}
	if c.ImportBatchSize < 1 {
		return errors.New("config: ImportBatchSize must be at least 1")
	}
	if c.ImportWorkers < 1 {
		return errors.New("config: ImportWorkers must be at least 1")
	}
	return nil
}

// Load builds a Config from defaults, an optional config file, and
// PERMITSEARCH_* environment variables, in increasing precedence.
// The file may be any format viper understands (YAML, TOML, JSON, .env).
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("data_path", defaults.DataPath)
	v.SetDefault("store", defaults.Store)
	v.SetDefault("seed_path", defaults.SeedPath)
	v.SetDefault("seed_sheet", defaults.SeedSheet)
	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("cors_origin", defaults.CORSOrigin)
	v.SetDefault("default_status", defaults.DefaultStatus)
	v.SetDefault("default_limit", defaults.DefaultLimit)
	v.SetDefault("max_limit", defaults.MaxLimit)
	v.SetDefault("rate_limit", defaults.RateLimit)
	v.SetDefault("rate_burst", defaults.RateBurst)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("import_batch_size", defaults.ImportBatchSize)
	v.SetDefault("import_workers", defaults.ImportWorkers)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
