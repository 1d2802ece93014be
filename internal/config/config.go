// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package config loads and validates the application configuration from
// defaults, an optional YAML file, and environment variables, layered in
// that order with environment variables taking highest priority.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sessioncal/config.yaml",
	"/etc/sessioncal/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "SESSIONCAL_CONFIG_PATH"

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Cache   CacheConfig   `koanf:"cache"`
	Source  SourceConfig  `koanf:"source"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `koanf:"listen_addr" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// CacheConfig configures the memory cache and coordinator. Every field is
// required: the cache layer takes no implicit defaults.
type CacheConfig struct {
	// MaxMemoryCacheSize is the maximum number of day buckets.
	MaxMemoryCacheSize int `koanf:"max_memory_cache_size" validate:"required,gt=0"`

	// MaxMemoryCacheAge is the bucket time-to-live.
	MaxMemoryCacheAge time.Duration `koanf:"max_memory_cache_age" validate:"required,gt=0"`

	// PrefetchDistance controls adjacent-range prefetch padding.
	PrefetchDistance int `koanf:"prefetch_distance" validate:"gte=0"`

	// BatchSize is the maximum number of days per upstream fetch.
	BatchSize int `koanf:"batch_size" validate:"required,gt=0"`

	// LayoutMemoSize bounds the column-layout memo.
	LayoutMemoSize int `koanf:"layout_memo_size" validate:"required,gt=0"`
}

// SourceConfig configures the upstream session source client.
type SourceConfig struct {
	// BaseURL is the root of the session API, e.g. "https://api.example.com".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Timeout bounds one upstream request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimit is the sustained request rate toward the upstream, in
	// requests per second.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`

	// RateBurst is the burst allowance on top of RateLimit.
	RateBurst int `koanf:"rate_burst" validate:"gt=0"`

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures" validate:"gt=0"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the defaults applied before file and env layers.
// The cache section is deliberately left zeroed: its values are required
// and must come from the file or environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8385",
			ShutdownTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			Timeout:            15 * time.Second,
			RateLimit:          10,
			RateBurst:          5,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// findConfigFile resolves the config file path: the override env var if
// set, otherwise the first existing default path. Empty means no file.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
