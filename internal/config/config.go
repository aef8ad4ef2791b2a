// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package config loads Warden's layered configuration: struct defaults,
// then an optional YAML file, then environment variables. The on-disk
// format is owned by the operator; nothing in the core writes config
// back to disk.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Warden server.
type Config struct {
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Ingest   IngestConfig   `koanf:"ingest" validate:"required"`
	Dispatch DispatchConfig `koanf:"dispatch" validate:"required"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the admin/ops HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`

	// CORSOrigins allowed by the admin surface.
	CORSOrigins []string `koanf:"cors_origins"`
}

// IngestConfig configures the decoder-facing packet ingest endpoint.
type IngestConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	Path string `koanf:"path" validate:"required,startswith=/"`

	// FramesPerSecond and Burst bound each decoder connection's frame
	// rate. Zero disables limiting.
	FramesPerSecond float64 `koanf:"frames_per_second" validate:"min=0"`
	Burst           int     `koanf:"burst" validate:"min=0"`

	// BufferSize is the in-process packet bus buffer.
	BufferSize int64 `koanf:"buffer_size" validate:"min=1"`
}

// DispatchConfig configures the dispatch worker pool.
type DispatchConfig struct {
	// PoolIdleTimeout is how long an idle pool worker lives.
	PoolIdleTimeout time.Duration `koanf:"pool_idle_timeout" validate:"min=1s"`
}

// WebhookConfig configures optional error webhook forwarding.
type WebhookConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8474,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Ingest: IngestConfig{
			Host:            "0.0.0.0",
			Port:            8475,
			Path:            "/ingest",
			FramesPerSecond: 400,
			Burst:           100,
			BufferSize:      4096,
		},
		Dispatch: DispatchConfig{
			PoolIdleTimeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			Enabled:                 false,
			Timeout:                 10 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration against its struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("invalid configuration: webhook.url required when webhook.enabled")
	}
	if c.Server.Port == c.Ingest.Port && c.Server.Host == c.Ingest.Host {
		return fmt.Errorf("invalid configuration: server and ingest cannot share %s:%d", c.Server.Host, c.Server.Port)
	}
	return nil
}
