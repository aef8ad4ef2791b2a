// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8474 {
		t.Errorf("Server.Port = %d, want 8474", cfg.Server.Port)
	}
	if cfg.Ingest.Port != 8475 {
		t.Errorf("Ingest.Port = %d, want 8475", cfg.Ingest.Port)
	}
	if cfg.Ingest.Path != "/ingest" {
		t.Errorf("Ingest.Path = %q, want /ingest", cfg.Ingest.Path)
	}
	if cfg.Dispatch.PoolIdleTimeout != 30*time.Second {
		t.Errorf("Dispatch.PoolIdleTimeout = %s, want 30s", cfg.Dispatch.PoolIdleTimeout)
	}
	if cfg.Webhook.Enabled {
		t.Error("Webhook.Enabled = true by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  port: 9100
ingest:
  frames_per_second: 50
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(filepath.Join(dir, "warden.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Ingest.FramesPerSecond != 50 {
		t.Errorf("Ingest.FramesPerSecond = %v, want 50", cfg.Ingest.FramesPerSecond)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v, want debug/console", cfg.Logging)
	}
	// Untouched values keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "server:\n  port: 9100\n"
	if err := os.WriteFile(filepath.Join(dir, "warden.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WARDEN_SERVER__PORT", "9200")
	t.Setenv("WARDEN_LOGGING__LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want env override 9200", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadExplicitConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())

	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9300\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9300 {
		t.Errorf("Server.Port = %d, want 9300", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Server.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "ingest path without slash",
			mutate:  func(c *Config) { c.Ingest.Path = "ingest" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
		},
		{
			name:    "webhook enabled without url",
			mutate:  func(c *Config) { c.Webhook.Enabled = true },
			wantErr: true,
		},
		{
			name: "webhook enabled with url",
			mutate: func(c *Config) {
				c.Webhook.Enabled = true
				c.Webhook.URL = "https://alerts.example.com/warden"
			},
		},
		{
			name: "admin and ingest share an address",
			mutate: func(c *Config) {
				c.Ingest.Port = c.Server.Port
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
