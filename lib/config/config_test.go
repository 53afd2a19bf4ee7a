// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
sampling:
  interval: 500ms
logging:
  level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Sampling.Interval != 500*time.Millisecond {
		t.Errorf("interval = %v, want 500ms", cfg.Sampling.Interval)
	}
	if cfg.Sampling.WaitSlices != 10 {
		t.Errorf("wait_slices = %d, want default 10", cfg.Sampling.WaitSlices)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
}

func TestEnvironmentOverridesApply(t *testing.T) {
	path := writeConfig(t, `
environment: production
relay:
  socket_path: /run/vigil/readings.sock
production:
  logging:
    level: warn
    format: json
  sampling:
    interval: 2s
    scale_cpu_to_cores: true
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v, want warn/json", cfg.Logging)
	}
	if cfg.Sampling.Interval != 2*time.Second {
		t.Errorf("interval = %v, want 2s", cfg.Sampling.Interval)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("VIGIL_TEST_RUN", "/tmp/vigil-test")
	path := writeConfig(t, `
relay:
  socket_path: ${VIGIL_TEST_RUN}/readings.sock
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Relay.SocketPath != "/tmp/vigil-test/readings.sock" {
		t.Errorf("socket_path = %q", cfg.Relay.SocketPath)
	}
}

func TestExpandVariableDefault(t *testing.T) {
	t.Setenv("VIGIL_UNSET_VAR", "")
	got := expandVars("${VIGIL_UNSET_VAR:-/run}/vigil.sock")
	if got != "/run/vigil.sock" {
		t.Errorf("expandVars = %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"interval floor", func(c *Config) { c.Sampling.Interval = 10 * time.Millisecond }, "50ms floor"},
		{"zero slices", func(c *Config) { c.Sampling.WaitSlices = 0 }, "wait_slices"},
		{"empty socket", func(c *Config) { c.Relay.SocketPath = "" }, "socket_path"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadWithoutEnvUsesDefaults(t *testing.T) {
	t.Setenv("VIGIL_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sampling.Interval != time.Second {
		t.Errorf("interval = %v, want 1s", cfg.Sampling.Interval)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile of a missing path succeeded")
	}
}
