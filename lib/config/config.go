// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment type.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the Vigil daemon.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Sampling configures the engine loop.
	Sampling SamplingConfig `yaml:"sampling"`

	// Relay configures snapshot publishing.
	Relay RelayConfig `yaml:"relay"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Probes configures external probe programs and IPC limits.
	Probes ProbesConfig `yaml:"probes"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields that may differ per environment.
type Overrides struct {
	Sampling *SamplingConfig `yaml:"sampling,omitempty"`
	Relay    *RelayConfig    `yaml:"relay,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
	Probes   *ProbesConfig   `yaml:"probes,omitempty"`
}

// SamplingConfig configures the sampling loop.
type SamplingConfig struct {
	// Interval is the target cycle period. The remainder after a cycle's
	// work is split into WaitSlices bounded waits so commands are
	// serviced promptly.
	Interval time.Duration `yaml:"interval"`

	// WaitSlices is the number of sub-slices the inter-cycle wait is
	// divided into. Default: 10.
	WaitSlices int `yaml:"wait_slices"`

	// ScaleCPUToCores reports process CPU usage against all cores
	// (0..100*N) when true, normalized to 0..100 when false.
	ScaleCPUToCores bool `yaml:"scale_cpu_to_cores"`
}

// RelayConfig configures the snapshot relay socket.
type RelayConfig struct {
	// SocketPath is the unix socket subscribers connect to.
	SocketPath string `yaml:"socket_path"`

	// SubscriberBuffer is how many snapshots may queue per subscriber
	// before the subscriber is dropped as too slow.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// ProbesConfig configures external probe programs. Every external call
// the engine makes is bounded by one of these timeouts.
type ProbesConfig struct {
	// DmidecodePath locates dmidecode for memory device composition.
	// Empty disables the probe.
	DmidecodePath string `yaml:"dmidecode_path"`

	// GlxinfoPath locates glxinfo for the one-time GPU capability probe.
	// Empty disables the probe.
	GlxinfoPath string `yaml:"glxinfo_path"`

	// NvidiaSmiPath locates nvidia-smi for proprietary-driver GPUs.
	NvidiaSmiPath string `yaml:"nvidia_smi_path"`

	// ExecTimeout bounds every external program invocation.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	// DBusTimeout bounds every D-Bus method call (NetworkManager,
	// systemd).
	DBusTimeout time.Duration `yaml:"dbus_timeout"`
}

// Default returns the base configuration. The config file is optional
// for Vigil; these defaults describe a working local daemon.
func Default() *Config {
	return &Config{
		Environment: Development,
		Sampling: SamplingConfig{
			Interval:        time.Second,
			WaitSlices:      10,
			ScaleCPUToCores: true,
		},
		Relay: RelayConfig{
			SocketPath:       "${XDG_RUNTIME_DIR:-/run}/vigil/readings.sock",
			SubscriberBuffer: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Probes: ProbesConfig{
			DmidecodePath: "dmidecode",
			GlxinfoPath:   "glxinfo",
			NvidiaSmiPath: "nvidia-smi",
			ExecTimeout:   5 * time.Second,
			DBusTimeout:   2 * time.Second,
		},
	}
}

// Load loads configuration from the VIGIL_CONFIG environment variable,
// falling back to defaults when unset. A set-but-unreadable path is an
// error, never silently ignored.
func Load() (*Config, error) {
	path := os.Getenv("VIGIL_CONFIG")
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific path, merging over the
// defaults. The only expansion performed is ${VAR} and ${VAR:-default}
// in paths, for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyOverrides applies the section matching cfg.Environment.
func (c *Config) applyOverrides() {
	var o *Overrides
	switch c.Environment {
	case Development:
		o = c.Development
	case Production:
		o = c.Production
	}
	if o == nil {
		return
	}

	if o.Sampling != nil {
		if o.Sampling.Interval != 0 {
			c.Sampling.Interval = o.Sampling.Interval
		}
		if o.Sampling.WaitSlices != 0 {
			c.Sampling.WaitSlices = o.Sampling.WaitSlices
		}
		c.Sampling.ScaleCPUToCores = o.Sampling.ScaleCPUToCores
	}
	if o.Relay != nil {
		if o.Relay.SocketPath != "" {
			c.Relay.SocketPath = o.Relay.SocketPath
		}
		if o.Relay.SubscriberBuffer != 0 {
			c.Relay.SubscriberBuffer = o.Relay.SubscriberBuffer
		}
	}
	if o.Logging != nil {
		if o.Logging.Level != "" {
			c.Logging.Level = o.Logging.Level
		}
		if o.Logging.Format != "" {
			c.Logging.Format = o.Logging.Format
		}
	}
	if o.Probes != nil {
		if o.Probes.DmidecodePath != "" {
			c.Probes.DmidecodePath = o.Probes.DmidecodePath
		}
		if o.Probes.GlxinfoPath != "" {
			c.Probes.GlxinfoPath = o.Probes.GlxinfoPath
		}
		if o.Probes.NvidiaSmiPath != "" {
			c.Probes.NvidiaSmiPath = o.Probes.NvidiaSmiPath
		}
		if o.Probes.ExecTimeout != 0 {
			c.Probes.ExecTimeout = o.Probes.ExecTimeout
		}
		if o.Probes.DBusTimeout != 0 {
			c.Probes.DBusTimeout = o.Probes.DBusTimeout
		}
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVariables expands ${VAR} and ${VAR:-default} in path values.
func (c *Config) expandVariables() {
	c.Relay.SocketPath = expandVars(c.Relay.SocketPath)
}

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Sampling.Interval < 50*time.Millisecond {
		errs = append(errs, fmt.Errorf("sampling.interval %v below the 50ms floor", c.Sampling.Interval))
	}
	if c.Sampling.WaitSlices < 1 {
		errs = append(errs, fmt.Errorf("sampling.wait_slices must be at least 1"))
	}
	if c.Relay.SocketPath == "" {
		errs = append(errs, fmt.Errorf("relay.socket_path is required"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn, or error"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json"))
	}
	if c.Probes.ExecTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probes.exec_timeout must be positive"))
	}
	if c.Probes.DBusTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probes.dbus_timeout must be positive"))
	}

	return errors.Join(errs...)
}
