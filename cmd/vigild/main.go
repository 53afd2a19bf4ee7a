// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// vigild is the Vigil sampling daemon. It reads the kernel's procfs
// and sysfs counters on a fixed interval, assembles one immutable
// snapshot per cycle, and publishes each snapshot over a unix socket
// for viewers such as vigil-top.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/vigil-systems/vigil/lib/apps"
	"github.com/vigil-systems/vigil/lib/config"
	"github.com/vigil-systems/vigil/lib/dmi"
	"github.com/vigil-systems/vigil/lib/engine"
	"github.com/vigil-systems/vigil/lib/process"
	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/relay"
	"github.com/vigil-systems/vigil/lib/sampling"
	"github.com/vigil-systems/vigil/lib/services"
	"github.com/vigil-systems/vigil/lib/telemetry"
	"github.com/vigil-systems/vigil/lib/version"
)

const sysRoot = "/sys"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion bool
	var configPath string

	flags := pflag.NewFlagSet("vigild", pflag.ContinueOnError)
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.StringVar(&configPath, "config", "", "path to config file (default: $VIGIL_CONFIG or built-in defaults)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("vigild")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := procfs.Default()

	network := sampling.NewNetworkSampler(sysRoot, logger)
	network.ExecTimeout = cfg.Probes.ExecTimeout
	if enricher, err := sampling.NewNMEnricher(logger, cfg.Probes.DBusTimeout); err != nil {
		logger.Warn("NetworkManager unavailable, interfaces get counters only", "error", err)
	} else {
		network.Enricher = enricher
		defer enricher.Close()
	}

	gpus := sampling.NewGPUSampler(sysRoot, "/proc", logger)
	gpus.GlxinfoPath = cfg.Probes.GlxinfoPath
	gpus.NvidiaSmiPath = cfg.Probes.NvidiaSmiPath
	gpus.ExecTimeout = cfg.Probes.ExecTimeout

	processes := sampling.NewProcessSampler(fs, logger)
	processes.ScaleToCores = cfg.Sampling.ScaleCPUToCores

	var controller engine.ServiceController
	if manager, err := services.NewManager(logger); err != nil {
		logger.Warn("systemd unavailable, service inventory disabled", "error", err)
	} else {
		manager.CallTimeout = cfg.Probes.DBusTimeout
		manager.ExecTimeout = cfg.Probes.ExecTimeout
		controller = manager
		defer manager.Close()
	}

	// The physical memory inventory never changes at runtime; probe it
	// once and carry it into every snapshot.
	var memDevices []telemetry.MemoryDevice
	if cfg.Probes.DmidecodePath != "" {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Probes.ExecTimeout)
		memDevices, err = dmi.MemoryDevices(probeCtx, cfg.Probes.DmidecodePath)
		cancel()
		if err != nil {
			logger.Warn("memory device probe failed", "error", err)
		}
	}

	publisher, err := relay.Listen(cfg.Relay.SocketPath, cfg.Relay.SubscriberBuffer, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	eng := engine.New(engine.Options{
		Interval:      cfg.Sampling.Interval,
		WaitSlices:    cfg.Sampling.WaitSlices,
		Logger:        logger,
		MemoryDevices: memDevices,
		Publish: func(r telemetry.Readings) {
			if err := publisher.Publish(r); err != nil {
				logger.Error("publishing snapshot failed", "error", err)
			}
		},
	}, engine.Sources{
		CPU:       sampling.NewCPUSampler(fs, sysRoot, logger),
		Memory:    sampling.NewMemorySampler(fs, logger),
		Disks:     sampling.NewDiskSampler(fs, sysRoot, logger),
		Network:   network,
		GPUs:      gpus,
		Fans:      sampling.NewFanSampler(sysRoot, logger),
		Processes: processes,
		Apps:      apps.LoadCatalog(logger),
		Services:  controller,
	})

	logger.Info("vigild starting",
		"interval", cfg.Sampling.Interval,
		"socket", cfg.Relay.SocketPath,
	)

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("vigild stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}
