// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigil-systems/vigil/lib/clock"
	"github.com/vigil-systems/vigil/lib/proctree"
	"github.com/vigil-systems/vigil/lib/sampling"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// minInterval is the floor on the sampling interval; below this the
// kernel counters barely move between reads.
const minInterval = 50 * time.Millisecond

// Sources bundles the subsystem samplers the engine drives each cycle.
// Services may be nil when no system bus is available.
type Sources struct {
	CPU       CPUSource
	Memory    MemorySource
	Disks     DiskSource
	Network   NetworkSource
	GPUs      GPUSource
	Fans      FanSource
	Processes ProcessSource
	Apps      AppSource
	Services  ServiceController
}

// CPUSource produces the CPU snapshot and reports the core count the
// process sampler clamps against.
type CPUSource interface {
	Sample() telemetry.CPU
	Cores() int
}

type MemorySource interface {
	Sample() telemetry.Memory
}

type DiskSource interface {
	Sample(elapsed time.Duration) []telemetry.Disk
}

type NetworkSource interface {
	Sample(ctx context.Context, elapsed time.Duration) []telemetry.NetworkConnection
}

type GPUSource interface {
	Sample(ctx context.Context) map[string]telemetry.GPU
}

type FanSource interface {
	Sample() []telemetry.Fan
}

type ProcessSource interface {
	Sample(elapsed time.Duration, cores int) (sampling.ProcessScan, error)
	SetScaleToCores(scale bool)
}

type AppSource interface {
	Correlate(processes map[int32]telemetry.Process) map[string]telemetry.App
}

// ServiceController is the systemd surface the engine forwards service
// commands to.
type ServiceController interface {
	List(ctx context.Context) (map[string]telemetry.Service, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	Logs(ctx context.Context, name string, pid int32, maxLines int) (string, error)
}

// Options configures an Engine.
type Options struct {
	// Interval is the sampling period. Clamped to minInterval.
	Interval time.Duration

	// WaitSlices is how many bounded waits the interval sleep is split
	// into; each slice services the command channel. Defaults to 10.
	WaitSlices int

	Clock  clock.Clock
	Logger *slog.Logger

	// MemoryDevices is the dmidecode inventory, probed once at startup
	// and carried verbatim into every snapshot.
	MemoryDevices []telemetry.MemoryDevice

	// Publish receives every completed snapshot. Called from the engine
	// goroutine; must not block.
	Publish func(telemetry.Readings)
}

// Engine runs the sampling loop: one full pass over every source per
// interval, each pass assembled into an immutable Readings and handed
// to Publish.
type Engine struct {
	sources Sources
	clk     clock.Clock
	logger  *slog.Logger
	publish func(telemetry.Readings)

	interval   time.Duration
	waitSlices int
	memDevices []telemetry.MemoryDevice

	commands chan command
}

// New returns an Engine; call Run to start sampling.
func New(opts Options, sources Sources) *Engine {
	interval := opts.Interval
	if interval < minInterval {
		interval = minInterval
	}
	slices := opts.WaitSlices
	if slices < 1 {
		slices = 10
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	publish := opts.Publish
	if publish == nil {
		publish = func(telemetry.Readings) {}
	}
	return &Engine{
		sources:    sources,
		clk:        clk,
		logger:     opts.Logger.With("component", "engine"),
		publish:    publish,
		interval:   interval,
		waitSlices: slices,
		memDevices: opts.MemoryDevices,
		commands:   make(chan command, 16),
	}
}

// Run samples until ctx is cancelled. The first snapshot is taken
// immediately, before any interval wait, so subscribers never see an
// empty screen for a full period.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("sampling started", "interval", e.interval)

	last := e.clk.Now()
	e.cycle(ctx, last, 0)

	for {
		if err := e.wait(ctx); err != nil {
			e.logger.Info("sampling stopped")
			return err
		}
		now := e.clk.Now()
		e.cycle(ctx, now, now.Sub(last))
		last = now
	}
}

// wait sleeps one interval in waitSlices bounded slices, servicing
// commands between slices. A command does not consume its slice, so
// command bursts do not shorten the interval.
func (e *Engine) wait(ctx context.Context) error {
	for done := 0; done < e.waitSlices; {
		slice := e.interval / time.Duration(e.waitSlices)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.commands:
			e.handle(ctx, cmd)
		case <-e.clk.After(slice):
			done++
		}
	}
	return nil
}

// cycle runs every sampler in a fixed order and publishes the result.
// Subsystem failures are logged and leave that part of the snapshot
// empty; the cycle always completes.
func (e *Engine) cycle(ctx context.Context, now time.Time, elapsed time.Duration) {
	r := telemetry.Empty()
	r.Timestamp = now
	r.Elapsed = elapsed
	r.MemoryDevices = e.memDevices

	r.CPU = e.sources.CPU.Sample()
	r.Memory = e.sources.Memory.Sample()
	r.Disks = e.sources.Disks.Sample(elapsed)
	r.Network = e.sources.Network.Sample(ctx, elapsed)
	r.GPUs = e.sources.GPUs.Sample(ctx)
	r.Fans = e.sources.Fans.Sample()

	scan, err := e.sources.Processes.Sample(elapsed, e.sources.CPU.Cores())
	if err != nil {
		e.logger.Error("process scan failed", "error", err)
	} else {
		r.Processes = scan.Processes
		r.CPU.ProcessCount = uint32(len(scan.Processes))
		r.CPU.ThreadCount = scan.ThreadCount
	}
	if root, ok := proctree.Build(r.Processes); ok {
		r.ProcessTree = &root
	}

	r.Apps = e.sources.Apps.Correlate(r.Processes)

	if e.sources.Services != nil {
		services, err := e.sources.Services.List(ctx)
		if err != nil {
			e.logger.Error("service listing failed", "error", err)
		} else {
			r.Services = services
		}
	}

	e.publish(r)
}

// enqueue posts a command and waits for the loop to execute it.
func (e *Engine) enqueue(ctx context.Context, cmd command) (string, error) {
	cmd.reply = make(chan result, 1)
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.logs, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SetInterval changes the sampling period, effective from the next
// wait slice.
func (e *Engine) SetInterval(ctx context.Context, d time.Duration) error {
	if d < minInterval {
		return fmt.Errorf("interval %v below minimum %v", d, minInterval)
	}
	_, err := e.enqueue(ctx, command{kind: cmdSetInterval, interval: d})
	return err
}

// SetCoreCountScaling switches process CPU percentages between the
// 0..100*cores and 0..100 bases.
func (e *Engine) SetCoreCountScaling(ctx context.Context, scale bool) error {
	_, err := e.enqueue(ctx, command{kind: cmdSetScaling, scale: scale})
	return err
}

// Signal delivers sig to pid.
func (e *Engine) Signal(ctx context.Context, pid int32, sig Signal) error {
	if _, ok := signals[sig]; !ok {
		return fmt.Errorf("unsupported signal %q", sig)
	}
	_, err := e.enqueue(ctx, command{kind: cmdSignal, pid: pid, signal: sig})
	return err
}

// ServiceAction runs a systemd operation on a unit.
func (e *Engine) ServiceAction(ctx context.Context, action ServiceAction, unit string) error {
	if _, ok := serviceActions[action]; !ok {
		return fmt.Errorf("unsupported service action %q", action)
	}
	_, err := e.enqueue(ctx, command{kind: cmdService, action: action, unit: unit})
	return err
}

// ServiceLogs fetches recent journal lines for a unit. A nonzero pid
// restricts the lines to that process.
func (e *Engine) ServiceLogs(ctx context.Context, unit string, pid int32, maxLines int) (string, error) {
	return e.enqueue(ctx, command{kind: cmdServiceLogs, unit: unit, pid: pid, lines: maxLines})
}
