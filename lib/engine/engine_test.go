// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/vigil-systems/vigil/lib/clock"
	"github.com/vigil-systems/vigil/lib/sampling"
	"github.com/vigil-systems/vigil/lib/telemetry"
	"github.com/vigil-systems/vigil/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeSources records the call order and serves canned values.
type fakeSources struct {
	calls []string

	processes map[int32]telemetry.Process
	threads   uint32
	scaled    bool
	logs      string
	logsPID   int32
	listErr   error
}

func (f *fakeSources) record(name string) { f.calls = append(f.calls, name) }

type fakeCPU struct{ f *fakeSources }

func (c fakeCPU) Sample() telemetry.CPU {
	c.f.record("cpu")
	return telemetry.CPU{LogicalCores: 4}
}
func (c fakeCPU) Cores() int { return 4 }

type fakeMemory struct{ f *fakeSources }

func (m fakeMemory) Sample() telemetry.Memory {
	m.f.record("memory")
	return telemetry.Memory{Total: 1 << 30}
}

type fakeDisks struct{ f *fakeSources }

func (d fakeDisks) Sample(time.Duration) []telemetry.Disk {
	d.f.record("disks")
	return []telemetry.Disk{{ID: "sda"}}
}

type fakeNetwork struct{ f *fakeSources }

func (n fakeNetwork) Sample(context.Context, time.Duration) []telemetry.NetworkConnection {
	n.f.record("network")
	return nil
}

type fakeGPUs struct{ f *fakeSources }

func (g fakeGPUs) Sample(context.Context) map[string]telemetry.GPU {
	g.f.record("gpus")
	return map[string]telemetry.GPU{}
}

type fakeFans struct{ f *fakeSources }

func (x fakeFans) Sample() []telemetry.Fan {
	x.f.record("fans")
	return nil
}

type fakeProcesses struct{ f *fakeSources }

func (p fakeProcesses) Sample(_ time.Duration, cores int) (sampling.ProcessScan, error) {
	p.f.record("processes")
	if cores != 4 {
		panic("cores not threaded through")
	}
	return sampling.ProcessScan{Processes: p.f.processes, ThreadCount: p.f.threads}, nil
}
func (p fakeProcesses) SetScaleToCores(scale bool) { p.f.scaled = scale }

type fakeApps struct{ f *fakeSources }

func (a fakeApps) Correlate(procs map[int32]telemetry.Process) map[string]telemetry.App {
	a.f.record("apps")
	return map[string]telemetry.App{"app": {ID: "app", PIDs: []int32{1}}}
}

type fakeServices struct{ f *fakeSources }

func (s fakeServices) List(context.Context) (map[string]telemetry.Service, error) {
	s.f.record("services")
	if s.f.listErr != nil {
		return nil, s.f.listErr
	}
	return map[string]telemetry.Service{"sshd.service": {Name: "sshd.service"}}, nil
}
func (s fakeServices) Start(context.Context, string) error   { s.f.record("start"); return nil }
func (s fakeServices) Stop(context.Context, string) error    { s.f.record("stop"); return nil }
func (s fakeServices) Restart(context.Context, string) error { s.f.record("restart"); return nil }
func (s fakeServices) Enable(context.Context, string) error  { s.f.record("enable"); return nil }
func (s fakeServices) Disable(context.Context, string) error { s.f.record("disable"); return nil }
func (s fakeServices) Logs(_ context.Context, _ string, pid int32, _ int) (string, error) {
	s.f.logsPID = pid
	return s.f.logs, nil
}

func testEngine(t *testing.T, fc *clock.FakeClock) (*Engine, *fakeSources, chan telemetry.Readings) {
	t.Helper()
	f := &fakeSources{
		processes: map[int32]telemetry.Process{
			1: {PID: 1, TaskCount: 2, Usage: telemetry.UsageStats{CPUPercent: 5, MemoryBytes: 1 << 20}},
			2: {PID: 2, ParentPID: 1, TaskCount: 3, Usage: telemetry.UsageStats{CPUPercent: 10, MemoryBytes: 2 << 20}},
		},
		threads: 5,
	}
	published := make(chan telemetry.Readings, 16)
	e := New(Options{
		Interval:   100 * time.Millisecond,
		WaitSlices: 2,
		Clock:      fc,
		Logger:     testLogger(),
		Publish:    func(r telemetry.Readings) { published <- r },
	}, Sources{
		CPU:       fakeCPU{f},
		Memory:    fakeMemory{f},
		Disks:     fakeDisks{f},
		Network:   fakeNetwork{f},
		GPUs:      fakeGPUs{f},
		Fans:      fakeFans{f},
		Processes: fakeProcesses{f},
		Apps:      fakeApps{f},
		Services:  fakeServices{f},
	})
	return e, f, published
}

func TestInitialSnapshotBeforeFirstWait(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, f, published := testEngine(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// Published without any clock advance.
	r := testutil.RequireReceive(t, published, time.Second, "initial snapshot")
	if !r.Timestamp.Equal(time.Unix(1000, 0)) {
		t.Errorf("timestamp = %v", r.Timestamp)
	}
	if r.Elapsed != 0 {
		t.Errorf("initial elapsed = %v, want 0", r.Elapsed)
	}

	want := []string{"cpu", "memory", "disks", "network", "gpus", "fans", "processes", "apps", "services"}
	if !reflect.DeepEqual(f.calls, want) {
		t.Errorf("call order = %v, want %v", f.calls, want)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, time.Second, "run exit"); err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}
}

func TestSnapshotAssembly(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, published := testEngine(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	r := testutil.RequireReceive(t, published, time.Second, "snapshot")
	if r.CPU.ProcessCount != 2 || r.CPU.ThreadCount != 5 {
		t.Errorf("counts = %d/%d, want 2/5", r.CPU.ProcessCount, r.CPU.ThreadCount)
	}
	if len(r.Processes) != 2 {
		t.Errorf("processes = %d", len(r.Processes))
	}
	if _, ok := r.Apps["app"]; !ok {
		t.Error("apps not assembled")
	}
	if _, ok := r.Services["sshd.service"]; !ok {
		t.Error("services not assembled")
	}
	if r.Disks[0].ID != "sda" {
		t.Errorf("disks = %+v", r.Disks)
	}
}

func TestSnapshotProcessTree(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, published := testEngine(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	r := testutil.RequireReceive(t, published, time.Second, "snapshot")
	if r.ProcessTree == nil {
		t.Fatal("snapshot carries no process tree")
	}
	root := r.ProcessTree
	if root.PID != 1 || len(root.Children) != 1 || root.Children[0].PID != 2 {
		t.Fatalf("tree shape: root=%d children=%+v", root.PID, root.Children)
	}
	if root.MergedUsage.CPUPercent != 15 || root.MergedUsage.MemoryBytes != 3<<20 {
		t.Errorf("root merged usage = %+v", root.MergedUsage)
	}
	// The flat map stays flat; tree-only fields live on the tree.
	if flat := r.Processes[1]; flat.Children != nil || flat.MergedUsage != (telemetry.UsageStats{}) {
		t.Errorf("flat entry carries tree fields: %+v", flat)
	}
}

func TestIntervalElapsed(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, published := testEngine(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	testutil.RequireReceive(t, published, time.Second, "initial snapshot")

	// Two 50ms slices make up the 100ms interval.
	fc.WaitForTimers(1)
	fc.Advance(50 * time.Millisecond)
	fc.WaitForTimers(1)
	fc.Advance(50 * time.Millisecond)

	r := testutil.RequireReceive(t, published, time.Second, "second snapshot")
	if r.Elapsed != 100*time.Millisecond {
		t.Errorf("elapsed = %v, want 100ms", r.Elapsed)
	}
	if !r.Timestamp.Equal(time.Unix(1000, 0).Add(100 * time.Millisecond)) {
		t.Errorf("timestamp = %v", r.Timestamp)
	}
}

func TestSetIntervalTakesEffect(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, published := testEngine(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	testutil.RequireReceive(t, published, time.Second, "initial snapshot")

	if err := e.SetInterval(ctx, 200*time.Millisecond); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	// Slices are now 100ms each; two of them complete the interval. The
	// 50ms slice abandoned when the command arrived is still registered,
	// so wait for both it and the fresh slice.
	fc.WaitForTimers(2)
	fc.Advance(100 * time.Millisecond)
	fc.WaitForTimers(1)
	fc.Advance(100 * time.Millisecond)

	r := testutil.RequireReceive(t, published, time.Second, "snapshot after interval change")
	if r.Elapsed != 200*time.Millisecond {
		t.Errorf("elapsed = %v, want 200ms", r.Elapsed)
	}
}

func TestSetIntervalBelowMinimum(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, _ := testEngine(t, fc)
	if err := e.SetInterval(context.Background(), time.Millisecond); err == nil {
		t.Fatal("1ms interval accepted")
	}
}

func TestSetCoreCountScaling(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, f, published := testEngine(t, fc)
	f.scaled = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)
	testutil.RequireReceive(t, published, time.Second, "initial snapshot")

	if err := e.SetCoreCountScaling(ctx, false); err != nil {
		t.Fatalf("SetCoreCountScaling: %v", err)
	}
	if f.scaled {
		t.Error("scaling flag not forwarded to the process sampler")
	}
}

func TestSignalValidation(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, _, _ := testEngine(t, fc)
	if err := e.Signal(context.Background(), 1, Signal("PWNED")); err == nil {
		t.Fatal("unknown signal accepted")
	}
}

func TestServiceCommands(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, f, published := testEngine(t, fc)
	f.logs = "line one\nline two\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)
	testutil.RequireReceive(t, published, time.Second, "initial snapshot")

	if err := e.ServiceAction(ctx, ServiceRestart, "sshd.service"); err != nil {
		t.Fatalf("ServiceAction: %v", err)
	}
	if f.calls[len(f.calls)-1] != "restart" {
		t.Errorf("last call = %q, want restart", f.calls[len(f.calls)-1])
	}

	if err := e.ServiceAction(ctx, ServiceAction("explode"), "sshd.service"); err == nil {
		t.Fatal("unknown action accepted")
	}

	logs, err := e.ServiceLogs(ctx, "sshd.service", 0, 2)
	if err != nil {
		t.Fatalf("ServiceLogs: %v", err)
	}
	if logs != f.logs {
		t.Errorf("logs = %q", logs)
	}
	if f.logsPID != 0 {
		t.Errorf("pid filter = %d, want 0", f.logsPID)
	}

	if _, err := e.ServiceLogs(ctx, "sshd.service", 1234, 2); err != nil {
		t.Fatalf("ServiceLogs with pid: %v", err)
	}
	if f.logsPID != 1234 {
		t.Errorf("pid filter = %d, want 1234", f.logsPID)
	}
}

func TestServiceListFailureKeepsCycle(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	e, f, published := testEngine(t, fc)
	f.listErr = context.DeadlineExceeded

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	r := testutil.RequireReceive(t, published, time.Second, "snapshot despite service failure")
	if r.Services == nil {
		t.Fatal("services map nil after failure")
	}
	if len(r.Services) != 0 {
		t.Errorf("services = %v, want empty", r.Services)
	}
	// Everything before and after the failed subsystem still ran.
	if r.CPU.LogicalCores != 4 || len(r.Processes) != 2 {
		t.Error("other subsystems missing from snapshot")
	}
}
