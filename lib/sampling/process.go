// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// procSample is the raw per-pid counter set retained between cycles.
type procSample struct {
	utime      uint64
	stime      uint64
	readBytes  uint64
	writeBytes uint64
}

// ProcessSampler scans /proc and produces the per-process table with
// rates computed against the previous cycle.
type ProcessSampler struct {
	fs     procfs.FS
	logger *slog.Logger

	// ScaleToCores reports CPU against all cores (0..100*N) when true.
	ScaleToCores bool

	prev map[int32]procSample
}

// NewProcessSampler returns a sampler reading from fs.
func NewProcessSampler(fs procfs.FS, logger *slog.Logger) *ProcessSampler {
	return &ProcessSampler{
		fs:           fs,
		logger:       logger.With("component", "process-sampler"),
		ScaleToCores: true,
		prev:         map[int32]procSample{},
	}
}

// SetScaleToCores switches the CPU percentage basis for subsequent
// cycles.
func (s *ProcessSampler) SetScaleToCores(scale bool) { s.ScaleToCores = scale }

// ProcessScan is one cycle's process table plus the aggregate counts
// the CPU view displays.
type ProcessScan struct {
	Processes   map[int32]telemetry.Process
	ThreadCount uint32
}

// Sample scans every pid currently in /proc. elapsed is the wall time
// since the previous call; the first call (or elapsed <= 0) reports
// zero rates. cores bounds the CPU percentage clamp.
//
// A pid whose stat file cannot be read (exited mid-scan, permissions)
// is skipped; every other per-pid file is optional and leaves its
// fields zero. Previous-cycle counters for vanished pids are pruned
// every call.
func (s *ProcessSampler) Sample(elapsed time.Duration, cores int) (ProcessScan, error) {
	pids, err := s.fs.ListPIDs()
	if err != nil {
		return ProcessScan{}, err
	}
	if cores < 1 {
		cores = 1
	}

	scan := ProcessScan{Processes: make(map[int32]telemetry.Process, len(pids))}
	next := make(map[int32]procSample, len(pids))
	elapsedMs := elapsed.Milliseconds()

	for _, pid := range pids {
		stat, err := s.fs.ReadPIDStat(pid)
		if err != nil {
			// Exited between ListPIDs and the read. Routine.
			continue
		}

		proc := telemetry.Process{
			PID:       pid,
			ParentPID: stat.PPID,
			State:     telemetry.StateFromChar(stat.State),
		}

		if exe, err := s.fs.ReadPIDExe(pid); err == nil {
			proc.Exe = exe
		}
		if argv, err := s.fs.ReadPIDCmdline(pid); err == nil {
			proc.Cmd = argv
		}
		if cgroup, err := s.fs.ReadPIDAppCgroup(pid); err == nil {
			proc.Cgroup = cgroup
		}
		if tasks, err := s.fs.CountPIDTasks(pid); err == nil {
			proc.TaskCount = tasks
		}
		proc.Name = displayName(proc.Exe, proc.Cmd, stat.Comm)

		if resident, err := s.fs.ReadPIDResident(pid); err == nil {
			proc.Usage.MemoryBytes = resident
		}

		sample := procSample{utime: stat.UTime, stime: stat.STime}
		if io, err := s.fs.ReadPIDIO(pid); err == nil {
			sample.readBytes = io.ReadBytes
			sample.writeBytes = io.WriteBytes
		}

		if prev, ok := s.prev[pid]; ok && elapsedMs > 0 {
			proc.Usage.CPUPercent = s.cpuPercent(sample, prev, elapsedMs, cores)
			ioDelta := procfs.DeltaU64(sample.readBytes, prev.readBytes) +
				procfs.DeltaU64(sample.writeBytes, prev.writeBytes)
			proc.Usage.DiskBytesPerSec = float32(ioDelta) / 2 / float32(elapsed.Seconds())
		}

		next[pid] = sample
		scan.Processes[pid] = proc
		scan.ThreadCount += proc.TaskCount
	}

	s.prev = next
	return scan, nil
}

// cpuPercent converts a tick delta over elapsedMs into a percentage,
// clamped to [0, 100*cores] (or [0, 100] when not core-scaled).
func (s *ProcessSampler) cpuPercent(cur, prev procSample, elapsedMs int64, cores int) float32 {
	ticks := procfs.DeltaU64(cur.utime, prev.utime) + procfs.DeltaU64(cur.stime, prev.stime)
	busyMs := float64(ticks) * 1000 / float64(procfs.ClockTicks())
	percent := busyMs / float64(elapsedMs) * 100

	limit := 100 * float64(cores)
	if percent > limit {
		percent = limit
	}
	if !s.ScaleToCores {
		percent /= float64(cores)
	}
	return float32(percent)
}

// CachedPIDs returns the pids currently held in the previous-cycle
// cache, for pruning assertions in tests.
func (s *ProcessSampler) CachedPIDs() []int32 {
	pids := make([]int32, 0, len(s.prev))
	for pid := range s.prev {
		pids = append(pids, pid)
	}
	return pids
}

// displayName picks the human-facing process name. Preference order:
// the exe basename, then the first argv token's basename, then the
// kernel comm. Wine processes get the Windows executable name from
// argv since their exe is always the wine loader.
func displayName(exe string, argv []string, comm string) string {
	if len(argv) > 0 && strings.HasPrefix(filepath.Base(exe), "wine") {
		return windowsBasename(argv[0])
	}
	if exe != "" {
		return filepath.Base(exe)
	}
	if len(argv) > 0 && argv[0] != "" {
		name := filepath.Base(strings.Fields(argv[0])[0])
		// Interpreters report "name: description" style argv.
		return strings.TrimSuffix(name, ":")
	}
	return comm
}

// windowsBasename returns the final path element of a Windows-style
// command, tolerating either separator.
func windowsBasename(path string) string {
	if idx := strings.LastIndex(path, `\`); idx >= 0 {
		path = path[idx+1:]
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}
