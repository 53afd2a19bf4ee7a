// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeStat(t *testing.T, root string, pid int, comm string, utime, stime uint64) {
	t.Helper()
	testutil.WriteTree(t, root, map[string]string{
		fmt.Sprintf("%d/stat", pid): fmt.Sprintf(
			"%d (%s) S 1 1 1 0 -1 4194560 0 0 0 0 %d %d 0 0 20 0 1 0 100 0 0",
			pid, comm, utime, stime),
	})
}

func TestSampleCPUPercentWorkedScenario(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 100, "worker", 100, 50)

	s := NewProcessSampler(procfs.New(root), testLogger())
	first, err := s.Sample(0, 4)
	if err != nil {
		t.Fatalf("first Sample: %v", err)
	}
	if got := first.Processes[100].Usage.CPUPercent; got != 0 {
		t.Errorf("first observation cpu = %v, want 0", got)
	}

	// 50 utime + 30 stime ticks over 1000ms at 100 ticks/sec is 800ms
	// of CPU in a 1000ms window: 80%.
	writeStat(t, root, 100, "worker", 150, 80)
	second, err := s.Sample(time.Second, 4)
	if err != nil {
		t.Fatalf("second Sample: %v", err)
	}
	got := second.Processes[100].Usage.CPUPercent
	if got < 79.99 || got > 80.01 {
		t.Errorf("cpu = %v, want 80", got)
	}
}

func TestSampleCPUPercentClampedToCores(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 7, "spin", 0, 0)

	s := NewProcessSampler(procfs.New(root), testLogger())
	if _, err := s.Sample(0, 2); err != nil {
		t.Fatal(err)
	}

	// 1000 ticks in 100ms is nominally 10000ms of CPU: impossible,
	// clamp to 100 * cores.
	writeStat(t, root, 7, "spin", 1000, 0)
	scan, err := s.Sample(100*time.Millisecond, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := scan.Processes[7].Usage.CPUPercent; got != 200 {
		t.Errorf("cpu = %v, want clamp at 200", got)
	}
}

func TestSampleCPUPercentNormalizedMode(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 7, "spin", 0, 0)

	s := NewProcessSampler(procfs.New(root), testLogger())
	s.ScaleToCores = false
	if _, err := s.Sample(0, 4); err != nil {
		t.Fatal(err)
	}

	writeStat(t, root, 7, "spin", 100, 100) // 2000ms of CPU over 1s on 4 cores
	scan, err := s.Sample(time.Second, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := scan.Processes[7].Usage.CPUPercent; got != 50 {
		t.Errorf("normalized cpu = %v, want 50", got)
	}
}

func TestSampleCounterResetReportsZero(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 9, "reset", 5000, 5000)

	s := NewProcessSampler(procfs.New(root), testLogger())
	if _, err := s.Sample(0, 1); err != nil {
		t.Fatal(err)
	}

	writeStat(t, root, 9, "reset", 10, 10)
	scan, err := s.Sample(time.Second, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := scan.Processes[9].Usage.CPUPercent; got != 0 {
		t.Errorf("cpu after counter reset = %v, want 0", got)
	}
}

func TestSamplePrunesVanishedPIDs(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 100, "a", 0, 0)
	writeStat(t, root, 200, "b", 0, 0)

	s := NewProcessSampler(procfs.New(root), testLogger())
	if _, err := s.Sample(0, 1); err != nil {
		t.Fatal(err)
	}
	if got := len(s.CachedPIDs()); got != 2 {
		t.Fatalf("cache = %d pids, want 2", got)
	}

	// pid 200 exits: one absent cycle must evict it.
	if err := os.RemoveAll(root + "/200"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Sample(time.Second, 1); err != nil {
		t.Fatal(err)
	}
	cached := s.CachedPIDs()
	if len(cached) != 1 || cached[0] != 100 {
		t.Errorf("cache after prune = %v, want [100]", cached)
	}
}

func TestSampleIdempotentOverFrozenTree(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 50, "steady", 400, 100)
	writeStat(t, root, 51, "steady2", 10, 20)

	s := NewProcessSampler(procfs.New(root), testLogger())
	if _, err := s.Sample(0, 2); err != nil {
		t.Fatal(err)
	}

	// The tree does not change between cycles, so every subsequent
	// sample must agree: zero deltas, identical tables.
	a, err := s.Sample(time.Second, 2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Sample(time.Second, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Processes) != len(b.Processes) {
		t.Fatalf("table sizes differ: %d vs %d", len(a.Processes), len(b.Processes))
	}
	for pid, pa := range a.Processes {
		pb := b.Processes[pid]
		if pa.Usage != pb.Usage {
			t.Errorf("pid %d usage differs: %+v vs %+v", pid, pa.Usage, pb.Usage)
		}
		if pa.Usage.CPUPercent != 0 {
			t.Errorf("pid %d cpu = %v over frozen counters, want 0", pid, pa.Usage.CPUPercent)
		}
	}
}

func TestSampleSkipsMalformedPIDOnly(t *testing.T) {
	root := t.TempDir()
	writeStat(t, root, 10, "good", 0, 0)
	testutil.WriteTree(t, root, map[string]string{"11/stat": "garbage"})

	s := NewProcessSampler(procfs.New(root), testLogger())
	scan, err := s.Sample(0, 1)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	var pids []int32
	for pid := range scan.Processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	if len(pids) != 1 || pids[0] != 10 {
		t.Errorf("pids = %v, want [10]", pids)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		exe  string
		argv []string
		comm string
		want string
	}{
		{"exe basename", "/usr/bin/nautilus", []string{"/usr/bin/nautilus"}, "nautilus", "nautilus"},
		{"argv fallback", "", []string{"/usr/lib/firefox/firefox -contentproc"}, "firefox", "firefox"},
		{"colon suffix stripped", "", []string{"nginx: worker process"}, "nginx", "nginx"},
		{"comm fallback", "", nil, "kworker/0:1", "kworker/0:1"},
		{"wine windows path", "/usr/bin/wine64-preloader", []string{`C:\Games\Foo\game.exe`}, "game.exe", "game.exe"},
		{"wine forward slash", "/opt/wine/bin/wine", []string{"Z:/apps/tool.exe"}, "tool.exe", "tool.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(tt.exe, tt.argv, tt.comm); got != tt.want {
				t.Errorf("displayName = %q, want %q", got, tt.want)
			}
		})
	}
}
