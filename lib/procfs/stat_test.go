// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"testing"

	"github.com/vigil-systems/vigil/lib/testutil"
)

const sampleStat = `cpu  1000 50 300 8000 200 10 40 0 0 0
cpu0 500 25 150 4000 100 5 20 0 0 0
cpu1 500 25 150 4000 100 5 20 0 0 0
intr 12345 0 0
ctxt 999
btime 1700000000
processes 4242
procs_running 2
procs_blocked 0
`

func TestReadCPUStat(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"stat": sampleStat})

	stat, err := New(root).ReadCPUStat()
	if err != nil {
		t.Fatalf("ReadCPUStat: %v", err)
	}
	if got := stat.Aggregate.Total(); got != 9600 {
		t.Errorf("aggregate total = %d, want 9600", got)
	}
	if got := stat.Aggregate.Busy(); got != 1400 {
		t.Errorf("aggregate busy = %d, want 1400", got)
	}
	if got := stat.Aggregate.Kernel(); got != 350 {
		t.Errorf("aggregate kernel = %d, want 350", got)
	}
	if len(stat.PerCore) != 2 {
		t.Fatalf("per-core count = %d, want 2", len(stat.PerCore))
	}
	if stat.PerCore[0].User != 500 {
		t.Errorf("core0 user = %d", stat.PerCore[0].User)
	}
}

func TestReadMemInfo(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"meminfo": `MemTotal:       16000000 kB
MemFree:         4000000 kB
MemAvailable:    8000000 kB
Buffers:          100000 kB
Cached:          3000000 kB
SwapTotal:       2000000 kB
SwapFree:        1500000 kB
Dirty:               120 kB
Shmem:            500000 kB
Slab:             250000 kB
Committed_AS:   12000000 kB
HugePages_Total:       0
`,
	})

	info, err := New(root).ReadMemInfo()
	if err != nil {
		t.Fatalf("ReadMemInfo: %v", err)
	}
	if info.Total != 16000000*1024 {
		t.Errorf("Total = %d", info.Total)
	}
	if info.Available != 8000000*1024 {
		t.Errorf("Available = %d", info.Available)
	}
	if info.SwapFree != 1500000*1024 {
		t.Errorf("SwapFree = %d", info.SwapFree)
	}
	if info.Zswap != 0 {
		t.Errorf("Zswap = %d, want 0 when absent", info.Zswap)
	}
}

func TestReadUptime(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"uptime": "12345.67 99999.99\n"})
	up, err := New(root).ReadUptime()
	if err != nil {
		t.Fatalf("ReadUptime: %v", err)
	}
	if up != 12345.67 {
		t.Errorf("uptime = %v", up)
	}
}

func TestReadOpenFileCount(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"sys/fs/file-nr": "10432\t0\t9223372036854775807\n"})
	n, err := New(root).ReadOpenFileCount()
	if err != nil {
		t.Fatalf("ReadOpenFileCount: %v", err)
	}
	if n != 10432 {
		t.Errorf("handles = %d", n)
	}
}

func TestReadCPUInfo(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"cpuinfo": `processor	: 0
model name	: AMD Ryzen 7 5800X 8-Core Processor
cpu MHz		: 3800.000
physical id	: 0

processor	: 1
model name	: AMD Ryzen 7 5800X 8-Core Processor
cpu MHz		: 2200.000
physical id	: 0
`,
	})

	info, err := New(root).ReadCPUInfo()
	if err != nil {
		t.Fatalf("ReadCPUInfo: %v", err)
	}
	if len(info.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(info.Blocks))
	}
	model, ok := info.Field("model name")
	if !ok || model != "AMD Ryzen 7 5800X 8-Core Processor" {
		t.Errorf("model = %q, ok=%v", model, ok)
	}
	if info.Blocks[1]["cpu MHz"] != "2200.000" {
		t.Errorf("second block MHz = %q", info.Blocks[1]["cpu MHz"])
	}
}
