// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import "time"

// Readings is one immutable snapshot of system state. Every field is
// populated from the same sampling cycle; the engine hands the whole
// value off and never mutates it afterwards. All maps and slices are
// non-nil even when a subsystem failed, so consumers never nil-check.
type Readings struct {
	// Timestamp is the engine clock reading at the start of the cycle.
	Timestamp time.Time `cbor:"timestamp" json:"timestamp"`

	// Elapsed is the wall time since the previous cycle. Zero on the
	// first snapshot.
	Elapsed time.Duration `cbor:"elapsed" json:"elapsed"`

	CPU           CPU                          `cbor:"cpu" json:"cpu"`
	Memory        Memory                       `cbor:"memory" json:"memory"`
	MemoryDevices []MemoryDevice               `cbor:"memory_devices" json:"memory_devices"`
	Disks         []Disk                       `cbor:"disks" json:"disks"`
	Network       []NetworkConnection          `cbor:"network" json:"network"`
	GPUs          map[string]GPU               `cbor:"gpus" json:"gpus"`
	Fans          []Fan                        `cbor:"fans" json:"fans"`
	Processes     map[int32]Process            `cbor:"processes" json:"processes"`
	Apps          map[string]App               `cbor:"apps" json:"apps"`
	Services      map[string]Service           `cbor:"services" json:"services"`

	// ProcessTree is the Processes map arranged as a single rooted
	// hierarchy, each node carrying MergedUsage for itself plus all
	// descendants. Nil only when the process scan produced nothing.
	ProcessTree *Process `cbor:"process_tree,omitempty" json:"process_tree,omitempty"`
}

// Empty returns a Readings with every collection allocated. Samplers
// fill in what they can; a failed subsystem leaves its part empty but
// never nil.
func Empty() Readings {
	return Readings{
		MemoryDevices: []MemoryDevice{},
		Disks:         []Disk{},
		Network:       []NetworkConnection{},
		GPUs:          map[string]GPU{},
		Fans:          []Fan{},
		Processes:     map[int32]Process{},
		Apps:          map[string]App{},
		Services:      map[string]Service{},
	}
}

// UsageStats is the per-entity resource accounting unit. Process rows
// carry their own stats; apps and merged process trees carry sums.
type UsageStats struct {
	// CPUPercent is 0..100 per core in core-scaled mode, 0..100 overall
	// otherwise.
	CPUPercent float32 `cbor:"cpu_percent" json:"cpu_percent"`

	// MemoryBytes is resident set size.
	MemoryBytes uint64 `cbor:"memory_bytes" json:"memory_bytes"`

	// DiskBytesPerSec is the averaged read/write rate.
	DiskBytesPerSec float32 `cbor:"disk_bytes_per_sec" json:"disk_bytes_per_sec"`

	// NetworkBytesPerSec is reserved; per-process network accounting
	// needs eBPF and stays zero here.
	NetworkBytesPerSec float32 `cbor:"network_bytes_per_sec" json:"network_bytes_per_sec"`

	// GPUPercent and GPUMemoryBytes come from per-pid DRM client info
	// where the driver exposes it.
	GPUPercent     float32 `cbor:"gpu_percent" json:"gpu_percent"`
	GPUMemoryBytes uint64  `cbor:"gpu_memory_bytes" json:"gpu_memory_bytes"`
}

// Merge returns the element-wise sum of two stat sets.
func (u UsageStats) Merge(other UsageStats) UsageStats {
	return UsageStats{
		CPUPercent:         u.CPUPercent + other.CPUPercent,
		MemoryBytes:        u.MemoryBytes + other.MemoryBytes,
		DiskBytesPerSec:    u.DiskBytesPerSec + other.DiskBytesPerSec,
		NetworkBytesPerSec: u.NetworkBytesPerSec + other.NetworkBytesPerSec,
		GPUPercent:         u.GPUPercent + other.GPUPercent,
		GPUMemoryBytes:     u.GPUMemoryBytes + other.GPUMemoryBytes,
	}
}
