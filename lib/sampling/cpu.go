// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// CPUSampler produces the CPU section of a snapshot. Static hardware
// facts are probed once on first use; jiffy counters are kept between
// cycles for delta math.
type CPUSampler struct {
	fs      procfs.FS
	sysRoot string
	logger  *slog.Logger

	static  *telemetry.CPU
	prev    procfs.CPUStat
	hasPrev bool
}

// NewCPUSampler returns a sampler reading procfs from fs and sysfs
// from sysRoot (normally "/sys").
func NewCPUSampler(fs procfs.FS, sysRoot string, logger *slog.Logger) *CPUSampler {
	return &CPUSampler{
		fs:      fs,
		sysRoot: sysRoot,
		logger:  logger.With("component", "cpu-sampler"),
	}
}

// Cores returns the logical core count, probing static info if needed.
func (s *CPUSampler) Cores() int {
	static := s.ensureStatic()
	if static.LogicalCores == 0 {
		return 1
	}
	return int(static.LogicalCores)
}

// Sample refreshes utilization, frequency, temperature, and the system
// counters. The first call reports zero utilization since there is no
// previous jiffy set.
func (s *CPUSampler) Sample() telemetry.CPU {
	cpu := *s.ensureStatic()

	stat, err := s.fs.ReadCPUStat()
	if err != nil {
		s.logger.Error("reading cpu stat", "error", err)
		return cpu
	}

	if s.hasPrev {
		cpu.OverallPercent, cpu.KernelPercent = utilization(s.prev.Aggregate, stat.Aggregate)
		for i, cur := range stat.PerCore {
			if i >= len(s.prev.PerCore) {
				break
			}
			busy, kernel := utilization(s.prev.PerCore[i], cur)
			cpu.PerCorePercent = append(cpu.PerCorePercent, busy)
			cpu.PerCoreKernel = append(cpu.PerCoreKernel, kernel)
		}
	}
	s.prev = stat
	s.hasPrev = true

	cpu.CurrentFrequencyMHz = s.currentFrequency()
	cpu.TemperatureC = s.temperature()

	if uptime, err := s.fs.ReadUptime(); err == nil {
		cpu.UptimeSeconds = uint64(uptime)
	}
	if handles, err := s.fs.ReadOpenFileCount(); err == nil {
		cpu.HandleCount = handles
	}
	return cpu
}

// utilization computes busy and kernel percentages from two jiffy
// sets. A zero total delta (sub-tick sampling interval) reports zero.
func utilization(prev, cur procfs.CPUTimes) (busy, kernel float32) {
	total := procfs.DeltaU64(cur.Total(), prev.Total())
	if total == 0 {
		return 0, 0
	}
	busy = 100 * float32(procfs.DeltaU64(cur.Busy(), prev.Busy())) / float32(total)
	kernel = 100 * float32(procfs.DeltaU64(cur.Kernel(), prev.Kernel())) / float32(total)
	if busy > 100 {
		busy = 100
	}
	if kernel > 100 {
		kernel = 100
	}
	return busy, kernel
}

// currentFrequency returns the highest current core clock in MHz.
// cpufreq sysfs is preferred; /proc/cpuinfo "cpu MHz" is the fallback
// on systems without cpufreq drivers.
func (s *CPUSampler) currentFrequency() uint64 {
	var maxKHz uint64
	for _, name := range sysfs.ListDir(s.sysRoot + "/devices/system/cpu") {
		if !isCPUEntry(name) {
			continue
		}
		khz := sysfs.ReadUint64(s.sysRoot + "/devices/system/cpu/" + name + "/cpufreq/scaling_cur_freq")
		if khz > maxKHz {
			maxKHz = khz
		}
	}
	if maxKHz > 0 {
		return maxKHz / 1000
	}

	info, err := s.fs.ReadCPUInfo()
	if err != nil {
		return 0
	}
	var maxMHz float64
	for _, block := range info.Blocks {
		if v, ok := block["cpu MHz"]; ok {
			if mhz, err := strconv.ParseFloat(v, 64); err == nil && mhz > maxMHz {
				maxMHz = mhz
			}
		}
	}
	return uint64(maxMHz)
}

// temperature reads the package sensor from the usual CPU hwmon chips.
func (s *CPUSampler) temperature() float32 {
	chip, ok := sysfs.FindHwmon(s.sysRoot+"/class/hwmon", "coretemp", "k10temp", "zenpower", "cpu_thermal")
	if !ok {
		return 0
	}
	return chip.TempInput(1)
}

func isCPUEntry(name string) bool {
	suffix, found := strings.CutPrefix(name, "cpu")
	if !found || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
