// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CPUTimes is one "cpu" line of /proc/stat, values in clock ticks.
type CPUTimes struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
}

// Total returns all accounted ticks.
func (t CPUTimes) Total() uint64 {
	return t.User + t.Nice + t.System + t.Idle + t.IOWait +
		t.IRQ + t.SoftIRQ + t.Steal
}

// Busy returns non-idle ticks.
func (t CPUTimes) Busy() uint64 {
	return t.Total() - t.Idle - t.IOWait
}

// Kernel returns ticks spent in kernel context, including interrupt
// servicing.
func (t CPUTimes) Kernel() uint64 {
	return t.System + t.IRQ + t.SoftIRQ
}

// CPUStat is the CPU section of /proc/stat: the aggregate line plus one
// entry per logical core, in core order.
type CPUStat struct {
	Aggregate CPUTimes
	PerCore   []CPUTimes
}

// ReadCPUStat parses the cpu lines of /proc/stat.
func (fs FS) ReadCPUStat() (CPUStat, error) {
	f, err := os.Open(fs.path("stat"))
	if err != nil {
		return CPUStat{}, err
	}
	defer f.Close()

	var stat CPUStat
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		times, err := parseCPUTimes(fields[1:])
		if err != nil {
			return CPUStat{}, fmt.Errorf("parsing %q: %w", fields[0], err)
		}
		if fields[0] == "cpu" {
			stat.Aggregate = times
		} else {
			stat.PerCore = append(stat.PerCore, times)
		}
	}
	if err := scanner.Err(); err != nil {
		return CPUStat{}, err
	}
	return stat, nil
}

func parseCPUTimes(fields []string) (CPUTimes, error) {
	values := make([]uint64, 10)
	for i := 0; i < len(values) && i < len(fields); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return CPUTimes{}, err
		}
		values[i] = v
	}
	return CPUTimes{
		User: values[0], Nice: values[1], System: values[2], Idle: values[3],
		IOWait: values[4], IRQ: values[5], SoftIRQ: values[6], Steal: values[7],
		Guest: values[8], GuestNice: values[9],
	}, nil
}

// ReadUptime returns system uptime in seconds.
func (fs FS) ReadUptime() (float64, error) {
	data, err := os.ReadFile(fs.path("uptime"))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0, fmt.Errorf("empty uptime file")
	}
	return strconv.ParseFloat(fields[0], 64)
}

// ReadOpenFileCount returns the allocated file handle count from
// /proc/sys/fs/file-nr.
func (fs FS) ReadOpenFileCount() (uint64, error) {
	data, err := os.ReadFile(fs.path("sys", "fs", "file-nr"))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0, fmt.Errorf("empty file-nr")
	}
	return strconv.ParseUint(fields[0], 10, 64)
}
