// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// MemInfo is /proc/meminfo with values converted to bytes.
type MemInfo struct {
	Total     uint64
	Free      uint64
	Available uint64
	Buffers   uint64
	Cached    uint64
	SwapTotal uint64
	SwapFree  uint64
	Dirty     uint64
	Shared    uint64
	Slab      uint64
	Committed uint64
	Zswap     uint64
}

// ReadMemInfo parses /proc/meminfo. Unknown keys are skipped; missing
// keys leave zero values.
func (fs FS) ReadMemInfo() (MemInfo, error) {
	f, err := os.Open(fs.path("meminfo"))
	if err != nil {
		return MemInfo{}, err
	}
	defer f.Close()

	var info MemInfo
	targets := map[string]*uint64{
		"MemTotal":     &info.Total,
		"MemFree":      &info.Free,
		"MemAvailable": &info.Available,
		"Buffers":      &info.Buffers,
		"Cached":       &info.Cached,
		"SwapTotal":    &info.SwapTotal,
		"SwapFree":     &info.SwapFree,
		"Dirty":        &info.Dirty,
		"Shmem":        &info.Shared,
		"Slab":         &info.Slab,
		"Committed_AS": &info.Committed,
		"Zswap":        &info.Zswap,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		target, ok := targets[key]
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 1 {
			continue
		}
		value, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		// Values are in kB except a few unitless counters.
		if len(fields) >= 2 && fields[1] == "kB" {
			value *= 1024
		}
		*target = value
	}
	return info, scanner.Err()
}
