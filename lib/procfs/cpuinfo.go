// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"bufio"
	"os"
	"strings"
)

// CPUInfo is /proc/cpuinfo split into per-processor key/value blocks.
// Key names are trimmed but otherwise untouched, so lookups use the
// kernel's spelling ("model name", "cpu MHz", "CPU implementer").
type CPUInfo struct {
	Blocks []map[string]string
}

// ReadCPUInfo parses /proc/cpuinfo. Blank lines delimit blocks; blocks
// without any key are dropped.
func (fs FS) ReadCPUInfo() (CPUInfo, error) {
	f, err := os.Open(fs.path("cpuinfo"))
	if err != nil {
		return CPUInfo{}, err
	}
	defer f.Close()

	var info CPUInfo
	block := map[string]string{}
	flush := func() {
		if len(block) > 0 {
			info.Blocks = append(info.Blocks, block)
			block = map[string]string{}
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		block[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	flush()
	return info, scanner.Err()
}

// Field returns the named key from the first block that has it.
func (c CPUInfo) Field(key string) (string, bool) {
	for _, block := range c.Blocks {
		if v, ok := block[key]; ok {
			return v, true
		}
	}
	return "", false
}
