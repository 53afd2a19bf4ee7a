// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package dmi

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

// MemoryDevices runs dmidecode and returns the populated DIMM slots.
// Needs root or CAP_SYS_RAWIO; callers treat failure as "composition
// unknown" and keep going.
func MemoryDevices(ctx context.Context, dmidecodePath string) ([]telemetry.MemoryDevice, error) {
	out, err := exec.CommandContext(ctx, dmidecodePath, "--type", "17").Output()
	if err != nil {
		return nil, fmt.Errorf("running dmidecode: %w", err)
	}
	return ParseMemoryDevices(string(out)), nil
}

// ParseMemoryDevices parses `dmidecode --type 17` output. Each handle
// block headed by "Memory Device" describes one slot; slots reporting
// no module are skipped.
func ParseMemoryDevices(output string) []telemetry.MemoryDevice {
	devices := []telemetry.MemoryDevice{}

	var current map[string]string
	flush := func() {
		if current == nil {
			return
		}
		if dev, ok := deviceFromFields(current); ok {
			devices = append(devices, dev)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "Memory Device" {
			flush()
			current = map[string]string{}
			continue
		}
		if trimmed == "" || current == nil {
			continue
		}
		// Field lines are indented "Key: Value". Deeper-indented
		// continuation lines (e.g. flag lists) have no colon and are
		// skipped naturally.
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		current[key] = strings.TrimSpace(value)
	}
	flush()
	return devices
}

func deviceFromFields(fields map[string]string) (telemetry.MemoryDevice, bool) {
	size, ok := parseSize(fields["Size"])
	if !ok {
		return telemetry.MemoryDevice{}, false
	}
	return telemetry.MemoryDevice{
		SizeBytes:   size,
		FormFactor:  fields["Form Factor"],
		Locator:     fields["Locator"],
		BankLocator: fields["Bank Locator"],
		Type:        fields["Type"],
		SpeedMTs:    parseSpeed(fields["Speed"]),
		Rank:        parseRank(fields["Rank"]),
	}, true
}

// parseSize handles "8 GB", "8192 MB", and the empty-slot markers
// ("No Module Installed", "Unknown").
func parseSize(s string) (uint64, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, false
	}
	value, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	switch fields[1] {
	case "TB":
		return value << 40, true
	case "GB":
		return value << 30, true
	case "MB":
		return value << 20, true
	case "kB", "KB":
		return value << 10, true
	}
	return 0, false
}

// parseSpeed handles "3200 MT/s" and the older "3200 MHz".
func parseSpeed(s string) uint32 {
	fields := strings.Fields(s)
	if len(fields) < 1 {
		return 0
	}
	value, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(value)
}

func parseRank(s string) uint8 {
	value, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0
	}
	return uint8(value)
}
