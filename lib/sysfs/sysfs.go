// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadString reads a single-line sysfs attribute and returns its
// trimmed content. Returns "" on any error; sysfs attributes come and
// go with hardware and drivers, so absence is not exceptional.
func ReadString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ReadInt reads an integer attribute. Returns 0 on error.
func ReadInt(path string) int {
	value := ReadString(path)
	if value == "" {
		return 0
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

// ReadUint64 reads an unsigned 64-bit attribute. Returns 0 on error.
func ReadUint64(path string) uint64 {
	value := ReadString(path)
	if value == "" {
		return 0
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

// ReadLink returns the basename of a symlink attribute, "" on error.
// Used for device driver and subsystem links.
func ReadLink(path string) string {
	link, err := os.Readlink(path)
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// ListDir returns the entry names of a sysfs directory, nil on error.
func ListDir(path string) []string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
