// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDStat is the subset of /proc/[pid]/stat the samplers need.
type PIDStat struct {
	// Comm is the kernel task name, paren stripping already applied.
	Comm  string
	State byte
	PPID  int32

	// UTime and STime are cumulative user and kernel CPU time in clock
	// ticks.
	UTime uint64
	STime uint64
}

// ReadPIDStat parses /proc/[pid]/stat. The comm field may itself
// contain spaces and parentheses, so fields are split after the last
// closing paren rather than naively on whitespace.
func (fs FS) ReadPIDStat(pid int32) (PIDStat, error) {
	data, err := os.ReadFile(fs.path(strconv.Itoa(int(pid)), "stat"))
	if err != nil {
		return PIDStat{}, err
	}

	open := bytes.IndexByte(data, '(')
	closing := bytes.LastIndexByte(data, ')')
	if open < 0 || closing < open || closing+2 >= len(data) {
		return PIDStat{}, fmt.Errorf("pid %d: malformed stat line", pid)
	}

	stat := PIDStat{Comm: string(data[open+1 : closing])}

	// Fields after the comm, zero-indexed: 0 state, 1 ppid, 11 utime,
	// 12 stime.
	fields := strings.Fields(string(data[closing+2:]))
	if len(fields) < 13 {
		return PIDStat{}, fmt.Errorf("pid %d: stat has %d fields after comm, need 13", pid, len(fields))
	}

	stat.State = fields[0][0]

	ppid, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return PIDStat{}, fmt.Errorf("pid %d: ppid: %w", pid, err)
	}
	stat.PPID = int32(ppid)

	if stat.UTime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return PIDStat{}, fmt.Errorf("pid %d: utime: %w", pid, err)
	}
	if stat.STime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return PIDStat{}, fmt.Errorf("pid %d: stime: %w", pid, err)
	}
	return stat, nil
}

// ReadPIDResident returns resident set size in bytes from
// /proc/[pid]/statm.
func (fs FS) ReadPIDResident(pid int32) (uint64, error) {
	data, err := os.ReadFile(fs.path(strconv.Itoa(int(pid)), "statm"))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("pid %d: statm has %d fields", pid, len(fields))
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pid %d: resident pages: %w", pid, err)
	}
	return pages * uint64(PageSize()), nil
}

// PIDIO is the storage counters from /proc/[pid]/io. Values are
// cumulative bytes that actually hit the block layer.
type PIDIO struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// ReadPIDIO parses /proc/[pid]/io. Requires same-user or CAP_SYS_PTRACE
// for foreign processes; callers treat failure as zero activity.
func (fs FS) ReadPIDIO(pid int32) (PIDIO, error) {
	data, err := os.ReadFile(fs.path(strconv.Itoa(int(pid)), "io"))
	if err != nil {
		return PIDIO{}, err
	}

	var io PIDIO
	for _, line := range strings.Split(string(data), "\n") {
		value, ok := strings.CutPrefix(line, "read_bytes: ")
		if ok {
			io.ReadBytes, _ = strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			continue
		}
		if value, ok = strings.CutPrefix(line, "write_bytes: "); ok {
			io.WriteBytes, _ = strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		}
	}
	return io, nil
}

// ReadPIDCmdline returns the NUL-separated argv. Kernel threads have an
// empty cmdline and return a nil slice with no error.
func (fs FS) ReadPIDCmdline(pid int32) ([]string, error) {
	data, err := os.ReadFile(fs.path(strconv.Itoa(int(pid)), "cmdline"))
	if err != nil {
		return nil, err
	}
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return nil, nil
	}
	parts := bytes.Split(data, []byte{0})
	argv := make([]string, len(parts))
	for i, p := range parts {
		argv[i] = string(p)
	}
	return argv, nil
}

// ReadPIDExe resolves the /proc/[pid]/exe symlink. Unreadable for
// foreign processes without privileges.
func (fs FS) ReadPIDExe(pid int32) (string, error) {
	return os.Readlink(fs.path(strconv.Itoa(int(pid)), "exe"))
}

// ReadPIDAppCgroup returns the cgroup v2 path when the process sits in
// an application scope (last element starting with "app" or "snap" and
// ending in ".scope"). Processes outside app scopes return "".
func (fs FS) ReadPIDAppCgroup(pid int32) (string, error) {
	data, err := os.ReadFile(fs.path(strconv.Itoa(int(pid)), "cgroup"))
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		cgPath := parts[2]
		leaf := filepath.Base(cgPath)
		if !strings.HasSuffix(leaf, ".scope") {
			continue
		}
		if strings.HasPrefix(leaf, "app") || strings.HasPrefix(leaf, "snap") {
			return cgPath, nil
		}
	}
	return "", nil
}

// CountPIDTasks returns the number of kernel tasks (threads) of a
// process.
func (fs FS) CountPIDTasks(pid int32) (uint32, error) {
	entries, err := os.ReadDir(fs.path(strconv.Itoa(int(pid)), "task"))
	if err != nil {
		return 0, err
	}
	return uint32(len(entries)), nil
}
