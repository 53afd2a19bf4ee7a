// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"fmt"
	"testing"

	"github.com/vigil-systems/vigil/lib/testutil"
)

// statLine builds a /proc/[pid]/stat line with the given comm, state,
// ppid, utime, and stime, padding the remaining fields with zeros.
// Field order after comm: state ppid pgrp session tty tpgid flags
// minflt cminflt majflt cmajflt utime stime.
func statLine(pid int, comm, state string, ppid int, utime, stime uint64) string {
	return fmt.Sprintf("%d (%s) %s %d 1 1 0 -1 4194560 100 0 0 0 %d %d 0 0 20 0 4 0 123 0 0",
		pid, comm, state, ppid, utime, stime)
}

func TestReadPIDStat(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"1234/stat": statLine(1234, "nginx", "S", 1, 150, 80),
	})

	stat, err := New(root).ReadPIDStat(1234)
	if err != nil {
		t.Fatalf("ReadPIDStat: %v", err)
	}
	if stat.Comm != "nginx" {
		t.Errorf("Comm = %q, want nginx", stat.Comm)
	}
	if stat.State != 'S' {
		t.Errorf("State = %c, want S", stat.State)
	}
	if stat.PPID != 1 {
		t.Errorf("PPID = %d, want 1", stat.PPID)
	}
	if stat.UTime != 150 || stat.STime != 80 {
		t.Errorf("times = %d/%d, want 150/80", stat.UTime, stat.STime)
	}
}

func TestReadPIDStatCommWithParensAndSpaces(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"42/stat": statLine(42, "tmux: server) (x", "R", 7, 1, 2),
	})

	stat, err := New(root).ReadPIDStat(42)
	if err != nil {
		t.Fatalf("ReadPIDStat: %v", err)
	}
	if stat.Comm != "tmux: server) (x" {
		t.Errorf("Comm = %q", stat.Comm)
	}
	if stat.State != 'R' || stat.PPID != 7 {
		t.Errorf("state/ppid = %c/%d", stat.State, stat.PPID)
	}
}

func TestReadPIDStatMalformed(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"9/stat": "9 broken-no-parens R 1",
	})
	if _, err := New(root).ReadPIDStat(9); err == nil {
		t.Fatal("malformed stat line accepted")
	}
}

func TestReadPIDResident(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"55/statm": "2000 500 300 10 0 800 0",
	})

	got, err := New(root).ReadPIDResident(55)
	if err != nil {
		t.Fatalf("ReadPIDResident: %v", err)
	}
	want := 500 * uint64(PageSize())
	if got != want {
		t.Errorf("resident = %d, want %d", got, want)
	}
}

func TestReadPIDIO(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"77/io": "rchar: 999\nwchar: 888\nsyscr: 10\nsyscw: 20\nread_bytes: 4096\nwrite_bytes: 8192\ncancelled_write_bytes: 0\n",
	})

	io, err := New(root).ReadPIDIO(77)
	if err != nil {
		t.Fatalf("ReadPIDIO: %v", err)
	}
	if io.ReadBytes != 4096 || io.WriteBytes != 8192 {
		t.Errorf("io = %+v", io)
	}
}

func TestReadPIDCmdline(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"10/cmdline": "/usr/bin/foo\x00--flag\x00value\x00",
		"11/cmdline": "",
	})

	fs := New(root)
	argv, err := fs.ReadPIDCmdline(10)
	if err != nil {
		t.Fatalf("ReadPIDCmdline: %v", err)
	}
	if len(argv) != 3 || argv[0] != "/usr/bin/foo" || argv[2] != "value" {
		t.Errorf("argv = %v", argv)
	}

	// Kernel threads: empty cmdline, no error.
	argv, err = fs.ReadPIDCmdline(11)
	if err != nil {
		t.Fatalf("empty cmdline errored: %v", err)
	}
	if argv != nil {
		t.Errorf("kernel thread argv = %v, want nil", argv)
	}
}

func TestReadPIDAppCgroup(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"20/cgroup": "0::/user.slice/user-1000.slice/user@1000.service/app.slice/app-gnome-org.gnome.Nautilus-1234.scope\n",
		"21/cgroup": "0::/system.slice/ssh.service\n",
		"22/cgroup": "0::/user.slice/snap.firefox.firefox-abc.scope\n",
	})

	fs := New(root)
	got, err := fs.ReadPIDAppCgroup(20)
	if err != nil {
		t.Fatalf("ReadPIDAppCgroup: %v", err)
	}
	if got == "" || got[0] != '/' {
		t.Errorf("app scope = %q", got)
	}

	got, err = fs.ReadPIDAppCgroup(21)
	if err != nil {
		t.Fatalf("ReadPIDAppCgroup service: %v", err)
	}
	if got != "" {
		t.Errorf("service cgroup reported as app scope: %q", got)
	}

	got, err = fs.ReadPIDAppCgroup(22)
	if err != nil {
		t.Fatalf("ReadPIDAppCgroup snap: %v", err)
	}
	if got != "/user.slice/snap.firefox.firefox-abc.scope" {
		t.Errorf("snap scope = %q", got)
	}
}

func TestCountPIDTasks(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"30/task/30/placeholder": "",
		"30/task/31/placeholder": "",
		"30/task/32/placeholder": "",
	})
	n, err := New(root).CountPIDTasks(30)
	if err != nil {
		t.Fatalf("CountPIDTasks: %v", err)
	}
	if n != 3 {
		t.Errorf("tasks = %d, want 3", n)
	}
}

func TestListPIDs(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"300/stat":     "",
		"2/stat":       "",
		"17/stat":      "",
		"self/stat":    "",
		"loadavg_file": "",
	})
	pids, err := New(root).ListPIDs()
	if err != nil {
		t.Fatalf("ListPIDs: %v", err)
	}
	want := []int32{2, 17, 300}
	if len(pids) != len(want) {
		t.Fatalf("pids = %v, want %v", pids, want)
	}
	for i := range want {
		if pids[i] != want[i] {
			t.Fatalf("pids = %v, want %v", pids, want)
		}
	}
}

func TestDeltaU64Saturates(t *testing.T) {
	if got := DeltaU64(100, 40); got != 60 {
		t.Errorf("DeltaU64(100, 40) = %d", got)
	}
	if got := DeltaU64(40, 100); got != 0 {
		t.Errorf("DeltaU64(40, 100) = %d, want 0 on counter reset", got)
	}
}
