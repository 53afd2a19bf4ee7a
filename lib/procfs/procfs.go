// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"fmt"
	"os"
	"sort"
	"strconv"
)

// FS reads from a procfs mount. The root is a parameter so tests can
// point it at a synthetic tree.
type FS struct {
	root string
}

// New returns an FS rooted at path.
func New(root string) FS { return FS{root: root} }

// Default returns an FS over the real /proc.
func Default() FS { return New("/proc") }

// Root returns the mount root.
func (fs FS) Root() string { return fs.root }

func (fs FS) path(parts ...string) string {
	p := fs.root
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// ListPIDs returns the numeric directory entries of the procfs root in
// ascending order.
func (fs FS) ListPIDs() ([]int32, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fs.root, err)
	}

	pids := make([]int32, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil {
			continue
		}
		pids = append(pids, int32(pid))
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}

// DeltaU64 returns cur-prev, saturating at zero. Kernel counters are
// monotonic but reset on reboot and wrap on 32-bit kernels; a negative
// delta always means a reset, never a real rate.
func DeltaU64(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
