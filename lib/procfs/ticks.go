// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package procfs

import (
	"os"
	"strconv"
	"sync"
)

var (
	ticksOnce sync.Once
	ticks     uint64

	pageOnce sync.Once
	pageSize int
)

// ClockTicks returns the kernel USER_HZ used for stat time fields.
// Practically always 100 on Linux; VIGIL_CLK_TCK overrides for tests
// and unusual kernels.
func ClockTicks() uint64 {
	ticksOnce.Do(func() {
		ticks = 100
		if v := os.Getenv("VIGIL_CLK_TCK"); v != "" {
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil && parsed > 0 {
				ticks = parsed
			}
		}
	})
	return ticks
}

// PageSize returns the system page size, overridable with
// VIGIL_PAGE_SIZE so statm fixtures are portable across architectures.
func PageSize() int {
	pageOnce.Do(func() {
		pageSize = os.Getpagesize()
		if v := os.Getenv("VIGIL_PAGE_SIZE"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				pageSize = parsed
			}
		}
	})
	return pageSize
}
