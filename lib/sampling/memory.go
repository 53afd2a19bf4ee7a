// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"log/slog"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// MemorySampler reads /proc/meminfo each cycle. Memory values are
// instantaneous, so there is no previous-cycle state.
type MemorySampler struct {
	fs     procfs.FS
	logger *slog.Logger
}

// NewMemorySampler returns a sampler reading from fs.
func NewMemorySampler(fs procfs.FS, logger *slog.Logger) *MemorySampler {
	return &MemorySampler{fs: fs, logger: logger.With("component", "memory-sampler")}
}

// Sample returns the current memory figures. On read failure the
// previous snapshot's values are not reused; a zero Memory is returned
// so stale numbers never masquerade as fresh ones.
func (s *MemorySampler) Sample() telemetry.Memory {
	info, err := s.fs.ReadMemInfo()
	if err != nil {
		s.logger.Error("reading meminfo", "error", err)
		return telemetry.Memory{}
	}
	return telemetry.Memory{
		Total:      info.Total,
		Free:       info.Free,
		Available:  info.Available,
		Buffers:    info.Buffers,
		Cached:     info.Cached,
		SwapTotal:  info.SwapTotal,
		SwapFree:   info.SwapFree,
		Dirty:      info.Dirty,
		Shared:     info.Shared,
		Slab:       info.Slab,
		Committed:  info.Committed,
		ZswapTotal: info.Zswap,
	}
}
