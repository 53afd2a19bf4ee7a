// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine drives the sampling loop.
//
// One goroutine owns every sampler and walks them in a fixed order
// each cycle, assembling an immutable telemetry.Readings per pass. The
// interval sleep is split into bounded slices so control commands
// (interval changes, signals, service operations) are serviced within
// a fraction of the period instead of waiting out a full sleep.
package engine
