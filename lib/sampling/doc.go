// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampling holds the per-subsystem samplers. Each sampler owns
// whatever previous-cycle raw counters its rate math needs and follows
// the same rules: saturating deltas, zero rates on first observation,
// and per-entity failure tolerance so one broken device or pid never
// empties a subsystem.
package sampling
