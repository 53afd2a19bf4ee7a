// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package procfs parses the /proc files the samplers consume. Every
// reader hangs off an FS value whose root is a parameter, so tests run
// against synthetic trees instead of the live kernel. Readers parse and
// return raw counters only; delta and rate math lives in the samplers.
package procfs
