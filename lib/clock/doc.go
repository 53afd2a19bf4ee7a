// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable clock with real and fake
// implementations. The fake clock advances only on demand, which keeps
// sampling-loop tests deterministic and instant.
package clock
