// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay carries snapshots from the daemon to viewers over a
// unix socket.
//
// The wire format is a zstd stream of length-prefixed CBOR frames, one
// frame per snapshot. Delivery is best effort per subscriber: the
// publisher never blocks on a slow reader, it drops them.
package relay
