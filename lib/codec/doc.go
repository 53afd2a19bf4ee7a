// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec centralizes Vigil's CBOR configuration. Everything that
// crosses the relay socket is encoded here so the encoding options live
// in exactly one place.
package codec
