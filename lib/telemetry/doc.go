// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines the snapshot data model. A Readings value
// is assembled once per sampling cycle and treated as immutable from
// then on; everything that crosses the relay socket is built from
// these types.
package telemetry
