// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package proctree reconstructs the process hierarchy from a flat scan
// and aggregates usage bottom-up, tolerating the races inherent in
// reading /proc while processes fork and exit.
package proctree
