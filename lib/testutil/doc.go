// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by tests: channel
// receives with timeouts and synthetic procfs/sysfs tree builders.
package testutil
