// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package services inventories systemd service units over the system
// bus and exposes the start, stop, restart, enable, and disable
// operations the viewer offers.
//
// Every bus call is timeout-bounded so a wedged broker degrades one
// subsystem instead of the whole sampling cycle.
package services
