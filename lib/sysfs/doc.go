// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysfs reads kernel attributes under /sys. Single-value reads
// return zero values on error because sysfs attributes appear and
// disappear with hardware; callers decide which absences matter.
package sysfs
