// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package apps maps running processes to the installed applications
// that own them.
//
// The catalog side parses XDG desktop entries once at startup. The
// correlation side runs every sampling cycle and matches processes by
// systemd app scope first, then by executable name. Apps with no
// running member this cycle do not appear in the output.
package apps
