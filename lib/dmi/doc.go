// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package dmi extracts memory module composition from the SMBIOS table
// via dmidecode. The kernel does not expose DIMM topology anywhere
// cheaper, so this is the one privileged probe in the engine and it
// runs exactly once per daemon lifetime.
package dmi
