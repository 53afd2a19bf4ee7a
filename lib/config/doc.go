// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Vigil daemon configuration.
//
// Configuration comes from a single YAML file named by the VIGIL_CONFIG
// environment variable or the --config flag. When neither is set the
// built-in defaults apply. The file may contain development and
// production sections that override base values for the matching
// environment. Environment variables never override config values; the
// only expansion performed is ${VAR} and ${VAR:-default} in paths.
package config
