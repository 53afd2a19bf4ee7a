// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds binary entrypoint helpers.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits 1. Use it in main() for
// errors from run(), where the structured logger may not exist yet.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
