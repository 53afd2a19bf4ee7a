// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// vigil-top is a terminal viewer for vigild snapshots. It subscribes
// to the daemon's relay socket and renders the live process table and
// hardware panels, refreshed on every published snapshot.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/vigil-systems/vigil/lib/config"
	"github.com/vigil-systems/vigil/lib/process"
	"github.com/vigil-systems/vigil/lib/relay"
	"github.com/vigil-systems/vigil/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion bool
	var socketPath string

	flags := pflag.NewFlagSet("vigil-top", pflag.ContinueOnError)
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.StringVar(&socketPath, "socket", "", "vigild relay socket (default: the daemon's configured path)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("vigil-top")
		return nil
	}

	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		socketPath = cfg.Relay.SocketPath
	}

	sub, err := relay.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("is vigild running? %w", err)
	}
	defer sub.Close()

	program := tea.NewProgram(newModel(sub), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
