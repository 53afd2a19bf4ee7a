// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package apps

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

// Correlate groups the scanned processes under the installed apps that
// own them. An app appears in the result only when at least one process
// matched it; the returned usage is the sum over members.
func (c *Catalog) Correlate(processes map[int32]telemetry.Process) map[string]telemetry.App {
	apps := map[string]telemetry.App{}
	for pid, proc := range processes {
		idx, ok := c.matchProcess(proc)
		if !ok {
			continue
		}
		entry := c.entryAt(idx)
		app, exists := apps[entry.ID]
		if !exists {
			app = telemetry.App{
				ID:      entry.ID,
				Name:    entry.Name,
				Icon:    entry.Icon,
				Command: entry.Command,
			}
		}
		app.PIDs = append(app.PIDs, pid)
		app.Usage = app.Usage.Merge(proc.Usage)
		apps[entry.ID] = app
	}
	for id, app := range apps {
		sort.Slice(app.PIDs, func(i, j int) bool { return app.PIDs[i] < app.PIDs[j] })
		apps[id] = app
	}
	return apps
}

// matchProcess tries each identification signal in order of
// reliability: the systemd scope carries the desktop id directly, the
// exe link and argv only carry the binary name.
func (c *Catalog) matchProcess(proc telemetry.Process) (int, bool) {
	if proc.Cgroup != "" {
		if id := scopeAppID(proc.Cgroup); id != "" {
			if idx, ok := c.lookupID(id); ok {
				return idx, true
			}
		}
	}
	if proc.Exe != "" {
		if idx, ok := c.lookupCommand(filepath.Base(proc.Exe)); ok {
			return idx, true
		}
	}
	if len(proc.Cmd) > 0 {
		head := proc.Cmd[0]
		if fields := strings.Fields(head); len(fields) > 0 {
			head = fields[0]
		}
		if idx, ok := c.lookupCommand(filepath.Base(head)); ok {
			return idx, true
		}
	}
	return 0, false
}

// scopeSkip lists launcher-owned tokens that precede the app id in a
// scope name.
var scopeSkip = map[string]struct{}{
	"gnome": {}, "plasma": {}, "flatpak": {},
}

// scopeAppID extracts the desktop id from a systemd app scope leaf.
//
// Snap scopes look like "snap.firefox.firefox-<uuid>.scope"; the snap
// name repeats, joined by underscores in multi-part ids.
//
// Generic scopes look like "app-gnome-org.gnome.Nautilus-1234.scope"
// with dashes in the id escaped as "\x2d".
func scopeAppID(scope string) string {
	leaf := filepath.Base(scope)
	leaf = strings.TrimSuffix(leaf, ".scope")

	if rest, ok := strings.CutPrefix(leaf, "snap."); ok {
		parts := strings.Split(rest, ".")
		if len(parts) < 2 {
			return ""
		}
		return strings.Join(parts[:len(parts)-1], "_")
	}

	parts := strings.Split(leaf, "-")
	if len(parts) < 2 || parts[0] != "app" {
		return ""
	}
	for _, part := range parts[1:] {
		if _, skip := scopeSkip[part]; skip {
			continue
		}
		return strings.ReplaceAll(part, `\x2d`, "-")
	}
	return ""
}
