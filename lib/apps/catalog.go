// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package apps

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one installed application from a desktop file.
type Entry struct {
	// ID is the desktop file name without the extension, e.g.
	// "org.gnome.Nautilus".
	ID   string
	Name string
	Icon string

	// Command is the executable name resolved from the Exec line,
	// wrappers and interpreters stripped.
	Command string
}

// appIgnore lists desktop entries that shadow their real application.
var appIgnore = map[string]struct{}{
	"guake-prefs": {},
}

// commandIgnore lists interpreters and wrappers that appear as the
// Exec head but never identify the application.
var commandIgnore = map[string]struct{}{
	"sh": {}, "bash": {}, "zsh": {}, "fish": {}, "env": {},
	"python": {}, "python2": {}, "python3": {}, "perl": {},
	"tmux": {}, "screen": {}, "distrobox": {}, "waydroid": {},
}

// Catalog is the installed-application index. Built once at startup;
// the install base does not change often enough to justify re-reading
// hundreds of desktop files every second.
type Catalog struct {
	entries   []Entry
	byID      map[string]int
	byCommand map[string]int
}

// LoadCatalog scans the applications directories of every XDG data
// dir. Unreadable dirs and malformed files are skipped.
func LoadCatalog(logger *slog.Logger) *Catalog {
	return loadCatalogFrom(dataDirs(), logger)
}

func loadCatalogFrom(dirs []string, logger *slog.Logger) *Catalog {
	catalog := &Catalog{
		byID:      map[string]int{},
		byCommand: map[string]int{},
	}

	for _, dir := range dirs {
		appDir := filepath.Join(dir, "applications")
		files, err := os.ReadDir(appDir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if !strings.HasSuffix(file.Name(), ".desktop") {
				continue
			}
			entry, ok := parseDesktopFile(filepath.Join(appDir, file.Name()))
			if !ok {
				continue
			}
			if _, ignored := appIgnore[entry.ID]; ignored {
				continue
			}
			if _, dup := catalog.byID[strings.ToLower(entry.ID)]; dup {
				// Earlier data dirs take precedence, matching XDG
				// lookup order.
				continue
			}
			idx := len(catalog.entries)
			catalog.entries = append(catalog.entries, entry)
			catalog.byID[strings.ToLower(entry.ID)] = idx
			if entry.Command != "" {
				if _, dup := catalog.byCommand[entry.Command]; !dup {
					catalog.byCommand[entry.Command] = idx
				}
			}
		}
	}

	logger.Info("desktop entry catalog loaded", "entries", len(catalog.entries))
	return catalog
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.entries) }

// dataDirs returns the XDG application data directories in lookup
// order: user dir first, then XDG_DATA_DIRS or its documented default.
func dataDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share"))
	}
	system := os.Getenv("XDG_DATA_DIRS")
	if system == "" {
		system = "/usr/local/share:/usr/share"
	}
	for _, dir := range strings.Split(system, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// parseDesktopFile extracts the Desktop Entry section. Entries marked
// NoDisplay or Hidden are settings panels and the like, not apps.
func parseDesktopFile(path string) (Entry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()

	entry := Entry{ID: strings.TrimSuffix(filepath.Base(path), ".desktop")}
	inSection := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inSection = line == "[Desktop Entry]"
			continue
		}
		if !inSection || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			if entry.Name == "" {
				entry.Name = strings.TrimSpace(value)
			}
		case "Icon":
			entry.Icon = strings.TrimSpace(value)
		case "Exec":
			entry.Command = resolveExec(strings.TrimSpace(value))
		case "NoDisplay", "Hidden":
			if strings.TrimSpace(value) == "true" {
				return Entry{}, false
			}
		}
	}
	if entry.Name == "" {
		return Entry{}, false
	}
	return entry, true
}

// resolveExec finds the token that actually names the program. Flatpak
// launchers bury it in --command=; other launchers prefix interpreters
// or wrappers that the ignore list skips.
func resolveExec(execLine string) string {
	tokens := strings.Fields(execLine)
	if len(tokens) == 0 {
		return ""
	}

	if filepath.Base(tokens[0]) == "flatpak" {
		for _, token := range tokens[1:] {
			if value, ok := strings.CutPrefix(token, "--command="); ok {
				return filepath.Base(value)
			}
		}
		return "flatpak"
	}

	for _, token := range tokens {
		// Field codes (%u, %F) and VAR=value assignments are not
		// commands.
		if strings.HasPrefix(token, "%") || strings.Contains(token, "=") {
			continue
		}
		name := filepath.Base(token)
		if _, skip := commandIgnore[name]; skip {
			continue
		}
		return name
	}
	return ""
}

// entryAt returns the entry by index for correlation results.
func (c *Catalog) entryAt(idx int) Entry { return c.entries[idx] }

// lookupID finds an entry by desktop id, case-insensitive.
func (c *Catalog) lookupID(id string) (int, bool) {
	idx, ok := c.byID[strings.ToLower(id)]
	return idx, ok
}

// lookupCommand finds an entry by resolved command name. Browsers ship
// channel-suffixed binaries (chromium-stable) for an unsuffixed entry,
// so an exact miss retries with known channel suffixes stripped.
func (c *Catalog) lookupCommand(command string) (int, bool) {
	if idx, ok := c.byCommand[command]; ok {
		return idx, true
	}
	for _, suffix := range []string{"-stable", "-beta"} {
		if trimmed, found := strings.CutSuffix(command, suffix); found {
			if idx, ok := c.byCommand[trimmed]; ok {
				return idx, true
			}
		}
	}
	return 0, false
}
