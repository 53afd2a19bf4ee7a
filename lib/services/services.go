// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

const (
	systemdDest = "org.freedesktop.systemd1"
	systemdPath = dbus.ObjectPath("/org/freedesktop/systemd1")
	managerIntf = "org.freedesktop.systemd1.Manager"
)

// unitStatus mirrors one entry of the ListUnits reply.
type unitStatus struct {
	Name        string
	Description string
	LoadState   string
	ActiveState string
	SubState    string
	Followed    string
	Path        dbus.ObjectPath
	JobID       uint32
	JobType     string
	JobPath     dbus.ObjectPath
}

// Manager inventories and controls systemd service units over the
// system bus.
type Manager struct {
	conn   *dbus.Conn
	logger *slog.Logger

	// CallTimeout bounds every bus call; systemd normally answers in
	// milliseconds, so a stuck broker should not stall a cycle.
	CallTimeout time.Duration

	// JournalctlPath is the binary used for log retrieval.
	JournalctlPath string

	// ExecTimeout bounds journalctl runs.
	ExecTimeout time.Duration
}

// NewManager connects to the system bus. The caller owns the returned
// Manager and must Close it.
func NewManager(logger *slog.Logger) (*Manager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	return &Manager{
		conn:           conn,
		logger:         logger.With("component", "services"),
		CallTimeout:    2 * time.Second,
		JournalctlPath: "journalctl",
		ExecTimeout:    5 * time.Second,
	}, nil
}

// Close releases the bus connection.
func (m *Manager) Close() error { return m.conn.Close() }

// List returns every loaded .service unit keyed by unit name.
func (m *Manager) List(ctx context.Context) (map[string]telemetry.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()

	manager := m.conn.Object(systemdDest, systemdPath)

	var units []unitStatus
	call := manager.CallWithContext(ctx, managerIntf+".ListUnits", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("listing units: %w", call.Err)
	}
	if err := call.Store(&units); err != nil {
		return nil, fmt.Errorf("decoding unit list: %w", err)
	}

	services := map[string]telemetry.Service{}
	for _, unit := range units {
		if !strings.HasSuffix(unit.Name, ".service") {
			continue
		}
		svc := buildService(unit)
		svc.Enabled = m.unitEnabled(ctx, manager, unit.Name)
		if svc.Running {
			svc.PID = m.mainPID(ctx, unit.Path)
		}
		services[unit.Name] = svc
	}
	return services, nil
}

// buildService maps the systemd state strings onto the wire type.
func buildService(unit unitStatus) telemetry.Service {
	return telemetry.Service{
		Name:        unit.Name,
		Description: unit.Description,
		Running:     unit.ActiveState == "active" || unit.ActiveState == "reloading",
		Failed:      unit.ActiveState == "failed",
	}
}

// enabledStates are the unit file states that count as enabled.
var enabledStates = map[string]struct{}{
	"enabled": {}, "enabled-runtime": {}, "static": {}, "alias": {},
}

func (m *Manager) unitEnabled(ctx context.Context, manager dbus.BusObject, name string) bool {
	var state string
	call := manager.CallWithContext(ctx, managerIntf+".GetUnitFileState", 0, name)
	if call.Err != nil || call.Store(&state) != nil {
		return false
	}
	_, ok := enabledStates[state]
	return ok
}

func (m *Manager) mainPID(ctx context.Context, path dbus.ObjectPath) int32 {
	var pid uint32
	unit := m.conn.Object(systemdDest, path)
	call := unit.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0,
		"org.freedesktop.systemd1.Service", "MainPID")
	if call.Err != nil {
		return 0
	}
	var v dbus.Variant
	if call.Store(&v) != nil || v.Store(&pid) != nil {
		return 0
	}
	return int32(pid)
}

// Start starts a service unit, replacing any queued conflicting job.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.jobCall(ctx, "StartUnit", name)
}

// Stop stops a service unit.
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.jobCall(ctx, "StopUnit", name)
}

// Restart restarts a service unit, starting it if it was stopped.
func (m *Manager) Restart(ctx context.Context, name string) error {
	return m.jobCall(ctx, "RestartUnit", name)
}

func (m *Manager) jobCall(ctx context.Context, method, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()
	manager := m.conn.Object(systemdDest, systemdPath)
	call := manager.CallWithContext(ctx, managerIntf+"."+method, 0, name, "replace")
	if call.Err != nil {
		return fmt.Errorf("%s %s: %w", method, name, call.Err)
	}
	m.logger.Info("service job queued", "method", method, "unit", name)
	return nil
}

// Enable enables a service unit file and reloads the manager so the
// change is visible immediately.
func (m *Manager) Enable(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()
	manager := m.conn.Object(systemdDest, systemdPath)
	call := manager.CallWithContext(ctx, managerIntf+".EnableUnitFiles", 0,
		[]string{name}, false, true)
	if call.Err != nil {
		return fmt.Errorf("enabling %s: %w", name, call.Err)
	}
	return m.reload(ctx, manager)
}

// Disable disables a service unit file.
func (m *Manager) Disable(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()
	manager := m.conn.Object(systemdDest, systemdPath)
	call := manager.CallWithContext(ctx, managerIntf+".DisableUnitFiles", 0,
		[]string{name}, false)
	if call.Err != nil {
		return fmt.Errorf("disabling %s: %w", name, call.Err)
	}
	return m.reload(ctx, manager)
}

func (m *Manager) reload(ctx context.Context, manager dbus.BusObject) error {
	call := manager.CallWithContext(ctx, managerIntf+".Reload", 0)
	if call.Err != nil {
		return fmt.Errorf("reloading unit files: %w", call.Err)
	}
	return nil
}

// Logs returns the most recent journal lines for a unit. A nonzero pid
// narrows the output to entries emitted by that process.
func (m *Manager) Logs(ctx context.Context, name string, pid int32, maxLines int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ExecTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, m.JournalctlPath, journalArgs(name, pid, maxLines)...).Output()
	if err != nil {
		return "", fmt.Errorf("reading journal for %s: %w", name, err)
	}
	return string(out), nil
}

// journalArgs builds the journalctl argument list. pid 0 means no
// process filter.
func journalArgs(name string, pid int32, maxLines int) []string {
	if maxLines <= 0 {
		maxLines = 100
	}
	args := []string{"-u", name, "-n", fmt.Sprint(maxLines), "--no-pager", "-q"}
	if pid > 0 {
		args = append(args, fmt.Sprintf("_PID=%d", pid))
	}
	return args
}
