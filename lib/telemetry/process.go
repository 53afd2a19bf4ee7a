// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

// ProcessState is the kernel scheduling state of a process, decoded
// from the state character in /proc/[pid]/stat.
type ProcessState uint8

const (
	StateUnknown ProcessState = iota
	StateRunning
	StateSleeping
	StateSleepingUninterruptible
	StateZombie
	StateStopped
	StateTracing
	StateDead
	StateWakeKill
	StateWaking
	StateParked
)

var stateNames = [...]string{
	"unknown",
	"running",
	"sleeping",
	"uninterruptible-sleep",
	"zombie",
	"stopped",
	"tracing",
	"dead",
	"wakekill",
	"waking",
	"parked",
}

func (s ProcessState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// StateFromChar maps a /proc stat state character to a ProcessState.
// Unrecognized characters map to StateUnknown.
func StateFromChar(c byte) ProcessState {
	switch c {
	case 'R':
		return StateRunning
	case 'S':
		return StateSleeping
	case 'D':
		return StateSleepingUninterruptible
	case 'Z':
		return StateZombie
	case 'T':
		return StateStopped
	case 't':
		return StateTracing
	case 'X', 'x':
		return StateDead
	case 'K':
		return StateWakeKill
	case 'W':
		return StateWaking
	case 'P':
		return StateParked
	}
	return StateUnknown
}

// Process is one row of the process table.
type Process struct {
	// Name is the display name chosen by the naming heuristics, not the
	// raw kernel comm.
	Name string `cbor:"name" json:"name"`

	PID       int32        `cbor:"pid" json:"pid"`
	ParentPID int32        `cbor:"parent_pid" json:"parent_pid"`
	State     ProcessState `cbor:"state" json:"state"`

	// Exe is the resolved /proc/[pid]/exe target; empty when the
	// symlink is unreadable (permissions, kernel threads).
	Exe string `cbor:"exe,omitempty" json:"exe,omitempty"`

	// Cmd is the NUL-split argv; empty for kernel threads.
	Cmd []string `cbor:"cmd,omitempty" json:"cmd,omitempty"`

	// Cgroup is the cgroup v2 app scope path, set only for processes
	// inside an app or snap scope.
	Cgroup string `cbor:"cgroup,omitempty" json:"cgroup,omitempty"`

	// TaskCount is the number of kernel tasks (threads).
	TaskCount uint32 `cbor:"task_count" json:"task_count"`

	Usage UsageStats `cbor:"usage" json:"usage"`

	// Children is populated only in tree form (see proctree); the flat
	// process map leaves it nil.
	Children []Process `cbor:"children,omitempty" json:"children,omitempty"`

	// MergedUsage is the subtree total, populated in tree form.
	MergedUsage UsageStats `cbor:"merged_usage,omitempty" json:"merged_usage,omitempty"`
}

// App is an installed application correlated with its running
// processes. Rebuilt from scratch every cycle.
type App struct {
	// ID is the desktop-entry identifier, e.g. "org.gnome.Nautilus".
	ID string `cbor:"id" json:"id"`

	Name string `cbor:"name" json:"name"`
	Icon string `cbor:"icon,omitempty" json:"icon,omitempty"`

	// Command is the resolved executable from the Exec line.
	Command string `cbor:"command" json:"command"`

	// PIDs are the member processes this cycle.
	PIDs []int32 `cbor:"pids" json:"pids"`

	// Usage is the sum of member process stats.
	Usage UsageStats `cbor:"usage" json:"usage"`
}

// Service is a systemd service unit.
type Service struct {
	Name        string `cbor:"name" json:"name"`
	Description string `cbor:"description" json:"description"`
	Enabled     bool   `cbor:"enabled" json:"enabled"`
	Running     bool   `cbor:"running" json:"running"`
	Failed      bool   `cbor:"failed" json:"failed"`

	// PID is the unit's main process, zero when not running.
	PID int32 `cbor:"pid" json:"pid"`
}
