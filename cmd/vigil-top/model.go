// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigil-systems/vigil/lib/relay"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// tab indices, in display order.
const (
	tabProcesses = iota
	tabSystem
	tabDisks
	tabNetwork
	tabApps
	tabServices
	tabCount
)

var tabNames = [tabCount]string{
	"Processes", "System", "Disks", "Network", "Apps", "Services",
}

type readingsMsg struct {
	readings telemetry.Readings
}

type streamErrMsg struct {
	err error
}

type model struct {
	sub      *relay.Subscriber
	readings telemetry.Readings
	haveData bool
	err      error

	tab    int
	procs  table.Model
	width  int
	height int
}

func newModel(sub *relay.Subscriber) model {
	procs := table.New(
		table.WithColumns(processColumns(80)),
		table.WithFocused(true),
	)
	procs.SetStyles(tableStyles())
	return model{sub: sub, procs: procs}
}

func processColumns(width int) []table.Column {
	// Name takes whatever the fixed columns leave over.
	nameWidth := width - 8 - 10 - 8 - 10 - 12 - 8
	if nameWidth < 12 {
		nameWidth = 12
	}
	return []table.Column{
		{Title: "PID", Width: 8},
		{Title: "STATE", Width: 10},
		{Title: "NAME", Width: nameWidth},
		{Title: "CPU%", Width: 8},
		{Title: "MEMORY", Width: 10},
		{Title: "DISK", Width: 12},
		{Title: "THREADS", Width: 8},
	}
}

func (m model) Init() tea.Cmd {
	return waitForReadings(m.sub)
}

func waitForReadings(sub *relay.Subscriber) tea.Cmd {
	return func() tea.Msg {
		r, err := sub.Next()
		if err != nil {
			return streamErrMsg{err: err}
		}
		return readingsMsg{readings: r}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case readingsMsg:
		m.readings = msg.readings
		m.haveData = true
		m.procs.SetRows(processRows(m.readings.Processes))
		return m, waitForReadings(m.sub)

	case streamErrMsg:
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.procs.SetColumns(processColumns(msg.Width))
		m.procs.SetHeight(msg.Height - 6)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case "shift+tab", "left", "h":
			m.tab = (m.tab + tabCount - 1) % tabCount
			return m, nil
		}
		if m.tab == tabProcesses {
			var cmd tea.Cmd
			m.procs, cmd = m.procs.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// processRows flattens the process map into rows sorted by CPU
// descending, pid ascending for ties.
func processRows(processes map[int32]telemetry.Process) []table.Row {
	procs := make([]telemetry.Process, 0, len(processes))
	for _, p := range processes {
		procs = append(procs, p)
	}
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].Usage.CPUPercent != procs[j].Usage.CPUPercent {
			return procs[i].Usage.CPUPercent > procs[j].Usage.CPUPercent
		}
		return procs[i].PID < procs[j].PID
	})

	rows := make([]table.Row, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", p.PID),
			p.State.String(),
			p.Name,
			fmt.Sprintf("%.1f", p.Usage.CPUPercent),
			humanBytes(p.Usage.MemoryBytes),
			humanRate(float64(p.Usage.DiskBytesPerSec)),
			fmt.Sprintf("%d", p.TaskCount),
		})
	}
	return rows
}
