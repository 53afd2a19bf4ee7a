// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212"))
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	return s
}

func (m model) View() string {
	if m.err != nil {
		return warnStyle.Render(fmt.Sprintf("stream lost: %v\n\npress q to quit", m.err))
	}
	if !m.haveData {
		return dimStyle.Render("waiting for first snapshot...")
	}

	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n")

	switch m.tab {
	case tabProcesses:
		b.WriteString(m.procs.View())
	case tabSystem:
		b.WriteString(m.systemView())
	case tabDisks:
		b.WriteString(m.disksView())
	case tabNetwork:
		b.WriteString(m.networkView())
	case tabApps:
		b.WriteString(m.appsView())
	case tabServices:
		b.WriteString(m.servicesView())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab: switch panel  q: quit"))
	return b.String()
}

func (m model) tabBar() string {
	parts := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if i == m.tab {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return headerStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (m model) systemView() string {
	r := m.readings
	var b strings.Builder

	b.WriteString(sectionStyle.Render("CPU") + "\n")
	fmt.Fprintf(&b, "  %s\n", r.CPU.ModelName)
	fmt.Fprintf(&b, "  usage %5.1f%%  kernel %5.1f%%  %d MHz  %d cores / %d sockets\n",
		r.CPU.OverallPercent, r.CPU.KernelPercent,
		r.CPU.CurrentFrequencyMHz, r.CPU.LogicalCores, r.CPU.Sockets)
	fmt.Fprintf(&b, "  processes %d  threads %d  handles %d  up %s\n",
		r.CPU.ProcessCount, r.CPU.ThreadCount, r.CPU.HandleCount,
		humanDurationSeconds(r.CPU.UptimeSeconds))
	if len(r.CPU.PerCorePercent) > 0 {
		b.WriteString("  ")
		for i, pct := range r.CPU.PerCorePercent {
			fmt.Fprintf(&b, "c%d:%3.0f%% ", i, pct)
			if (i+1)%8 == 0 && i+1 < len(r.CPU.PerCorePercent) {
				b.WriteString("\n  ")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Memory") + "\n")
	fmt.Fprintf(&b, "  %s / %s used  (%s available, %s swap used)\n",
		humanBytes(r.Memory.Total-r.Memory.Available), humanBytes(r.Memory.Total),
		humanBytes(r.Memory.Available), humanBytes(r.Memory.SwapTotal-r.Memory.SwapFree))
	for _, dev := range r.MemoryDevices {
		fmt.Fprintf(&b, "  %-10s %8s %6d MT/s  %s\n",
			dev.FormFactor, humanBytes(dev.SizeBytes), dev.SpeedMTs, dev.Type)
	}

	if len(r.GPUs) > 0 {
		b.WriteString("\n" + sectionStyle.Render("GPUs") + "\n")
		slots := make([]string, 0, len(r.GPUs))
		for slot := range r.GPUs {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			gpu := r.GPUs[slot]
			fmt.Fprintf(&b, "  %s %s\n", gpu.Vendor, gpu.DeviceName)
			fmt.Fprintf(&b, "    busy %5.1f%%  vram %s / %s  %.0f°C  %.0fW  %d MHz\n",
				gpu.UtilizationPercent,
				humanBytes(gpu.UsedMemoryBytes), humanBytes(gpu.TotalMemoryBytes),
				gpu.TemperatureC, gpu.PowerWatts, gpu.ClockMHz)
		}
	}

	if len(r.Fans) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Fans") + "\n")
		for _, fan := range r.Fans {
			fmt.Fprintf(&b, "  %-20s %5d rpm  %3d%%\n", fan.Label, fan.RPM, fan.Percent)
		}
	}
	return b.String()
}

func (m model) disksView() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Disks") + "\n")
	for _, d := range m.readings.Disks {
		system := ""
		if d.SystemDisk {
			system = "  [system]"
		}
		fmt.Fprintf(&b, "  %-12s %-5s %-24s %s%s\n",
			d.ID, d.Kind, d.Model, humanBytes(d.CapacityBytes), system)
		fmt.Fprintf(&b, "    busy %5.1f%%  read %10s  write %10s  response %.1f ms\n",
			d.BusyPercent, humanRate(float64(d.ReadBytesPerSec)),
			humanRate(float64(d.WriteBytesPerSec)), d.ResponseTimeMs)
	}
	return b.String()
}

func (m model) networkView() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Network") + "\n")
	for _, conn := range m.readings.Network {
		fmt.Fprintf(&b, "  %-12s %-8s %s\n", conn.ID, conn.Kind, conn.DisplayName)
		fmt.Fprintf(&b, "    recv %10s  send %10s", bitRate(conn.ReceiveBitsPerSec), bitRate(conn.SendBitsPerSec))
		if conn.IPv4 != "" {
			fmt.Fprintf(&b, "  %s", conn.IPv4)
		}
		if conn.SSID != "" {
			fmt.Fprintf(&b, "  %s (%d%%)", conn.SSID, conn.SignalPercent)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) appsView() string {
	r := m.readings
	apps := make([]telemetry.App, 0, len(r.Apps))
	for _, app := range r.Apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].Usage.CPUPercent > apps[j].Usage.CPUPercent
	})

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Running applications") + "\n")
	for _, app := range apps {
		fmt.Fprintf(&b, "  %-32s %5.1f%%  %8s  %d processes\n",
			app.Name, app.Usage.CPUPercent, humanBytes(app.Usage.MemoryBytes), len(app.PIDs))
	}
	if len(apps) == 0 {
		b.WriteString(dimStyle.Render("  no desktop applications detected\n"))
	}
	return b.String()
}

func (m model) servicesView() string {
	r := m.readings
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Services") + "\n")
	for _, name := range names {
		svc := r.Services[name]
		state := dimStyle.Render("stopped")
		if svc.Running {
			state = "running"
		}
		if svc.Failed {
			state = warnStyle.Render("failed")
		}
		enabled := " "
		if svc.Enabled {
			enabled = "*"
		}
		fmt.Fprintf(&b, "  %s %-40s %-8s %s\n", enabled, name, state, svc.Description)
	}
	if len(names) == 0 {
		b.WriteString(dimStyle.Render("  service inventory unavailable\n"))
	}
	return b.String()
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func humanRate(bytesPerSec float64) string {
	return humanBytes(uint64(bytesPerSec)) + "/s"
}

func bitRate(bitsPerSec uint64) string {
	switch {
	case bitsPerSec >= 1e9:
		return fmt.Sprintf("%.1f Gbps", float64(bitsPerSec)/1e9)
	case bitsPerSec >= 1e6:
		return fmt.Sprintf("%.1f Mbps", float64(bitsPerSec)/1e6)
	case bitsPerSec >= 1e3:
		return fmt.Sprintf("%.1f Kbps", float64(bitsPerSec)/1e3)
	}
	return fmt.Sprintf("%d bps", bitsPerSec)
}

func humanDurationSeconds(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
