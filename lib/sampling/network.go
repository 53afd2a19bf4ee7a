// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"context"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// netCounters is the cumulative byte counter pair kept between cycles.
type netCounters struct {
	rxBytes uint64
	txBytes uint64
}

// Enricher adds address and wireless details to scanned connections.
// The production implementation talks to NetworkManager over D-Bus;
// tests leave it nil.
type Enricher interface {
	Enrich(ctx context.Context, conns []telemetry.NetworkConnection) []telemetry.NetworkConnection
}

// NetworkSampler enumerates /sys/class/net and derives bit rates from
// counter deltas. Failures are per-interface; one broken device never
// hides the rest.
type NetworkSampler struct {
	sysRoot string
	logger  *slog.Logger

	// Enricher is optional NetworkManager-backed detail.
	Enricher Enricher

	// UdevadmPath locates udevadm for hwdb display-name lookups. Empty
	// disables the lookup.
	UdevadmPath string

	// ExecTimeout bounds each udevadm invocation.
	ExecTimeout time.Duration

	prev  map[string]netCounters
	names map[string]string
}

// NewNetworkSampler returns a sampler over sysRoot (normally "/sys").
func NewNetworkSampler(sysRoot string, logger *slog.Logger) *NetworkSampler {
	return &NetworkSampler{
		sysRoot:     sysRoot,
		logger:      logger.With("component", "network-sampler"),
		UdevadmPath: "udevadm",
		ExecTimeout: 2 * time.Second,
		prev:        map[string]netCounters{},
		names:       map[string]string{},
	}
}

// Sample scans the interfaces, skipping loopback. First observation of
// an interface reports zero rates. Results are sorted by id.
func (s *NetworkSampler) Sample(ctx context.Context, elapsed time.Duration) []telemetry.NetworkConnection {
	conns := []telemetry.NetworkConnection{}
	next := map[string]netCounters{}

	for _, name := range sysfs.ListDir(s.sysRoot + "/class/net") {
		if name == "lo" {
			continue
		}
		ifaceDir := s.sysRoot + "/class/net/" + name

		conn := telemetry.NetworkConnection{
			ID:          name,
			Kind:        interfaceKind(name),
			DisplayName: s.displayName(name, ifaceDir),
			MAC:         sysfs.ReadString(ifaceDir + "/address"),
		}

		counters := netCounters{
			rxBytes: sysfs.ReadUint64(ifaceDir + "/statistics/rx_bytes"),
			txBytes: sysfs.ReadUint64(ifaceDir + "/statistics/tx_bytes"),
		}
		next[name] = counters

		if prev, ok := s.prev[name]; ok && elapsed > 0 {
			seconds := elapsed.Seconds()
			conn.ReceiveBitsPerSec = uint64(float64(procfs.DeltaU64(counters.rxBytes, prev.rxBytes)*8) / seconds)
			conn.SendBitsPerSec = uint64(float64(procfs.DeltaU64(counters.txBytes, prev.txBytes)*8) / seconds)
		}
		conns = append(conns, conn)
	}
	s.prev = next

	if s.Enricher != nil {
		conns = s.Enricher.Enrich(ctx, conns)
	}

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
	return conns
}

// interfaceKind classifies by the kernel's predictable-name prefix.
func interfaceKind(name string) telemetry.ConnectionKind {
	switch {
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return telemetry.ConnWired
	case strings.HasPrefix(name, "wl"):
		return telemetry.ConnWireless
	}
	return telemetry.ConnOther
}

// displayName resolves the adapter's marketing name from the udev
// hardware database, memoized per modalias. Falls back to the
// interface id.
func (s *NetworkSampler) displayName(name, ifaceDir string) string {
	modalias := sysfs.ReadModalias(ifaceDir + "/device")
	if modalias == "" {
		return name
	}
	if cached, ok := s.names[modalias]; ok {
		if cached == "" {
			return name
		}
		return cached
	}

	resolved := s.queryUdev(ifaceDir)
	s.names[modalias] = resolved
	if resolved == "" {
		return name
	}
	return resolved
}

// queryUdev asks udevadm for the hwdb model property of the device
// behind an interface. Best effort; any failure caches as unknown.
func (s *NetworkSampler) queryUdev(ifaceDir string) string {
	if s.UdevadmPath == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.ExecTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.UdevadmPath,
		"info", "--query=property", "--path", ifaceDir+"/device").Output()
	if err != nil {
		s.logger.Debug("udevadm lookup failed", "device", ifaceDir, "error", err)
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if value, ok := strings.CutPrefix(line, "ID_MODEL_FROM_DATABASE="); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
