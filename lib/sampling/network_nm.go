// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

const (
	nmService       = "org.freedesktop.NetworkManager"
	nmPath          = "/org/freedesktop/NetworkManager"
	nmDeviceIface   = "org.freedesktop.NetworkManager.Device"
	nmWirelessIface = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAPIface       = "org.freedesktop.NetworkManager.AccessPoint"
	nmIP4Iface      = "org.freedesktop.NetworkManager.IP4Config"
	nmIP6Iface      = "org.freedesktop.NetworkManager.IP6Config"
)

// NMEnricher fills address and wireless fields from NetworkManager.
// Every call is bounded by Timeout and every device is independent: an
// interface NetworkManager does not manage simply keeps its scanned
// fields.
type NMEnricher struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	Timeout time.Duration
}

// NewNMEnricher connects to the system bus. Returns an error when the
// bus or NetworkManager is unavailable; the caller degrades to
// counter-only network sampling.
func NewNMEnricher(logger *slog.Logger, timeout time.Duration) (*NMEnricher, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	return &NMEnricher{
		conn:    conn,
		logger:  logger.With("component", "nm-enricher"),
		Timeout: timeout,
	}, nil
}

// Close releases the bus connection.
func (e *NMEnricher) Close() error { return e.conn.Close() }

// Enrich decorates each connection in place and returns the slice.
func (e *NMEnricher) Enrich(ctx context.Context, conns []telemetry.NetworkConnection) []telemetry.NetworkConnection {
	for i := range conns {
		if err := e.enrichOne(ctx, &conns[i]); err != nil {
			e.logger.Debug("enrichment skipped", "interface", conns[i].ID, "error", err)
		}
	}
	return conns
}

func (e *NMEnricher) enrichOne(ctx context.Context, conn *telemetry.NetworkConnection) error {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var devicePath dbus.ObjectPath
	nm := e.conn.Object(nmService, nmPath)
	err := nm.CallWithContext(ctx, nmService+".GetDeviceByIpIface", 0, conn.ID).Store(&devicePath)
	if err != nil {
		return fmt.Errorf("device lookup: %w", err)
	}
	device := e.conn.Object(nmService, devicePath)

	if path, err := e.objectProp(device, nmDeviceIface+".Ip4Config"); err == nil {
		conn.IPv4 = e.firstAddress(path, nmIP4Iface)
	}
	if path, err := e.objectProp(device, nmDeviceIface+".Ip6Config"); err == nil {
		conn.IPv6 = e.firstAddress(path, nmIP6Iface)
	}

	if conn.Kind != telemetry.ConnWireless {
		return nil
	}

	// Bitrate is kb/s on the wireless device itself.
	if v, err := device.GetProperty(nmWirelessIface + ".Bitrate"); err == nil {
		if kbps, ok := v.Value().(uint32); ok {
			conn.BitrateMbps = kbps / 1000
		}
	}

	apPath, err := e.objectProp(device, nmWirelessIface+".ActiveAccessPoint")
	if err != nil || apPath == "/" {
		return nil
	}
	ap := e.conn.Object(nmService, apPath)
	if v, err := ap.GetProperty(nmAPIface + ".Ssid"); err == nil {
		if ssid, ok := v.Value().([]byte); ok {
			conn.SSID = string(ssid)
		}
	}
	if v, err := ap.GetProperty(nmAPIface + ".Frequency"); err == nil {
		if freq, ok := v.Value().(uint32); ok {
			conn.FrequencyMHz = freq
		}
	}
	if v, err := ap.GetProperty(nmAPIface + ".Strength"); err == nil {
		if strength, ok := v.Value().(byte); ok {
			conn.SignalPercent = strength
		}
	}
	return nil
}

func (e *NMEnricher) objectProp(obj dbus.BusObject, prop string) (dbus.ObjectPath, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return "", err
	}
	path, ok := v.Value().(dbus.ObjectPath)
	if !ok || !path.IsValid() {
		return "", fmt.Errorf("property %s is not an object path", prop)
	}
	return path, nil
}

// firstAddress returns the first entry of an IP config's AddressData.
func (e *NMEnricher) firstAddress(path dbus.ObjectPath, iface string) string {
	if path == "/" {
		return ""
	}
	v, err := e.conn.Object(nmService, path).GetProperty(iface + ".AddressData")
	if err != nil {
		return ""
	}
	entries, ok := v.Value().([]map[string]dbus.Variant)
	if !ok || len(entries) == 0 {
		return ""
	}
	if addr, ok := entries[0]["address"]; ok {
		if s, ok := addr.Value().(string); ok {
			return s
		}
	}
	return ""
}
