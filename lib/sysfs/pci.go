// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PCIDevice identifies a PCI function from its uevent file.
type PCIDevice struct {
	// Vendor is the human-readable vendor name, or "0x<id>" for vendors
	// outside the short table.
	Vendor string

	// DeviceID is "0x<device id>".
	DeviceID string

	// Slot is the PCI address, e.g. "0000:03:00.0".
	Slot string
}

// ParsePCIUevent extracts the vendor, device id, and slot from a device
// directory's uevent file:
//
//	PCI_ID=1002:744A
//	PCI_SLOT_NAME=0000:c3:00.0
func ParsePCIUevent(devicePath string) PCIDevice {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return PCIDevice{}
	}

	var dev PCIDevice
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "PCI_ID":
			vendorID, deviceID, ok := strings.Cut(value, ":")
			if ok {
				dev.Vendor = VendorName(strings.ToLower(vendorID))
				dev.DeviceID = "0x" + strings.ToLower(deviceID)
			}
		case "PCI_SLOT_NAME":
			dev.Slot = value
		}
	}
	return dev
}

// VendorName maps a lowercase PCI vendor ID to a display name.
func VendorName(vendorID string) string {
	switch vendorID {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	}
	if vendorID != "" {
		return fmt.Sprintf("0x%s", vendorID)
	}
	return ""
}

// ReadModalias returns the device's modalias string, used as the key
// for udev hardware-database lookups.
func ReadModalias(devicePath string) string {
	return ReadString(filepath.Join(devicePath, "modalias"))
}

// IsCardDevice returns true for DRM card names (card0, card1) but not
// connectors (card0-DP-1) or render nodes (renderD128).
func IsCardDevice(name string) bool {
	suffix, found := strings.CutPrefix(name, "card")
	if !found || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// DriverName returns the kernel driver bound to a device directory.
func DriverName(devicePath string) string {
	return ReadLink(filepath.Join(devicePath, "driver"))
}
