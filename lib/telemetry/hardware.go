// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

// CPU holds processor information. Static fields are probed once at
// startup; dynamic fields are refreshed every cycle.
type CPU struct {
	// Static.
	ModelName        string `cbor:"model_name" json:"model_name"`
	LogicalCores     uint32 `cbor:"logical_cores" json:"logical_cores"`
	Sockets          uint32 `cbor:"sockets" json:"sockets"`
	BaseFrequencyKHz uint64 `cbor:"base_frequency_khz" json:"base_frequency_khz"`

	// Cache sizes in bytes, deduplicated across cores that share a
	// cache. Zero when a level is absent.
	CacheL1d uint64 `cbor:"cache_l1d" json:"cache_l1d"`
	CacheL1i uint64 `cbor:"cache_l1i" json:"cache_l1i"`
	CacheL2  uint64 `cbor:"cache_l2" json:"cache_l2"`
	CacheL3  uint64 `cbor:"cache_l3" json:"cache_l3"`
	CacheL4  uint64 `cbor:"cache_l4" json:"cache_l4"`

	// Virtualization is the host virtualization technology name
	// ("Intel VT-x", "AMD-V", "KVM", "Xen"), empty when none detected.
	Virtualization string `cbor:"virtualization,omitempty" json:"virtualization,omitempty"`

	// VirtualMachine is true when this system is itself a guest.
	VirtualMachine bool `cbor:"virtual_machine" json:"virtual_machine"`

	// Dynamic.
	OverallPercent      float32   `cbor:"overall_percent" json:"overall_percent"`
	KernelPercent       float32   `cbor:"kernel_percent" json:"kernel_percent"`
	PerCorePercent      []float32 `cbor:"per_core_percent" json:"per_core_percent"`
	PerCoreKernel       []float32 `cbor:"per_core_kernel" json:"per_core_kernel"`
	CurrentFrequencyMHz uint64    `cbor:"current_frequency_mhz" json:"current_frequency_mhz"`
	TemperatureC        float32   `cbor:"temperature_c,omitempty" json:"temperature_c,omitempty"`
	ProcessCount        uint32    `cbor:"process_count" json:"process_count"`
	ThreadCount         uint32    `cbor:"thread_count" json:"thread_count"`
	HandleCount         uint64    `cbor:"handle_count" json:"handle_count"`
	UptimeSeconds       uint64    `cbor:"uptime_seconds" json:"uptime_seconds"`
}

// Memory mirrors /proc/meminfo, values in bytes.
type Memory struct {
	Total      uint64 `cbor:"total" json:"total"`
	Free       uint64 `cbor:"free" json:"free"`
	Available  uint64 `cbor:"available" json:"available"`
	Buffers    uint64 `cbor:"buffers" json:"buffers"`
	Cached     uint64 `cbor:"cached" json:"cached"`
	SwapTotal  uint64 `cbor:"swap_total" json:"swap_total"`
	SwapFree   uint64 `cbor:"swap_free" json:"swap_free"`
	Dirty      uint64 `cbor:"dirty" json:"dirty"`
	Shared     uint64 `cbor:"shared" json:"shared"`
	Slab       uint64 `cbor:"slab" json:"slab"`
	Committed  uint64 `cbor:"committed" json:"committed"`
	ZswapTotal uint64 `cbor:"zswap_total" json:"zswap_total"`
}

// MemoryDevice is one populated DIMM slot from the DMI table.
type MemoryDevice struct {
	SizeBytes   uint64 `cbor:"size_bytes" json:"size_bytes"`
	FormFactor  string `cbor:"form_factor" json:"form_factor"`
	Locator     string `cbor:"locator" json:"locator"`
	BankLocator string `cbor:"bank_locator" json:"bank_locator"`
	Type        string `cbor:"type" json:"type"`
	SpeedMTs    uint32 `cbor:"speed_mts" json:"speed_mts"`
	Rank        uint8  `cbor:"rank" json:"rank"`
}

// DiskKind classifies block devices by storage technology.
type DiskKind string

const (
	DiskHDD     DiskKind = "hdd"
	DiskSSD     DiskKind = "ssd"
	DiskNVMe    DiskKind = "nvme"
	DiskEMMC    DiskKind = "emmc"
	DiskUnknown DiskKind = "unknown"
)

// Disk is one physical block device with its per-cycle rates.
type Disk struct {
	// ID is the kernel device name, e.g. "nvme0n1".
	ID    string   `cbor:"id" json:"id"`
	Model string   `cbor:"model" json:"model"`
	Kind  DiskKind `cbor:"kind" json:"kind"`

	CapacityBytes  uint64 `cbor:"capacity_bytes" json:"capacity_bytes"`
	FormattedBytes uint64 `cbor:"formatted_bytes" json:"formatted_bytes"`

	// SystemDisk is true for the device backing the root filesystem.
	SystemDisk bool `cbor:"system_disk" json:"system_disk"`

	BusyPercent      float32 `cbor:"busy_percent" json:"busy_percent"`
	ResponseTimeMs   float32 `cbor:"response_time_ms" json:"response_time_ms"`
	ReadBytesPerSec  uint64  `cbor:"read_bytes_per_sec" json:"read_bytes_per_sec"`
	WriteBytesPerSec uint64  `cbor:"write_bytes_per_sec" json:"write_bytes_per_sec"`
}

// ConnectionKind classifies network interfaces.
type ConnectionKind string

const (
	ConnWired    ConnectionKind = "wired"
	ConnWireless ConnectionKind = "wireless"
	ConnOther    ConnectionKind = "other"
)

// NetworkConnection is one network interface with its per-cycle rates.
type NetworkConnection struct {
	// ID is the interface name, e.g. "wlp3s0".
	ID   string         `cbor:"id" json:"id"`
	Kind ConnectionKind `cbor:"kind" json:"kind"`

	// DisplayName is the human-readable adapter name from the udev
	// hardware database; falls back to ID.
	DisplayName string `cbor:"display_name" json:"display_name"`

	MAC  string `cbor:"mac,omitempty" json:"mac,omitempty"`
	IPv4 string `cbor:"ipv4,omitempty" json:"ipv4,omitempty"`
	IPv6 string `cbor:"ipv6,omitempty" json:"ipv6,omitempty"`

	// Wireless-only fields.
	SSID          string `cbor:"ssid,omitempty" json:"ssid,omitempty"`
	FrequencyMHz  uint32 `cbor:"frequency_mhz,omitempty" json:"frequency_mhz,omitempty"`
	BitrateMbps   uint32 `cbor:"bitrate_mbps,omitempty" json:"bitrate_mbps,omitempty"`
	SignalPercent uint8  `cbor:"signal_percent,omitempty" json:"signal_percent,omitempty"`

	SendBitsPerSec    uint64 `cbor:"send_bps" json:"send_bps"`
	ReceiveBitsPerSec uint64 `cbor:"recv_bps" json:"recv_bps"`
}

// GPU is one DRM device. Keyed in Readings by PCI slot, e.g.
// "0000:03:00.0".
type GPU struct {
	ID         string `cbor:"id" json:"id"`
	DeviceName string `cbor:"device_name" json:"device_name"`
	Vendor     string `cbor:"vendor" json:"vendor"`
	Driver     string `cbor:"driver" json:"driver"`

	TotalMemoryBytes uint64 `cbor:"total_memory_bytes" json:"total_memory_bytes"`
	PCIeGen          uint8  `cbor:"pcie_gen,omitempty" json:"pcie_gen,omitempty"`
	PCIeLanes        uint8  `cbor:"pcie_lanes,omitempty" json:"pcie_lanes,omitempty"`

	// OpenGLVersion comes from the one-time capability probe.
	OpenGLVersion string `cbor:"opengl_version,omitempty" json:"opengl_version,omitempty"`

	UtilizationPercent float32 `cbor:"utilization_percent" json:"utilization_percent"`
	UsedMemoryBytes    uint64  `cbor:"used_memory_bytes" json:"used_memory_bytes"`
	ClockMHz           uint32  `cbor:"clock_mhz,omitempty" json:"clock_mhz,omitempty"`
	MemoryClockMHz     uint32  `cbor:"memory_clock_mhz,omitempty" json:"memory_clock_mhz,omitempty"`
	PowerWatts         float32 `cbor:"power_watts,omitempty" json:"power_watts,omitempty"`
	TemperatureC       float32 `cbor:"temperature_c,omitempty" json:"temperature_c,omitempty"`
	EncodePercent      float32 `cbor:"encode_percent,omitempty" json:"encode_percent,omitempty"`
	DecodePercent      float32 `cbor:"decode_percent,omitempty" json:"decode_percent,omitempty"`
}

// Fan is one hwmon fan sensor.
type Fan struct {
	Label   string `cbor:"label" json:"label"`
	RPM     uint32 `cbor:"rpm" json:"rpm"`
	Percent uint8  `cbor:"percent,omitempty" json:"percent,omitempty"`
}
