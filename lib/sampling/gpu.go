// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// gpuStatic is the per-card identity probed once and reused.
type gpuStatic struct {
	slot       string
	deviceDir  string
	vendor     string
	deviceName string
	driver     string
	vramTotal  uint64
	pcieGen    uint8
	pcieLanes  uint8
}

// GPUSampler enumerates DRM cards and reads the sensors each driver
// exposes. amdgpu publishes everything through sysfs; the NVIDIA
// proprietary driver needs nvidia-smi for dynamic values. A sensor a
// driver does not expose stays zero; that is data, not an error.
type GPUSampler struct {
	sysRoot  string
	procRoot string
	logger   *slog.Logger

	// GlxinfoPath enables the one-time OpenGL capability probe.
	GlxinfoPath string

	// NvidiaSmiPath enables dynamic readings for the proprietary
	// driver.
	NvidiaSmiPath string

	// ExecTimeout bounds each external probe invocation.
	ExecTimeout time.Duration

	static map[string]gpuStatic

	glProbed  bool
	glVersion string
}

// NewGPUSampler returns a sampler over sysRoot and procRoot.
func NewGPUSampler(sysRoot, procRoot string, logger *slog.Logger) *GPUSampler {
	return &GPUSampler{
		sysRoot:     sysRoot,
		procRoot:    procRoot,
		logger:      logger.With("component", "gpu-sampler"),
		ExecTimeout: 5 * time.Second,
	}
}

// Sample returns the GPU map keyed by PCI slot.
func (s *GPUSampler) Sample(ctx context.Context) map[string]telemetry.GPU {
	if s.static == nil {
		s.enumerate()
	}

	gpus := map[string]telemetry.GPU{}
	for slot, static := range s.static {
		gpu := telemetry.GPU{
			ID:               static.slot,
			DeviceName:       static.deviceName,
			Vendor:           static.vendor,
			Driver:           static.driver,
			TotalMemoryBytes: static.vramTotal,
			PCIeGen:          static.pcieGen,
			PCIeLanes:        static.pcieLanes,
			OpenGLVersion:    s.openGLVersion(ctx),
		}
		s.readSensors(static, &gpu)
		if static.driver == "nvidia" {
			s.readNvidiaSMI(ctx, static, &gpu)
		}
		gpus[slot] = gpu
	}
	return gpus
}

// enumerate discovers the cards once. Cards are stable for a daemon's
// lifetime; hotplug GPUs are rare enough that a restart is acceptable.
func (s *GPUSampler) enumerate() {
	s.static = map[string]gpuStatic{}
	for _, name := range sysfs.ListDir(s.sysRoot + "/class/drm") {
		if !sysfs.IsCardDevice(name) {
			continue
		}
		deviceDir := s.sysRoot + "/class/drm/" + name + "/device"
		pci := sysfs.ParsePCIUevent(deviceDir)
		if pci.Slot == "" {
			continue
		}

		static := gpuStatic{
			slot:      pci.Slot,
			deviceDir: deviceDir,
			vendor:    pci.Vendor,
			driver:    sysfs.DriverName(deviceDir),
			vramTotal: sysfs.ReadUint64(deviceDir + "/mem_info_vram_total"),
			pcieGen:   pcieGeneration(sysfs.ReadString(deviceDir + "/current_link_speed")),
			pcieLanes: uint8(sysfs.ReadInt(deviceDir + "/current_link_width")),
		}
		static.deviceName = s.deviceName(pci, static.driver)
		s.static[pci.Slot] = static
		s.logger.Info("gpu discovered",
			"slot", pci.Slot,
			"vendor", pci.Vendor,
			"driver", static.driver,
		)
	}
}

// deviceName prefers the proprietary driver's own model string, since
// PCI ids alone cannot name consumer cards.
func (s *GPUSampler) deviceName(pci sysfs.PCIDevice, driver string) string {
	if driver == "nvidia" {
		if model := s.nvidiaModel(pci.Slot); model != "" {
			return model
		}
	}
	if pci.Vendor != "" {
		return pci.Vendor + " " + pci.DeviceID
	}
	return pci.DeviceID
}

// nvidiaModel reads the Model line from
// /proc/driver/nvidia/gpus/<slot>/information.
func (s *GPUSampler) nvidiaModel(slot string) string {
	data, err := os.ReadFile(s.procRoot + "/driver/nvidia/gpus/" + slot + "/information")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if value, ok := strings.CutPrefix(line, "Model:"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// readSensors fills the dynamic fields from sysfs, amdgpu-style.
func (s *GPUSampler) readSensors(static gpuStatic, gpu *telemetry.GPU) {
	gpu.UtilizationPercent = float32(sysfs.ReadInt(static.deviceDir + "/gpu_busy_percent"))
	gpu.UsedMemoryBytes = sysfs.ReadUint64(static.deviceDir + "/mem_info_vram_used")

	for _, chip := range sysfs.ListHwmon(static.deviceDir + "/hwmon") {
		if t := chip.TempInput(1); t != 0 {
			gpu.TemperatureC = t
		}
		// power1_average is microwatts.
		if uw := sysfs.ReadUint64(chip.Path + "/power1_average"); uw > 0 {
			gpu.PowerWatts = float32(uw) / 1e6
		}
		// freq1 is the shader clock, freq2 the memory clock, in Hz.
		if hz := sysfs.ReadUint64(chip.Path + "/freq1_input"); hz > 0 {
			gpu.ClockMHz = uint32(hz / 1_000_000)
		}
		if hz := sysfs.ReadUint64(chip.Path + "/freq2_input"); hz > 0 {
			gpu.MemoryClockMHz = uint32(hz / 1_000_000)
		}
	}
}

// nvidiaSMIFields queries one card's dynamic values in CSV form.
var nvidiaSMIFields = []string{
	"utilization.gpu",
	"memory.used",
	"temperature.gpu",
	"power.draw",
	"clocks.gr",
	"clocks.mem",
	"utilization.encoder",
	"utilization.decoder",
}

// readNvidiaSMI shells out to nvidia-smi, bounded by ExecTimeout.
// Failures log at debug; the card keeps its sysfs-derived values.
func (s *GPUSampler) readNvidiaSMI(ctx context.Context, static gpuStatic, gpu *telemetry.GPU) {
	if s.NvidiaSmiPath == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.ExecTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.NvidiaSmiPath,
		"--query-gpu="+strings.Join(nvidiaSMIFields, ","),
		"--format=csv,noheader,nounits",
		"--id="+static.slot,
	).Output()
	if err != nil {
		s.logger.Debug("nvidia-smi query failed", "slot", static.slot, "error", err)
		return
	}

	values := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(values) != len(nvidiaSMIFields) {
		return
	}
	num := func(i int) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(values[i]), 64)
		if err != nil {
			return 0
		}
		return v
	}

	gpu.UtilizationPercent = float32(num(0))
	gpu.UsedMemoryBytes = uint64(num(1)) << 20 // MiB
	gpu.TemperatureC = float32(num(2))
	gpu.PowerWatts = float32(num(3))
	gpu.ClockMHz = uint32(num(4))
	gpu.MemoryClockMHz = uint32(num(5))
	gpu.EncodePercent = float32(num(6))
	gpu.DecodePercent = float32(num(7))
}

// openGLVersion runs glxinfo once per daemon lifetime. GPU capability
// never changes while running, and glxinfo is too slow per cycle.
func (s *GPUSampler) openGLVersion(ctx context.Context) string {
	if s.glProbed {
		return s.glVersion
	}
	s.glProbed = true
	if s.GlxinfoPath == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.ExecTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.GlxinfoPath, "-B").Output()
	if err != nil {
		s.logger.Debug("glxinfo probe failed", "error", err)
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "OpenGL version string:"); ok {
			s.glVersion = strings.TrimSpace(value)
			break
		}
	}
	return s.glVersion
}

// pcieGeneration maps the link speed string to a PCIe generation.
func pcieGeneration(speed string) uint8 {
	switch {
	case strings.HasPrefix(speed, "2.5 GT/s"):
		return 1
	case strings.HasPrefix(speed, "5.0 GT/s"), strings.HasPrefix(speed, "5 GT/s"):
		return 2
	case strings.HasPrefix(speed, "8.0 GT/s"), strings.HasPrefix(speed, "8 GT/s"):
		return 3
	case strings.HasPrefix(speed, "16.0 GT/s"), strings.HasPrefix(speed, "16 GT/s"):
		return 4
	case strings.HasPrefix(speed, "32.0 GT/s"), strings.HasPrefix(speed, "32 GT/s"):
		return 5
	case strings.HasPrefix(speed, "64.0 GT/s"), strings.HasPrefix(speed, "64 GT/s"):
		return 6
	}
	return 0
}
