// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// ensureStatic probes the unchanging CPU facts on first use.
func (s *CPUSampler) ensureStatic() *telemetry.CPU {
	if s.static != nil {
		return s.static
	}

	cpu := &telemetry.CPU{}

	info, err := s.fs.ReadCPUInfo()
	if err != nil {
		s.logger.Error("reading cpuinfo", "error", err)
	}

	cpu.ModelName = modelName(info.Blocks)
	cpu.LogicalCores = s.countLogicalCores(len(info.Blocks))
	cpu.Sockets = s.countSockets()
	cpu.BaseFrequencyKHz = s.baseFrequency(info.Blocks)
	s.probeCaches(cpu)
	cpu.Virtualization = s.virtualization(info.Blocks)
	cpu.VirtualMachine = hasFlag(info.Blocks, "hypervisor")

	s.static = cpu
	return cpu
}

// modelName extracts the marketing name. x86 kernels provide "model
// name" directly; ARM kernels expose implementer and part codes that
// map through the lookup tables below.
func modelName(blocks []map[string]string) string {
	for _, block := range blocks {
		if name, ok := block["model name"]; ok {
			name = strings.ReplaceAll(name, "(R)", "®")
			name = strings.ReplaceAll(name, "(TM)", "™")
			return name
		}
	}
	for _, block := range blocks {
		implementer, okImpl := block["CPU implementer"]
		part, okPart := block["CPU part"]
		if okImpl && okPart {
			return armName(implementer, part)
		}
	}
	for _, block := range blocks {
		if hw, ok := block["Hardware"]; ok {
			return hw
		}
	}
	return "Unknown"
}

// armImplementers maps the "CPU implementer" code to a vendor name.
var armImplementers = map[int64]string{
	0x41: "ARM",
	0x42: "Broadcom",
	0x43: "Cavium",
	0x44: "DEC",
	0x46: "Fujitsu",
	0x48: "HiSilicon",
	0x4e: "NVIDIA",
	0x50: "Applied Micro",
	0x51: "Qualcomm",
	0x53: "Samsung",
	0x56: "Marvell",
	0x61: "Apple",
	0x66: "Faraday",
	0x69: "Intel",
	0x70: "Phytium",
	0xc0: "Ampere",
}

// armParts maps ARM Ltd "CPU part" codes to core names. Codes outside
// the table render as raw hex rather than guessing.
var armParts = map[int64]string{
	0xd03: "Cortex-A53",
	0xd04: "Cortex-A35",
	0xd05: "Cortex-A55",
	0xd07: "Cortex-A57",
	0xd08: "Cortex-A72",
	0xd09: "Cortex-A73",
	0xd0a: "Cortex-A75",
	0xd0b: "Cortex-A76",
	0xd0c: "Neoverse-N1",
	0xd0d: "Cortex-A77",
	0xd40: "Neoverse-V1",
	0xd41: "Cortex-A78",
	0xd44: "Cortex-X1",
	0xd46: "Cortex-A510",
	0xd47: "Cortex-A710",
	0xd48: "Cortex-X2",
	0xd49: "Neoverse-N2",
	0xd4d: "Cortex-A715",
}

func armName(implementer, part string) string {
	impl, err := strconv.ParseInt(strings.TrimPrefix(implementer, "0x"), 16, 64)
	if err != nil {
		return "Unknown"
	}
	vendor, ok := armImplementers[impl]
	if !ok {
		vendor = implementer
	}

	partCode, err := strconv.ParseInt(strings.TrimPrefix(part, "0x"), 16, 64)
	if err != nil {
		return vendor
	}
	if name, ok := armParts[partCode]; ok {
		return vendor + " " + name
	}
	return fmt.Sprintf("%s 0x%x", vendor, partCode)
}

func (s *CPUSampler) cpuDirs() []string {
	var dirs []string
	for _, name := range sysfs.ListDir(s.sysRoot + "/devices/system/cpu") {
		if isCPUEntry(name) {
			dirs = append(dirs, s.sysRoot+"/devices/system/cpu/"+name)
		}
	}
	return dirs
}

func (s *CPUSampler) countLogicalCores(cpuinfoBlocks int) uint32 {
	if dirs := s.cpuDirs(); len(dirs) > 0 {
		return uint32(len(dirs))
	}
	return uint32(cpuinfoBlocks)
}

// countSockets counts distinct physical_package_id values.
func (s *CPUSampler) countSockets() uint32 {
	packages := map[string]struct{}{}
	for _, dir := range s.cpuDirs() {
		id := sysfs.ReadString(dir + "/topology/physical_package_id")
		if id != "" {
			packages[id] = struct{}{}
		}
	}
	if len(packages) == 0 {
		return 1
	}
	return uint32(len(packages))
}

// baseFrequency tries cpufreq base_frequency, then the BIOS limit,
// then the nominal cpuinfo clock. kHz.
func (s *CPUSampler) baseFrequency(blocks []map[string]string) uint64 {
	for _, dir := range s.cpuDirs() {
		if khz := sysfs.ReadUint64(dir + "/cpufreq/base_frequency"); khz > 0 {
			return khz
		}
	}
	for _, dir := range s.cpuDirs() {
		if khz := sysfs.ReadUint64(dir + "/cpufreq/bios_limit"); khz > 0 {
			return khz
		}
	}
	for _, block := range blocks {
		if v, ok := block["cpu MHz"]; ok {
			if mhz, err := strconv.ParseFloat(v, 64); err == nil {
				return uint64(mhz * 1000)
			}
		}
	}
	return 0
}

// probeCaches sums cache sizes across cores, counting each physical
// cache once. Two cores sharing an L3 report the same shared_cpu_list,
// which makes (level, type, shared list) a stable identity.
func (s *CPUSampler) probeCaches(cpu *telemetry.CPU) {
	seen := map[string]struct{}{}
	for _, dir := range s.cpuDirs() {
		for _, index := range sysfs.ListDir(dir + "/cache") {
			if !strings.HasPrefix(index, "index") {
				continue
			}
			cacheDir := dir + "/cache/" + index
			level := sysfs.ReadInt(cacheDir + "/level")
			cacheType := sysfs.ReadString(cacheDir + "/type")
			shared := sysfs.ReadString(cacheDir + "/shared_cpu_list")

			key := fmt.Sprintf("%d/%s/%s", level, cacheType, shared)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			size := parseCacheSize(sysfs.ReadString(cacheDir + "/size"))
			switch {
			case level == 1 && cacheType == "Data":
				cpu.CacheL1d += size
			case level == 1 && cacheType == "Instruction":
				cpu.CacheL1i += size
			case level == 2:
				cpu.CacheL2 += size
			case level == 3:
				cpu.CacheL3 += size
			case level == 4:
				cpu.CacheL4 += size
			}
		}
	}
}

// parseCacheSize handles the sysfs "512K" / "8M" notation.
func parseCacheSize(s string) uint64 {
	if s == "" {
		return 0
	}
	multiplier := uint64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1 << 30
		s = s[:len(s)-1]
	}
	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return value * multiplier
}

// virtualization reports the host virtualization technology. CPU flags
// name the silicon feature; /dev/kvm and Xen's capabilities file
// identify the hypervisor layers.
func (s *CPUSampler) virtualization(blocks []map[string]string) string {
	if hasFlag(blocks, "vmx") {
		return "Intel VT-x"
	}
	if hasFlag(blocks, "svm") {
		return "AMD-V"
	}
	if _, err := os.Stat("/dev/kvm"); err == nil {
		return "KVM"
	}
	if data, err := os.ReadFile(s.fs.Root() + "/xen/capabilities"); err == nil {
		if strings.TrimSpace(string(data)) == "control_d" {
			return "Xen"
		}
	}
	return ""
}

func hasFlag(blocks []map[string]string, flag string) bool {
	for _, block := range blocks {
		flags, ok := block["flags"]
		if !ok {
			flags, ok = block["Features"]
		}
		if !ok {
			continue
		}
		for _, f := range strings.Fields(flags) {
			if f == flag {
				return true
			}
		}
	}
	return false
}
