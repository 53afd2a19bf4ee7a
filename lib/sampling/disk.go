// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-systems/vigil/lib/procfs"
	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// sectorSize is the unit of the sysfs stat sector counters, fixed at
// 512 regardless of the device's logical block size.
const sectorSize = 512

// virtualPrefixes name block devices that are not physical storage.
var virtualPrefixes = []string{"loop", "ram", "zram", "sr", "fd", "md", "dm-", "zd"}

// diskCounters is the subset of the 17-field /sys/block/<dev>/stat
// line used for rate math. All values are cumulative.
type diskCounters struct {
	readIOs      uint64
	readSectors  uint64
	readTicks    uint64
	writeIOs     uint64
	writeSectors uint64
	writeTicks   uint64
	discardIOs   uint64
	discardTicks uint64
	flushIOs     uint64
	flushTicks   uint64
}

// DiskSampler enumerates physical block devices and derives busy,
// response time, and throughput from stat-line deltas.
type DiskSampler struct {
	fs      procfs.FS
	sysRoot string
	logger  *slog.Logger

	prev map[string]diskCounters
}

// NewDiskSampler returns a sampler reading sysfs from sysRoot and the
// mount table through fs.
func NewDiskSampler(fs procfs.FS, sysRoot string, logger *slog.Logger) *DiskSampler {
	return &DiskSampler{
		fs:      fs,
		sysRoot: sysRoot,
		logger:  logger.With("component", "disk-sampler"),
		prev:    map[string]diskCounters{},
	}
}

// Sample scans /sys/block. A device seen for the first time reports
// zero rates; a device that disappears is pruned from the cache. One
// unreadable device never hides the others. Results are sorted by id.
func (s *DiskSampler) Sample(elapsed time.Duration) []telemetry.Disk {
	names := sysfs.ListDir(s.sysRoot + "/block")
	rootDevice := s.rootDevice()

	disks := []telemetry.Disk{}
	next := make(map[string]diskCounters, len(names))

	for _, name := range names {
		if isVirtualDevice(name) {
			continue
		}
		devDir := s.sysRoot + "/block/" + name

		counters, ok := readDiskCounters(devDir + "/stat")
		if !ok {
			s.logger.Warn("unreadable disk stat", "device", name)
			continue
		}
		next[name] = counters

		disk := telemetry.Disk{
			ID:            name,
			Model:         diskModel(devDir),
			Kind:          diskKind(devDir, name),
			CapacityBytes: sysfs.ReadUint64(devDir+"/size") * sectorSize,
			SystemDisk:    name == rootDevice,
		}
		disk.FormattedBytes = s.partitionBytes(devDir, name)

		if prev, ok := s.prev[name]; ok && elapsed > 0 {
			applyDiskRates(&disk, prev, counters, elapsed.Seconds())
		}
		disks = append(disks, disk)
	}

	s.prev = next
	sort.Slice(disks, func(i, j int) bool { return disks[i].ID < disks[j].ID })
	return disks
}

// applyDiskRates fills the dynamic fields from counter deltas.
func applyDiskRates(disk *telemetry.Disk, prev, cur diskCounters, elapsedSec float64) {
	tickSum := procfs.DeltaU64(cur.readTicks, prev.readTicks) +
		procfs.DeltaU64(cur.writeTicks, prev.writeTicks) +
		procfs.DeltaU64(cur.discardTicks, prev.discardTicks) +
		procfs.DeltaU64(cur.flushTicks, prev.flushTicks)

	busy := float64(tickSum) / (elapsedSec * 8)
	if busy > 100 {
		busy = 100
	}
	disk.BusyPercent = float32(busy)

	ioSum := procfs.DeltaU64(cur.readIOs, prev.readIOs) +
		procfs.DeltaU64(cur.writeIOs, prev.writeIOs) +
		procfs.DeltaU64(cur.discardIOs, prev.discardIOs) +
		procfs.DeltaU64(cur.flushIOs, prev.flushIOs)
	if ioSum > 0 {
		disk.ResponseTimeMs = float32(tickSum) / float32(ioSum)
	}

	disk.ReadBytesPerSec = uint64(float64(procfs.DeltaU64(cur.readSectors, prev.readSectors)*sectorSize) / elapsedSec)
	disk.WriteBytesPerSec = uint64(float64(procfs.DeltaU64(cur.writeSectors, prev.writeSectors)*sectorSize) / elapsedSec)
}

// readDiskCounters parses the stat line. Kernels before 4.18 emit 11
// fields (no discard), before 5.5 emit 15 (no flush); missing groups
// read as zero.
func readDiskCounters(path string) (diskCounters, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return diskCounters{}, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 11 {
		return diskCounters{}, false
	}

	at := func(i int) uint64 {
		if i >= len(fields) {
			return 0
		}
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return 0
		}
		return v
	}

	return diskCounters{
		readIOs:      at(0),
		readSectors:  at(2),
		readTicks:    at(3),
		writeIOs:     at(4),
		writeSectors: at(6),
		writeTicks:   at(7),
		discardIOs:   at(11),
		discardTicks: at(14),
		flushIOs:     at(15),
		flushTicks:   at(16),
	}, true
}

func isVirtualDevice(name string) bool {
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// diskKind classifies by the rotational flag first, then by the name
// family for the non-rotational buses.
func diskKind(devDir, name string) telemetry.DiskKind {
	rotational := sysfs.ReadString(devDir + "/queue/rotational")
	if rotational == "1" {
		return telemetry.DiskHDD
	}
	switch {
	case strings.HasPrefix(name, "nvme"):
		return telemetry.DiskNVMe
	case strings.HasPrefix(name, "mmcblk"):
		return telemetry.DiskEMMC
	case rotational == "0":
		return telemetry.DiskSSD
	}
	return telemetry.DiskUnknown
}

func diskModel(devDir string) string {
	model := sysfs.ReadString(devDir + "/device/model")
	vendor := sysfs.ReadString(devDir + "/device/vendor")
	switch {
	case vendor != "" && model != "":
		return vendor + " " + model
	case model != "":
		return model
	}
	return vendor
}

// rootDevice resolves which block device backs "/" by matching the
// mounted source device name against sysfs partition directories.
func (s *DiskSampler) rootDevice() string {
	data, err := os.ReadFile(s.fs.Root() + "/self/mounts")
	if err != nil {
		return ""
	}

	var rootSource string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "/" {
			rootSource = fields[0]
		}
	}
	if !strings.HasPrefix(rootSource, "/dev/") {
		return ""
	}
	partition := strings.TrimPrefix(rootSource, "/dev/")

	for _, name := range sysfs.ListDir(s.sysRoot + "/block") {
		if name == partition {
			return name
		}
		if _, err := os.Stat(s.sysRoot + "/block/" + name + "/" + partition); err == nil {
			return name
		}
	}
	return ""
}

// partitionBytes sums the sizes of the device's partitions, which is
// the formatted capacity as opposed to the raw one.
func (s *DiskSampler) partitionBytes(devDir, name string) uint64 {
	var total uint64
	for _, entry := range sysfs.ListDir(devDir) {
		if !strings.HasPrefix(entry, name) {
			continue
		}
		total += sysfs.ReadUint64(devDir+"/"+entry+"/size") * sectorSize
	}
	return total
}
