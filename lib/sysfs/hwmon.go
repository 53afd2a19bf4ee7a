// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Hwmon is one hardware monitoring chip directory.
type Hwmon struct {
	// Name is the chip name from the "name" attribute (coretemp,
	// k10temp, amdgpu, nct6775, ...).
	Name string

	// Path is the hwmon directory.
	Path string
}

// ListHwmon enumerates hwmon chips under root (normally
// /sys/class/hwmon).
func ListHwmon(root string) []Hwmon {
	var chips []Hwmon
	for _, name := range ListDir(root) {
		if !strings.HasPrefix(name, "hwmon") {
			continue
		}
		dir := filepath.Join(root, name)
		chips = append(chips, Hwmon{
			Name: ReadString(filepath.Join(dir, "name")),
			Path: dir,
		})
	}
	return chips
}

// FindHwmon returns the first chip whose name matches any of the given
// names, and whether one was found.
func FindHwmon(root string, names ...string) (Hwmon, bool) {
	for _, chip := range ListHwmon(root) {
		for _, want := range names {
			if chip.Name == want {
				return chip, true
			}
		}
	}
	return Hwmon{}, false
}

// TempInput reads tempN_input (millidegrees) and returns degrees
// Celsius. Returns 0 when the sensor is absent.
func (h Hwmon) TempInput(index int) float32 {
	milli := ReadInt(filepath.Join(h.Path, fmt.Sprintf("temp%d_input", index)))
	return float32(milli) / 1000
}

// FanSensor is one fanN_input sensor on a chip.
type FanSensor struct {
	Label string
	RPM   uint32

	// PWM is the raw 0..255 duty cycle, -1 when the chip does not
	// expose one.
	PWM int
}

// Fans enumerates the chip's fan sensors in index order. Sensors
// without a label get "chipname fanN".
func (h Hwmon) Fans() []FanSensor {
	var fans []FanSensor
	for index := 1; ; index++ {
		input := filepath.Join(h.Path, fmt.Sprintf("fan%d_input", index))
		if ReadString(input) == "" {
			break
		}
		label := ReadString(filepath.Join(h.Path, fmt.Sprintf("fan%d_label", index)))
		if label == "" {
			label = fmt.Sprintf("%s fan%d", h.Name, index)
		}
		pwm := -1
		if v := ReadString(filepath.Join(h.Path, fmt.Sprintf("pwm%d", index))); v != "" {
			pwm = ReadInt(filepath.Join(h.Path, fmt.Sprintf("pwm%d", index)))
		}
		fans = append(fans, FanSensor{
			Label: label,
			RPM:   uint32(ReadUint64(input)),
			PWM:   pwm,
		})
	}
	return fans
}
