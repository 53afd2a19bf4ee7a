// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package sampling

import (
	"log/slog"

	"github.com/vigil-systems/vigil/lib/sysfs"
	"github.com/vigil-systems/vigil/lib/telemetry"
)

// FanSampler reads every fan sensor exposed by hwmon chips.
type FanSampler struct {
	sysRoot string
	logger  *slog.Logger
}

// NewFanSampler returns a sampler over sysRoot.
func NewFanSampler(sysRoot string, logger *slog.Logger) *FanSampler {
	return &FanSampler{sysRoot: sysRoot, logger: logger.With("component", "fan-sampler")}
}

// Sample enumerates fans across all chips. Chips without fan sensors
// contribute nothing.
func (s *FanSampler) Sample() []telemetry.Fan {
	fans := []telemetry.Fan{}
	for _, chip := range sysfs.ListHwmon(s.sysRoot + "/class/hwmon") {
		for _, sensor := range chip.Fans() {
			fan := telemetry.Fan{
				Label: sensor.Label,
				RPM:   sensor.RPM,
			}
			if sensor.PWM >= 0 {
				fan.Percent = uint8(sensor.PWM * 100 / 255)
			}
			fans = append(fans, fan)
		}
	}
	return fans
}
