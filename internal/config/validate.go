// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"fmt"
)

// Shortest poll interval: a measurement plus the command settle time.
const minIntervalMs = 18

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Sensor.Address == 0 || cfg.Sensor.Address > 0x7f {
		return fmt.Errorf("sensor: address %#x is not a 7 bit I²C address", cfg.Sensor.Address)
	}
	if cfg.Sensor.HeaterMs < 0 {
		return fmt.Errorf("sensor: heater_ms must not be negative")
	}
	if cfg.Poll.IntervalMs < minIntervalMs {
		return fmt.Errorf("poll: interval_ms %d is shorter than a measurement (%d ms)", cfg.Poll.IntervalMs, minIntervalMs)
	}
	if cfg.Poll.StatusEvery < 0 {
		return fmt.Errorf("poll: status_every must not be negative")
	}
	if cfg.Influx.URL != "" {
		if cfg.Influx.Org == "" || cfg.Influx.Bucket == "" {
			return fmt.Errorf("influx: url is set but org or bucket is missing")
		}
		if cfg.Influx.Measurement == "" {
			return fmt.Errorf("influx: measurement must not be empty")
		}
	}
	return nil
}
