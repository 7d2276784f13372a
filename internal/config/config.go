// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the configuration of the sht3x sampling tool from a
// YAML file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor  SensorConfig  `yaml:"sensor"`
	Poll    PollConfig    `yaml:"poll"`
	Console ConsoleConfig `yaml:"console"`
	Influx  InfluxConfig  `yaml:"influx"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type SensorConfig struct {
	// Bus is the periph.io I²C bus name. Empty selects the first bus.
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// Debug traces every bus transaction to the log.
	Debug bool `yaml:"debug"`
	// HeaterMs runs the heater for this long at startup to clear
	// condensation. 0 skips it.
	HeaterMs int `yaml:"heater_ms"`
}

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	// StatusEvery reads the status register every n samples. 0 disables it.
	StatusEvery int `yaml:"status_every"`
}

type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InfluxConfig is enabled when URL is set.
type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// HTTPConfig is enabled when Listen is set.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used for anything the file and the
// environment leave unset.
func Default() *Config {
	return &Config{
		Sensor:  SensorConfig{Address: 0x44},
		Poll:    PollConfig{IntervalMs: 2000},
		Console: ConsoleConfig{Enabled: true},
		Influx:  InfluxConfig{Measurement: "environment"},
	}
}

// Load reads path on top of Default, then applies .env files and the
// environment. An empty path skips the file. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: env file: %w", err)
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("SHT3X_BUS", &cfg.Sensor.Bus)
	str("INFLUX_URL", &cfg.Influx.URL)
	str("INFLUX_TOKEN", &cfg.Influx.Token)
	str("INFLUX_ORG", &cfg.Influx.Org)
	str("INFLUX_BUCKET", &cfg.Influx.Bucket)
	str("HTTP_LISTEN", &cfg.HTTP.Listen)

	if v, ok := lookup("SHT3X_ADDRESS"); ok {
		a, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("config: SHT3X_ADDRESS: %w", err)
		}
		cfg.Sensor.Address = uint16(a)
	}
	if v, ok := lookup("SHT3X_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SHT3X_DEBUG: %w", err)
		}
		cfg.Sensor.Debug = b
	}
	if v, ok := lookup("SHT3X_INTERVAL_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SHT3X_INTERVAL_MS: %w", err)
		}
		cfg.Poll.IntervalMs = n
	}
	return nil
}
