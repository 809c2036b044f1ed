// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads telelink settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete settings file
type Config struct {
	Log     LogConfig     `yaml:"log"`
	UDP     UDPConfig     `yaml:"udp"`
	Radio   RadioConfig   `yaml:"radio"`
	Devices DevicesConfig `yaml:"devices"`
	Record  RecordConfig  `yaml:"record"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// UDPConfig covers the UDP request/response channel
type UDPConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Listen       string        `yaml:"listen"` // flight side
	Server       string        `yaml:"server"` // ground side
	PingInterval time.Duration `yaml:"ping_interval"`
	Mask         uint8         `yaml:"mask"`
}

// RadioConfig covers the XTend serial radio
type RadioConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Port             string        `yaml:"port"`
	Baud             int           `yaml:"baud"`
	URL              string        `yaml:"url"` // WebSocket serial bridge instead of Port
	Username         string        `yaml:"username"`
	APIMode          bool          `yaml:"api_mode"`
	DestAddr         uint16        `yaml:"dest_addr"`
	PushInterval     time.Duration `yaml:"push_interval"`
	Mask             uint8         `yaml:"mask"`
	ATCommands       string        `yaml:"at_commands"`
	GuardTime        time.Duration `yaml:"guard_time"`
	WatchdogTimeout  time.Duration `yaml:"watchdog_timeout"`
	WatchdogInterval time.Duration `yaml:"watchdog_interval"`
	Countdown        time.Duration `yaml:"countdown"`
	MaxPayload       int           `yaml:"max_payload"` // transparent mode only
}

// DevicesConfig covers the flight computer's sensors
type DevicesConfig struct {
	Simulate      bool            `yaml:"simulate"`
	I2CBus        int             `yaml:"i2c_bus"`
	Accelerometer InertialConfig  `yaml:"accelerometer"`
	Gyroscope     InertialConfig  `yaml:"gyroscope"`
	Barometer     BarometerConfig `yaml:"barometer"`
	Analog        AnalogConfig    `yaml:"analog"`
	GPS           GPSConfig       `yaml:"gps"`
}

type InertialConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Address  uint8   `yaml:"address"`
	Identity uint16  `yaml:"identity"`
	Scale    float32 `yaml:"scale"`
	Hz       float64 `yaml:"hz"`
}

type BarometerConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Address           uint8         `yaml:"address"`
	Hz                float64       `yaml:"hz"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
}

type AnalogConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Address           uint8         `yaml:"address"`
	Hz                float64       `yaml:"hz"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
}

type GPSConfig struct {
	Enabled bool    `yaml:"enabled"`
	Port    string  `yaml:"port"`
	Baud    int     `yaml:"baud"`
	Hz      float64 `yaml:"hz"`
}

// RecordConfig controls the ground station snapshot recorder
type RecordConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "INFO"},
		UDP: UDPConfig{
			Enabled:      true,
			Listen:       ":5005",
			Server:       "127.0.0.1:5005",
			PingInterval: 100 * time.Millisecond,
		},
		Radio: RadioConfig{
			Baud:             9600,
			APIMode:          true,
			DestAddr:         0xFFFF,
			PushInterval:     500 * time.Millisecond,
			GuardTime:        time.Second,
			WatchdogTimeout:  5 * time.Second,
			WatchdogInterval: time.Second,
			MaxPayload:       2048,
		},
		Devices: DevicesConfig{
			I2CBus: 1,
			Accelerometer: InertialConfig{
				Enabled: true, Address: 0x6A, Identity: 0x6C, Scale: 0.000488, Hz: 100,
			},
			Gyroscope: InertialConfig{
				Enabled: true, Address: 0x6B, Identity: 0x6C, Scale: 0.07, Hz: 100,
			},
			Barometer: BarometerConfig{
				Enabled: true, Address: 0x77, Hz: 20, ConversionTimeout: 50 * time.Millisecond,
			},
			Analog: AnalogConfig{
				Enabled: true, Address: 0x48, Hz: 50, ConversionTimeout: 20 * time.Millisecond,
			},
			GPS: GPSConfig{Baud: 9600, Hz: 0},
		},
	}
}

// Load reads path over the defaults. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if c.Radio.Baud <= 0 {
		return fmt.Errorf("radio.baud must be positive, got %d", c.Radio.Baud)
	}
	if c.UDP.PingInterval <= 0 {
		return fmt.Errorf("udp.ping_interval must be positive, got %v", c.UDP.PingInterval)
	}
	if c.Radio.PushInterval <= 0 {
		return fmt.Errorf("radio.push_interval must be positive, got %v", c.Radio.PushInterval)
	}
	for name, hz := range map[string]float64{
		"accelerometer": c.Devices.Accelerometer.Hz,
		"gyroscope":     c.Devices.Gyroscope.Hz,
		"barometer":     c.Devices.Barometer.Hz,
		"analog":        c.Devices.Analog.Hz,
		"gps":           c.Devices.GPS.Hz,
	} {
		if hz < 0 {
			return fmt.Errorf("devices.%s.hz must not be negative, got %v", name, hz)
		}
	}
	return nil
}
