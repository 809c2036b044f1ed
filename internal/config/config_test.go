// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telelink.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
udp:
  listen: ":6000"
  ping_interval: 250ms
  mask: 0x03
radio:
  port: /dev/ttyUSB1
  api_mode: false
  dest_addr: 0x0002
  at_commands: "AP1,BD3"
  watchdog_timeout: 2s
devices:
  simulate: true
  barometer:
    hz: 40
record:
  path: flight.cbor
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.UDP.Listen != ":6000" || cfg.UDP.Mask != 0x03 {
		t.Errorf("log/udp = %+v %+v", cfg.Log, cfg.UDP)
	}
	if cfg.UDP.PingInterval != 250*time.Millisecond {
		t.Errorf("ping_interval = %v", cfg.UDP.PingInterval)
	}
	if cfg.Radio.Port != "/dev/ttyUSB1" || cfg.Radio.APIMode || cfg.Radio.DestAddr != 2 {
		t.Errorf("radio = %+v", cfg.Radio)
	}
	if cfg.Radio.WatchdogTimeout != 2*time.Second || cfg.Radio.ATCommands != "AP1,BD3" {
		t.Errorf("radio = %+v", cfg.Radio)
	}
	if !cfg.Devices.Simulate || cfg.Devices.Barometer.Hz != 40 {
		t.Errorf("devices = %+v", cfg.Devices)
	}
	if cfg.Record.Path != "flight.cbor" {
		t.Errorf("record = %+v", cfg.Record)
	}

	// Untouched fields keep defaults
	def := Default()
	if cfg.Radio.Baud != def.Radio.Baud || cfg.Devices.Barometer.Address != def.Devices.Barometer.Address {
		t.Errorf("defaults lost: baud=%d baro addr=0x%02X", cfg.Radio.Baud, cfg.Devices.Barometer.Address)
	}
	if cfg.Devices.Barometer.ConversionTimeout != def.Devices.Barometer.ConversionTimeout {
		t.Errorf("conversion_timeout = %v", cfg.Devices.Barometer.ConversionTimeout)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "udp: [", "failed to parse"},
		{"bad duration", "udp:\n  ping_interval: soon\n", "failed to parse"},
		{"zero baud", "radio:\n  baud: 0\n", "radio.baud"},
		{"negative hz", "devices:\n  gyroscope:\n    hz: -1\n", "devices.gyroscope.hz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
