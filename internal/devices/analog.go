// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/sensors"
)

// ADS1115-style single-shot converter
const (
	adcRegConversion = 0x00
	adcRegConfig     = 0x01

	adcConfigStart     = 0x8000 // write: start conversion, read: 1 when idle
	adcConfigMuxSingle = 0x4000 // single-ended, channel in bits 12-13
	adcConfigPGA4096   = 0x0200
	adcConfigOneShot   = 0x0100
	adcConfigRate128   = 0x0080
	adcConfigNoCompare = 0x0003

	adcMillivoltsPerLSB = 0.125 // at +/-4.096 V
	adcFullScale        = 0x7FFF
)

// AnalogDriver reads the four single-ended channels of the pressure transducer ADC
type AnalogDriver struct {
	bus     RegisterBus
	clock   clock.Clock
	timeout time.Duration
}

// NewAnalogDriver creates an ADC driver
func NewAnalogDriver(bus RegisterBus, c clock.Clock, timeout time.Duration) *AnalogDriver {
	if c == nil {
		c = clock.System()
	}
	return &AnalogDriver{bus: bus, clock: c, timeout: timeout}
}

// ReadAnalog converts each channel in turn. A channel pinned at full scale is
// reported as a FaultSaturated fault.
func (d *AnalogDriver) ReadAnalog(ctx context.Context) ([sensors.AnalogChannels]float32, error) {
	var out [sensors.AnalogChannels]float32
	for ch := 0; ch < sensors.AnalogChannels; ch++ {
		raw, err := d.convert(ch)
		if err != nil {
			return out, err
		}
		if raw == adcFullScale {
			return out, &Fault{Kind: FaultSaturated, Detail: fmt.Sprintf("channel %d at full scale", ch)}
		}
		out[ch] = float32(raw) * adcMillivoltsPerLSB
	}
	return out, nil
}

func (d *AnalogDriver) convert(ch int) (int16, error) {
	config := uint16(adcConfigStart | adcConfigMuxSingle | adcConfigPGA4096 |
		adcConfigOneShot | adcConfigRate128 | adcConfigNoCompare)
	config |= uint16(ch) << 12
	if err := d.bus.WriteRegister(adcRegConfig, config); err != nil {
		return 0, fmt.Errorf("failed to start channel %d: %w", ch, err)
	}

	err := clock.PollUntil(d.clock, d.timeout, func() (bool, error) {
		v, err := d.bus.ReadRegister(adcRegConfig)
		return v&adcConfigStart != 0, err
	})
	if err != nil {
		return 0, fmt.Errorf("channel %d conversion: %w", ch, err)
	}

	v, err := d.bus.ReadRegister(adcRegConversion)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}
