// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
)

// BarometerRegisters is the register map of a barometer with a 32-bit ADC
// read as two 16-bit words
type BarometerRegisters struct {
	Command        uint8
	Status         uint8
	BusyMask       uint16
	ResultHigh     uint8
	ResultLow      uint8
	CmdTemperature uint16
	CmdPressure    uint16
}

// DefaultBarometerRegisters is the layout used by the flight computer's barometer
var DefaultBarometerRegisters = BarometerRegisters{
	Command:        0xF4,
	Status:         0xF3,
	BusyMask:       0x0008,
	ResultHigh:     0xF6,
	ResultLow:      0xF8,
	CmdTemperature: 0x002E,
	CmdPressure:    0x00F4,
}

// BarometerDriver runs temperature and pressure conversions. The wait for each
// conversion is a busy poll of the status register against the clock.
type BarometerDriver struct {
	bus     RegisterBus
	regs    BarometerRegisters
	clock   clock.Clock
	timeout time.Duration
}

// NewBarometerDriver creates a barometer driver
func NewBarometerDriver(bus RegisterBus, regs BarometerRegisters, c clock.Clock, timeout time.Duration) *BarometerDriver {
	if c == nil {
		c = clock.System()
	}
	return &BarometerDriver{bus: bus, regs: regs, clock: c, timeout: timeout}
}

// ReadBarometer converts temperature then pressure. A zero conversion result is
// returned as a FaultADCZero fault.
func (d *BarometerDriver) ReadBarometer(ctx context.Context) (BarometerSample, error) {
	t, err := d.convert("temperature", d.regs.CmdTemperature)
	if err != nil {
		return BarometerSample{}, err
	}
	p, err := d.convert("pressure", d.regs.CmdPressure)
	if err != nil {
		return BarometerSample{}, err
	}
	return BarometerSample{RawTemperature: t, RawPressure: p}, nil
}

func (d *BarometerDriver) convert(what string, cmd uint16) (int32, error) {
	if err := d.bus.WriteRegister(d.regs.Command, cmd); err != nil {
		return 0, fmt.Errorf("failed to start %s conversion: %w", what, err)
	}

	err := clock.PollUntil(d.clock, d.timeout, func() (bool, error) {
		status, err := d.bus.ReadRegister(d.regs.Status)
		return status&d.regs.BusyMask == 0, err
	})
	if err != nil {
		return 0, fmt.Errorf("%s conversion: %w", what, err)
	}

	hi, err := d.bus.ReadRegister(d.regs.ResultHigh)
	if err != nil {
		return 0, err
	}
	lo, err := d.bus.ReadRegister(d.regs.ResultLow)
	if err != nil {
		return 0, err
	}

	raw := int32(uint32(hi)<<16 | uint32(lo))
	if raw == 0 {
		return 0, &Fault{Kind: FaultADCZero, Detail: what + " conversion returned 0"}
	}
	return raw, nil
}
