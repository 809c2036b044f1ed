// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"fmt"
)

// InertialRegisters is the register map of a 3-axis inertial chip
type InertialRegisters struct {
	Identity     uint8
	Control      uint8
	ControlValue uint16 // written once at setup: range and output rate
	X, Y, Z      uint8
}

// DefaultInertialRegisters matches the LSM6-family layout
var DefaultInertialRegisters = InertialRegisters{
	Identity:     0x0F,
	Control:      0x10,
	ControlValue: 0x4C,
	X:            0x28,
	Y:            0x2A,
	Z:            0x2C,
}

// InertialDriver reads a 3-axis accelerometer or gyroscope over a RegisterBus
type InertialDriver struct {
	bus   RegisterBus
	regs  InertialRegisters
	scale float32
}

// NewInertialDriver verifies the chip identity and configures it. An identity
// mismatch returns ErrIdentity and the driver must not be scheduled.
func NewInertialDriver(bus RegisterBus, regs InertialRegisters, identity uint16, scale float32) (*InertialDriver, error) {
	id, err := bus.ReadRegister(regs.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	if id != identity {
		return nil, fmt.Errorf("%w: got 0x%04X, expected 0x%04X", ErrIdentity, id, identity)
	}
	if err := bus.WriteRegister(regs.Control, regs.ControlValue); err != nil {
		return nil, fmt.Errorf("failed to configure: %w", err)
	}
	return &InertialDriver{bus: bus, regs: regs, scale: scale}, nil
}

// ReadInertial reads the three axes
func (d *InertialDriver) ReadInertial(ctx context.Context) (InertialSample, error) {
	s := InertialSample{Scale: d.scale}
	for _, axis := range []struct {
		reg uint8
		dst *int16
	}{{d.regs.X, &s.X}, {d.regs.Y, &s.Y}, {d.regs.Z, &s.Z}} {
		v, err := d.bus.ReadRegister(axis.reg)
		if err != nil {
			return InertialSample{}, err
		}
		*axis.dst = int16(v)
	}
	return s, nil
}
