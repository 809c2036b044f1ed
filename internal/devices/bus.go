// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package devices contains the flight computer's sensor drivers and the
// scheduler devices that copy their readings into the shared sensor state.
//
// Drivers talk to chips through RegisterBus, a 16-bit register interface.
// Chip register maps are supplied by the caller; this package knows only how
// to identify a chip, start a conversion, wait for it and read the result.
package devices

import (
	"fmt"
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all" // registers the host drivers
)

// RegisterBus reads and writes 16-bit registers on one chip
type RegisterBus interface {
	ReadRegister(addr uint8) (uint16, error)
	WriteRegister(addr uint8, value uint16) error
}

var i2cInit sync.Once
var i2cInitErr error

// I2CDevice is a RegisterBus for one chip address on a host I2C bus
type I2CDevice struct {
	bus     embd.I2CBus
	address byte
}

// OpenI2C returns the chip at address on the numbered host bus.
// The host I2C driver is initialized on first use.
func OpenI2C(busNumber int, address uint8) (*I2CDevice, error) {
	i2cInit.Do(func() { i2cInitErr = embd.InitI2C() })
	if i2cInitErr != nil {
		return nil, fmt.Errorf("failed to initialize I2C: %w", i2cInitErr)
	}
	return &I2CDevice{bus: embd.NewI2CBus(byte(busNumber)), address: address}, nil
}

// CloseI2C releases every bus opened through OpenI2C
func CloseI2C() error {
	return embd.CloseI2C()
}

func (d *I2CDevice) ReadRegister(addr uint8) (uint16, error) {
	v, err := d.bus.ReadWordFromReg(d.address, addr)
	if err != nil {
		return 0, fmt.Errorf("i2c 0x%02X read 0x%02X: %w", d.address, addr, err)
	}
	return v, nil
}

func (d *I2CDevice) WriteRegister(addr uint8, value uint16) error {
	if err := d.bus.WriteWordToReg(d.address, addr, value); err != nil {
		return fmt.Errorf("i2c 0x%02X write 0x%02X: %w", d.address, addr, err)
	}
	return nil
}
