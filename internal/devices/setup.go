// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/telelink/internal/config"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/sensors"
)

// Scheduled is a poller with its target rate
type Scheduled struct {
	Poller *Poller
	Hz     float64
}

// Hardware opens the real buses. Tests substitute their own.
type Hardware struct {
	OpenBus func(address uint8) (RegisterBus, error)
	OpenGPS func(port string, baud int) (io.ReadCloser, error)
}

// HostHardware returns the host I2C bus and serial ports
func HostHardware(i2cBus int) Hardware {
	return Hardware{
		OpenBus: func(address uint8) (RegisterBus, error) {
			return OpenI2C(i2cBus, address)
		},
		OpenGPS: func(port string, baud int) (io.ReadCloser, error) {
			return transport.OpenSerial(port, baud)
		},
	}
}

// Setup builds a poller for every enabled device. A device that fails setup,
// including an identity mismatch, is left out and its error is included in
// the returned error. Closers must be closed at shutdown.
func Setup(cfg config.DevicesConfig, hw Hardware, st *sensors.State, c clock.Clock, onFault FaultHandler) ([]Scheduled, []io.Closer, error) {
	if cfg.Simulate {
		return simulated(cfg, st, c, onFault), nil, nil
	}

	var out []Scheduled
	var closers []io.Closer
	var errs []error

	inertial := func(name string, ic config.InertialConfig, mk func(InertialSource, *sensors.State, FaultHandler) *Poller) {
		if !ic.Enabled {
			return
		}
		bus, err := hw.OpenBus(ic.Address)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		drv, err := NewInertialDriver(bus, DefaultInertialRegisters, ic.Identity, ic.Scale)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		out = append(out, Scheduled{Poller: mk(drv, st, onFault), Hz: ic.Hz})
	}
	inertial("accelerometer", cfg.Accelerometer, NewAccelerometerPoller)
	inertial("gyroscope", cfg.Gyroscope, NewGyroscopePoller)

	if cfg.Barometer.Enabled {
		if bus, err := hw.OpenBus(cfg.Barometer.Address); err != nil {
			errs = append(errs, fmt.Errorf("barometer: %w", err))
		} else {
			drv := NewBarometerDriver(bus, DefaultBarometerRegisters, c, cfg.Barometer.ConversionTimeout)
			out = append(out, Scheduled{Poller: NewBarometerPoller(drv, st, onFault), Hz: cfg.Barometer.Hz})
		}
	}

	if cfg.Analog.Enabled {
		if bus, err := hw.OpenBus(cfg.Analog.Address); err != nil {
			errs = append(errs, fmt.Errorf("analog: %w", err))
		} else {
			drv := NewAnalogDriver(bus, c, cfg.Analog.ConversionTimeout)
			out = append(out, Scheduled{Poller: NewAnalogPoller(drv, st, onFault), Hz: cfg.Analog.Hz})
		}
	}

	if cfg.GPS.Enabled {
		if port, err := hw.OpenGPS(cfg.GPS.Port, cfg.GPS.Baud); err != nil {
			errs = append(errs, fmt.Errorf("gps: %w", err))
		} else {
			closers = append(closers, port)
			out = append(out, Scheduled{Poller: NewGPSPoller(NewNMEASource(port, c), st, onFault), Hz: cfg.GPS.Hz})
		}
	}

	return out, closers, errors.Join(errs...)
}

// simulatedGPSHz paces the simulated receiver, which unlike a real one never blocks
const simulatedGPSHz = 5

func simulated(cfg config.DevicesConfig, st *sensors.State, c clock.Clock, onFault FaultHandler) []Scheduled {
	gpsHz := cfg.GPS.Hz
	if gpsHz == 0 {
		gpsHz = simulatedGPSHz
	}
	return []Scheduled{
		{NewAccelerometerPoller(NewSimulatedInertial(c, cfg.Accelerometer.Scale, 2048), st, onFault), cfg.Accelerometer.Hz},
		{NewGyroscopePoller(NewSimulatedInertial(c, cfg.Gyroscope.Scale, 500), st, onFault), cfg.Gyroscope.Hz},
		{NewBarometerPoller(NewSimulatedBarometer(c), st, onFault), cfg.Barometer.Hz},
		{NewAnalogPoller(NewSimulatedAnalog(c), st, onFault), cfg.Analog.Hz},
		{NewGPSPoller(NewSimulatedGPS(c, 32.99, -106.97), st, onFault), gpsHz},
	}
}
