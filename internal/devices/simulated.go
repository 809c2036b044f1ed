// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/sensors"
)

// Simulated sources stand in for hardware on the bench. Values are smooth
// functions of clock time so the ground side shows moving data.

type simulation struct {
	clock clock.Clock
	start time.Time
}

func newSimulation(c clock.Clock) simulation {
	if c == nil {
		c = clock.System()
	}
	return simulation{clock: c, start: c.Now()}
}

func (s simulation) seconds() float64 {
	return s.clock.Now().Sub(s.start).Seconds()
}

// SimulatedInertial oscillates each axis at a different frequency
type SimulatedInertial struct {
	sim       simulation
	scale     float32
	amplitude float64
}

// NewSimulatedInertial creates a simulated accelerometer or gyroscope
func NewSimulatedInertial(c clock.Clock, scale float32, amplitude int16) *SimulatedInertial {
	return &SimulatedInertial{sim: newSimulation(c), scale: scale, amplitude: float64(amplitude)}
}

func (s *SimulatedInertial) ReadInertial(ctx context.Context) (InertialSample, error) {
	t := s.sim.seconds()
	return InertialSample{
		Scale: s.scale,
		X:     int16(s.amplitude * math.Sin(2*math.Pi*0.5*t)),
		Y:     int16(s.amplitude * math.Sin(2*math.Pi*0.3*t)),
		Z:     int16(s.amplitude * math.Cos(2*math.Pi*0.1*t)),
	}, nil
}

// SimulatedBarometer follows a slow pressure drop. With ZeroEvery > 0, every
// ZeroEvery-th read reports an ADC zero fault.
type SimulatedBarometer struct {
	sim       simulation
	ZeroEvery uint64
	reads     atomic.Uint64
}

// NewSimulatedBarometer creates a simulated barometer
func NewSimulatedBarometer(c clock.Clock) *SimulatedBarometer {
	return &SimulatedBarometer{sim: newSimulation(c)}
}

func (s *SimulatedBarometer) ReadBarometer(ctx context.Context) (BarometerSample, error) {
	n := s.reads.Add(1)
	if s.ZeroEvery > 0 && n%s.ZeroEvery == 0 {
		return BarometerSample{}, &Fault{Kind: FaultADCZero, Detail: "simulated zero conversion"}
	}
	t := s.sim.seconds()
	return BarometerSample{
		RawTemperature: 27898 + int32(50*math.Sin(t/10)),
		RawPressure:    int32(math.Max(1, 101325-12*t)),
	}, nil
}

// SimulatedAnalog produces four phase-shifted channels between 500 and 4500 mV
type SimulatedAnalog struct {
	sim simulation
}

// NewSimulatedAnalog creates a simulated ADC
func NewSimulatedAnalog(c clock.Clock) *SimulatedAnalog {
	return &SimulatedAnalog{sim: newSimulation(c)}
}

func (s *SimulatedAnalog) ReadAnalog(ctx context.Context) ([sensors.AnalogChannels]float32, error) {
	var out [sensors.AnalogChannels]float32
	t := s.sim.seconds()
	for ch := range out {
		phase := float64(ch) * math.Pi / 2
		out[ch] = float32(2500 + 2000*math.Sin(t+phase))
	}
	return out, nil
}

// SimulatedGPS drifts east from a launch site while climbing
type SimulatedGPS struct {
	sim       simulation
	latitude  float64
	longitude float64
}

// NewSimulatedGPS creates a simulated receiver starting at lat/lon
func NewSimulatedGPS(c clock.Clock, latitude, longitude float64) *SimulatedGPS {
	return &SimulatedGPS{sim: newSimulation(c), latitude: latitude, longitude: longitude}
}

func (s *SimulatedGPS) ReadFix(ctx context.Context) (GPSFix, error) {
	t := s.sim.seconds()
	return GPSFix{
		Fix:        1,
		Satellites: 9,
		Latitude:   s.latitude,
		Longitude:  s.longitude + 0.00001*t,
		Altitude:   1400 + 5*t,
	}, nil
}
