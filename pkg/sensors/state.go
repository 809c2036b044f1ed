// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sensors holds the process-wide sensor state of the flight computer and
// the fixed-layout binary encoding used to ship it over the telemetry link.
//
// Every scalar in State is stored in its own atomic. Writers update fields one at a
// time, so a concurrent reader may observe a group (for example the three
// accelerometer axes) where some fields are from the newest sample and others are
// from the previous one. Readers that need a group-consistent view must tolerate
// this; there is no lock covering a whole group.
package sensors

import (
	"math"
	"sync/atomic"
)

// AnalogChannels is the number of analog pressure channels
const AnalogChannels = 4

// State is the live sensor state. The zero value is ready to use.
type State struct {
	analog [AnalogChannels]atomic.Uint32 // float32 bits, millivolts

	Barometer     BarometerState
	Accelerometer InertialState
	Gyroscope     InertialState
	GPS           GPSState
}

// NewState creates a zeroed sensor state
func NewState() *State {
	return &State{}
}

// Analog returns the latest reading of an analog channel in millivolts
func (s *State) Analog(channel int) float32 {
	return math.Float32frombits(s.analog[channel].Load())
}

// SetAnalog stores an analog channel reading in millivolts
func (s *State) SetAnalog(channel int, millivolts float32) {
	s.analog[channel].Store(math.Float32bits(millivolts))
}

// BarometerState holds the uncompensated barometer conversions
type BarometerState struct {
	rawTemperature atomic.Int32
	rawPressure    atomic.Int32
}

func (b *BarometerState) RawTemperature() int32 { return b.rawTemperature.Load() }
func (b *BarometerState) RawPressure() int32    { return b.rawPressure.Load() }

func (b *BarometerState) SetRawTemperature(v int32) { b.rawTemperature.Store(v) }
func (b *BarometerState) SetRawPressure(v int32)    { b.rawPressure.Store(v) }

// InertialState holds one three-axis sensor (accelerometer or gyroscope).
// Axes are raw counts; Scale converts counts to physical units.
type InertialState struct {
	scale atomic.Uint32 // float32 bits
	x     atomic.Int32
	y     atomic.Int32
	z     atomic.Int32
}

func (i *InertialState) Scale() float32 { return math.Float32frombits(i.scale.Load()) }
func (i *InertialState) X() int16       { return int16(i.x.Load()) }
func (i *InertialState) Y() int16       { return int16(i.y.Load()) }
func (i *InertialState) Z() int16       { return int16(i.z.Load()) }

func (i *InertialState) SetScale(v float32) { i.scale.Store(math.Float32bits(v)) }
func (i *InertialState) SetX(v int16)       { i.x.Store(int32(v)) }
func (i *InertialState) SetY(v int16)       { i.y.Store(int32(v)) }
func (i *InertialState) SetZ(v int16)       { i.z.Store(int32(v)) }

// SetAxes stores all three axes. The stores are independent; a concurrent
// reader can see a mix of old and new axes.
func (i *InertialState) SetAxes(x, y, z int16) {
	i.SetX(x)
	i.SetY(y)
	i.SetZ(z)
}

// GPSState holds the latest GPS fix
type GPSState struct {
	fix        atomic.Int32
	satellites atomic.Int32
	latitude   atomic.Uint64 // float64 bits
	longitude  atomic.Uint64
	altitude   atomic.Uint64
}

func (g *GPSState) Fix() int32         { return g.fix.Load() }
func (g *GPSState) Satellites() int32  { return g.satellites.Load() }
func (g *GPSState) Latitude() float64  { return math.Float64frombits(g.latitude.Load()) }
func (g *GPSState) Longitude() float64 { return math.Float64frombits(g.longitude.Load()) }
func (g *GPSState) Altitude() float64  { return math.Float64frombits(g.altitude.Load()) }

func (g *GPSState) SetFix(v int32)         { g.fix.Store(v) }
func (g *GPSState) SetSatellites(v int32)  { g.satellites.Store(v) }
func (g *GPSState) SetLatitude(v float64)  { g.latitude.Store(math.Float64bits(v)) }
func (g *GPSState) SetLongitude(v float64) { g.longitude.Store(math.Float64bits(v)) }
func (g *GPSState) SetAltitude(v float64)  { g.altitude.Store(math.Float64bits(v)) }
