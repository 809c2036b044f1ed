// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"errors"

	"github.com/Thermoquad/telelink/pkg/sensors"
)

// InertialSample is one accelerometer or gyroscope reading
type InertialSample struct {
	Scale   float32
	X, Y, Z int16
}

// BarometerSample holds the raw temperature and pressure conversions
type BarometerSample struct {
	RawTemperature int32
	RawPressure    int32
}

// GPSFix is one position solution
type GPSFix struct {
	Fix        int32
	Satellites int32
	Latitude   float64
	Longitude  float64
	Altitude   float64
}

// InertialSource produces inertial readings
type InertialSource interface {
	ReadInertial(ctx context.Context) (InertialSample, error)
}

// BarometerSource produces barometer readings
type BarometerSource interface {
	ReadBarometer(ctx context.Context) (BarometerSample, error)
}

// AnalogSource produces the analog channels in millivolts
type AnalogSource interface {
	ReadAnalog(ctx context.Context) ([sensors.AnalogChannels]float32, error)
}

// GPSSource produces position fixes
type GPSSource interface {
	ReadFix(ctx context.Context) (GPSFix, error)
}

// Poller is a scheduler device that reads a source into the sensor state
type Poller struct {
	name    string
	poll    func(ctx context.Context) error
	onFault FaultHandler
}

// Name returns the device name
func (p *Poller) Name() string { return p.name }

// Loop performs one read. Faults go to the fault handler and are not errors.
func (p *Poller) Loop(ctx context.Context) error {
	err := p.poll(ctx)
	var fault *Fault
	if errors.As(err, &fault) {
		f := *fault
		if f.Device == "" {
			f.Device = p.name
		}
		p.onFault(f)
		return nil
	}
	return err
}

func newPoller(name string, onFault FaultHandler, poll func(ctx context.Context) error) *Poller {
	if onFault == nil {
		onFault = func(Fault) {}
	}
	return &Poller{name: name, poll: poll, onFault: onFault}
}

func inertialPoller(name string, src InertialSource, st *sensors.InertialState, onFault FaultHandler) *Poller {
	return newPoller(name, onFault, func(ctx context.Context) error {
		s, err := src.ReadInertial(ctx)
		if err != nil {
			return err
		}
		st.SetScale(s.Scale)
		st.SetAxes(s.X, s.Y, s.Z)
		return nil
	})
}

// NewAccelerometerPoller polls src into the accelerometer group
func NewAccelerometerPoller(src InertialSource, st *sensors.State, onFault FaultHandler) *Poller {
	return inertialPoller("accelerometer", src, &st.Accelerometer, onFault)
}

// NewGyroscopePoller polls src into the gyroscope group
func NewGyroscopePoller(src InertialSource, st *sensors.State, onFault FaultHandler) *Poller {
	return inertialPoller("gyroscope", src, &st.Gyroscope, onFault)
}

// NewBarometerPoller polls src into the barometer group
func NewBarometerPoller(src BarometerSource, st *sensors.State, onFault FaultHandler) *Poller {
	return newPoller("barometer", onFault, func(ctx context.Context) error {
		s, err := src.ReadBarometer(ctx)
		if err != nil {
			return err
		}
		st.Barometer.SetRawTemperature(s.RawTemperature)
		st.Barometer.SetRawPressure(s.RawPressure)
		return nil
	})
}

// NewAnalogPoller polls src into the analog channels
func NewAnalogPoller(src AnalogSource, st *sensors.State, onFault FaultHandler) *Poller {
	return newPoller("analog", onFault, func(ctx context.Context) error {
		mv, err := src.ReadAnalog(ctx)
		if err != nil {
			return err
		}
		for ch, v := range mv {
			st.SetAnalog(ch, v)
		}
		return nil
	})
}

// NewGPSPoller polls src into the GPS group
func NewGPSPoller(src GPSSource, st *sensors.State, onFault FaultHandler) *Poller {
	return newPoller("gps", onFault, func(ctx context.Context) error {
		fix, err := src.ReadFix(ctx)
		if err != nil {
			return err
		}
		st.GPS.SetFix(fix.Fix)
		st.GPS.SetSatellites(fix.Satellites)
		st.GPS.SetLatitude(fix.Latitude)
		st.GPS.SetLongitude(fix.Longitude)
		st.GPS.SetAltitude(fix.Altitude)
		return nil
	})
}
