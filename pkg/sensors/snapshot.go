// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

// Snapshot is a plain copy of State, used by listeners, the recorder and the
// monitor. It is read field by field and inherits State's per-field consistency.
type Snapshot struct {
	Analog    [AnalogChannels]float32 `cbor:"1,keyasint" json:"analog"`
	Barometer BarometerReading        `cbor:"2,keyasint" json:"barometer"`
	Accel     InertialReading         `cbor:"3,keyasint" json:"accelerometer"`
	Gyro      InertialReading         `cbor:"4,keyasint" json:"gyroscope"`
	GPS       GPSReading              `cbor:"5,keyasint" json:"gps"`
}

// BarometerReading is a copy of BarometerState
type BarometerReading struct {
	RawTemperature int32 `cbor:"1,keyasint" json:"raw_temperature"`
	RawPressure    int32 `cbor:"2,keyasint" json:"raw_pressure"`
}

// InertialReading is a copy of InertialState
type InertialReading struct {
	Scale float32 `cbor:"1,keyasint" json:"scale"`
	X     int16   `cbor:"2,keyasint" json:"x"`
	Y     int16   `cbor:"3,keyasint" json:"y"`
	Z     int16   `cbor:"4,keyasint" json:"z"`
}

// GPSReading is a copy of GPSState
type GPSReading struct {
	Fix        int32   `cbor:"1,keyasint" json:"fix"`
	Satellites int32   `cbor:"2,keyasint" json:"satellites"`
	Latitude   float64 `cbor:"3,keyasint" json:"latitude"`
	Longitude  float64 `cbor:"4,keyasint" json:"longitude"`
	Altitude   float64 `cbor:"5,keyasint" json:"altitude"`
}

// Snapshot copies the current state
func (s *State) Snapshot() Snapshot {
	var snap Snapshot
	for i := range snap.Analog {
		snap.Analog[i] = s.Analog(i)
	}
	snap.Barometer = BarometerReading{
		RawTemperature: s.Barometer.RawTemperature(),
		RawPressure:    s.Barometer.RawPressure(),
	}
	snap.Accel = s.Accelerometer.reading()
	snap.Gyro = s.Gyroscope.reading()
	snap.GPS = GPSReading{
		Fix:        s.GPS.Fix(),
		Satellites: s.GPS.Satellites(),
		Latitude:   s.GPS.Latitude(),
		Longitude:  s.GPS.Longitude(),
		Altitude:   s.GPS.Altitude(),
	}
	return snap
}

// Restore writes every field of the snapshot back into the state
func (s *State) Restore(snap Snapshot) {
	for i, v := range snap.Analog {
		s.SetAnalog(i, v)
	}
	s.Barometer.SetRawTemperature(snap.Barometer.RawTemperature)
	s.Barometer.SetRawPressure(snap.Barometer.RawPressure)
	s.Accelerometer.restore(snap.Accel)
	s.Gyroscope.restore(snap.Gyro)
	s.GPS.SetFix(snap.GPS.Fix)
	s.GPS.SetSatellites(snap.GPS.Satellites)
	s.GPS.SetLatitude(snap.GPS.Latitude)
	s.GPS.SetLongitude(snap.GPS.Longitude)
	s.GPS.SetAltitude(snap.GPS.Altitude)
}

func (i *InertialState) reading() InertialReading {
	return InertialReading{Scale: i.Scale(), X: i.X(), Y: i.Y(), Z: i.Z()}
}

func (i *InertialState) restore(r InertialReading) {
	i.SetScale(r.Scale)
	i.SetAxes(r.X, r.Y, r.Z)
}
