// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedInput is returned when a buffer is shorter than its mask requires
var ErrTruncatedInput = errors.New("truncated sensor payload")

// Encoded group sizes in bytes
const (
	analogSize       = AnalogChannels * 4 // f32 x4
	barometerSize    = 4 + 4              // i32 raw temperature, i32 raw pressure
	inertialSize     = 4 + 2*3            // f32 scale, i16 x/y/z
	gpsSize          = 8 * 3              // f64 lat/lon/alt
	maxEncodedSize   = analogSize + barometerSize + 2*inertialSize + gpsSize
	reportHeaderSize = 1

	// MaxReportSize is the size of a report carrying every group
	MaxReportSize = reportHeaderSize + maxEncodedSize
)

// EncodedSize returns the number of bytes Encode produces for a mask
func EncodedSize(m Mask) int {
	size := 0
	if m.Has(MaskAnalog) {
		size += analogSize
	}
	if m.Has(MaskBarometer) {
		size += barometerSize
	}
	if m.Has(MaskAccelerometer) {
		size += inertialSize
	}
	if m.Has(MaskGyroscope) {
		size += inertialSize
	}
	if m.Has(MaskGPS) {
		size += gpsSize
	}
	return size
}

// Encode serializes the groups selected by m in the fixed order
// ANALOG, BAROMETER, ACCELEROMETER, GYROSCOPE, GPS. All values are big-endian.
func Encode(s *State, m Mask) []byte {
	return AppendEncoded(make([]byte, 0, EncodedSize(m)), s, m)
}

// AppendEncoded appends the encoding of s under mask m to dst
func AppendEncoded(dst []byte, s *State, m Mask) []byte {
	if m.Has(MaskAnalog) {
		for ch := 0; ch < AnalogChannels; ch++ {
			dst = binary.BigEndian.AppendUint32(dst, s.analog[ch].Load())
		}
	}
	if m.Has(MaskBarometer) {
		dst = binary.BigEndian.AppendUint32(dst, uint32(s.Barometer.RawTemperature()))
		dst = binary.BigEndian.AppendUint32(dst, uint32(s.Barometer.RawPressure()))
	}
	if m.Has(MaskAccelerometer) {
		dst = appendInertial(dst, &s.Accelerometer)
	}
	if m.Has(MaskGyroscope) {
		dst = appendInertial(dst, &s.Gyroscope)
	}
	if m.Has(MaskGPS) {
		dst = binary.BigEndian.AppendUint64(dst, s.GPS.latitude.Load())
		dst = binary.BigEndian.AppendUint64(dst, s.GPS.longitude.Load())
		dst = binary.BigEndian.AppendUint64(dst, s.GPS.altitude.Load())
	}
	return dst
}

func appendInertial(dst []byte, i *InertialState) []byte {
	dst = binary.BigEndian.AppendUint32(dst, i.scale.Load())
	dst = binary.BigEndian.AppendUint16(dst, uint16(i.X()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(i.Y()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(i.Z()))
	return dst
}

// Decode reads the groups selected by m from buf into s, in the same order
// Encode writes them. Only the selected fields of s are modified. The buffer
// length is checked before anything is written, so a truncated buffer leaves s
// untouched. Returns the number of bytes consumed.
func Decode(buf []byte, m Mask, s *State) (int, error) {
	need := EncodedSize(m)
	if len(buf) < need {
		return 0, fmt.Errorf("%w: %d bytes for mask 0x%02X (need %d)", ErrTruncatedInput, len(buf), uint8(m), need)
	}

	off := 0
	if m.Has(MaskAnalog) {
		for ch := 0; ch < AnalogChannels; ch++ {
			s.analog[ch].Store(binary.BigEndian.Uint32(buf[off:]))
			off += 4
		}
	}
	if m.Has(MaskBarometer) {
		s.Barometer.SetRawTemperature(int32(binary.BigEndian.Uint32(buf[off:])))
		s.Barometer.SetRawPressure(int32(binary.BigEndian.Uint32(buf[off+4:])))
		off += barometerSize
	}
	if m.Has(MaskAccelerometer) {
		off += decodeInertial(buf[off:], &s.Accelerometer)
	}
	if m.Has(MaskGyroscope) {
		off += decodeInertial(buf[off:], &s.Gyroscope)
	}
	if m.Has(MaskGPS) {
		s.GPS.latitude.Store(binary.BigEndian.Uint64(buf[off:]))
		s.GPS.longitude.Store(binary.BigEndian.Uint64(buf[off+8:]))
		s.GPS.altitude.Store(binary.BigEndian.Uint64(buf[off+16:]))
		off += gpsSize
	}
	return off, nil
}

func decodeInertial(buf []byte, i *InertialState) int {
	i.scale.Store(binary.BigEndian.Uint32(buf))
	i.SetX(int16(binary.BigEndian.Uint16(buf[4:])))
	i.SetY(int16(binary.BigEndian.Uint16(buf[6:])))
	i.SetZ(int16(binary.BigEndian.Uint16(buf[8:])))
	return inertialSize
}

// EncodeReport builds a self-describing sensor report: the mask byte followed by
// the encoded groups. This is the payload of sensor responses on both links.
func EncodeReport(s *State, m Mask) []byte {
	dst := make([]byte, 0, reportHeaderSize+EncodedSize(m))
	dst = append(dst, byte(m))
	return AppendEncoded(dst, s, m)
}

// DecodeReport applies a report produced by EncodeReport to s and returns its mask
func DecodeReport(buf []byte, s *State) (Mask, error) {
	if len(buf) < reportHeaderSize {
		return 0, fmt.Errorf("%w: empty report", ErrTruncatedInput)
	}
	m := Mask(buf[0])
	if _, err := Decode(buf[reportHeaderSize:], m, s); err != nil {
		return m, err
	}
	return m, nil
}
