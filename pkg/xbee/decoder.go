// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"fmt"
	"time"
)

// Decoder implements the API frame decoder state machine
type Decoder struct {
	state     int
	length    int
	buffer    []byte
	rawBuffer []byte // raw bytes of the frame in progress, delimiter included
}

// NewDecoder creates a new API frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateStart,
		buffer:    make([]byte, 0, MaxFrameDataSize),
		rawBuffer: make([]byte, 0, MaxFrameDataSize+4),
	}
}

// Reset resets the decoder to wait for a start delimiter
func (d *Decoder) Reset() {
	d.state = stateStart
	d.length = 0
	d.buffer = d.buffer[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the raw bytes of the frame in progress
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error if the frame is dropped; the decoder is then back to waiting
// for a start delimiter and only considers bytes that arrive afterwards.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateStart:
		if b != StartDelimiter {
			return nil, nil
		}
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLengthHigh
		return nil, nil

	case stateLengthHigh:
		d.rawBuffer = append(d.rawBuffer, b)
		d.length = int(b) << 8
		d.state = stateLengthLow
		return nil, nil

	case stateLengthLow:
		d.rawBuffer = append(d.rawBuffer, b)
		d.length |= int(b)
		if d.length <= 0 || d.length > MaxFrameDataSize {
			length := d.length
			d.Reset()
			return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLength, length, MaxFrameDataSize)
		}
		d.state = stateFrameData
		return nil, nil

	case stateFrameData:
		d.rawBuffer = append(d.rawBuffer, b)
		d.buffer = append(d.buffer, b)
		if len(d.buffer) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		d.rawBuffer = append(d.rawBuffer, b)
		if !Verify(d.buffer, b) {
			expected := Checksum(d.buffer)
			d.Reset()
			return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksum, expected, b)
		}

		data := make([]byte, len(d.buffer))
		copy(data, d.buffer)
		frame := &Frame{
			data:      data,
			checksum:  b,
			timestamp: time.Now(),
		}

		d.Reset()
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}
