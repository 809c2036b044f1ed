// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package datagram implements the message framing used between the flight
// computer and the ground station over UDP and over byte streams.
//
// Raw UDP messages rely on datagram boundaries:
//
//	u32 sequence (BE) | u8 id | payload...
//
// Stream messages carry their own synchronization marker and length:
//
//	0xF0 0x0D | u32 sequence (BE) | u8 id | u32 length (BE) | payload | u32 CRC32 (BE)
//
// The stream CRC32 is computed on receipt and exposed, but a mismatch does not
// cause the message to be dropped.
package datagram

import "errors"

// Stream synchronization marker
const (
	StartByte1 = 0xF0
	StartByte2 = 0x0D
)

// Field sizes
const (
	SequenceSize = 4
	IDSize       = 1
	LengthSize   = 4
	CRCSize      = 4
	HeaderSize   = SequenceSize + IDSize

	// DefaultMaxPayload bounds the stream length field when no limit is configured
	DefaultMaxPayload = 2048
)

// Message ids
const (
	IDSensorRequest  = 0x01 // payload: u8 mask
	IDSensorResponse = 0x02 // payload: u8 mask + sensor payload
	IDPing           = 0x03 // payload: opaque, echoed
	IDPong           = 0x04 // payload: echo of the ping payload
	IDSensorPush     = 0x05 // payload: as IDSensorResponse, unsolicited
)

// IsSensorReport reports whether id carries a masked sensor report
func IsSensorReport(id uint8) bool {
	return id == IDSensorResponse || id == IDSensorPush
}

// Decoder states (internal)
const (
	stateStart1 = iota
	stateStart2
	stateSequence
	stateID
	stateLength
	statePayload
	stateCRC
)

var (
	// ErrTruncated is returned when a datagram is shorter than the message header
	ErrTruncated = errors.New("truncated message")
	// ErrInvalidLength is returned when a stream length field is negative or too large
	ErrInvalidLength = errors.New("invalid message length")
)

// FormatMessageID returns the human-readable name for a message id
func FormatMessageID(id uint8) string {
	switch id {
	case IDSensorRequest:
		return "SENSOR_REQUEST"
	case IDSensorResponse:
		return "SENSOR_RESPONSE"
	case IDPing:
		return "PING"
	case IDPong:
		return "PONG"
	case IDSensorPush:
		return "SENSOR_PUSH"
	default:
		return "UNKNOWN"
	}
}
