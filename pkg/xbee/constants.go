// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xbee implements the XBee-style API frame protocol spoken by the
// XTend 900 radio in API mode (AP=1).
//
// Wire format:
//
//	0x7E | u16 length (BE) | frame data[length] | u8 checksum
//
// The first byte of the frame data is the API identifier. This package provides
// a byte-at-a-time decoder, the checksum, typed frame parsing, TX request
// encoding, dispatch to typed handlers, AT command strings and link statistics.
package xbee

import "errors"

// Framing
const (
	StartDelimiter = 0x7E

	// MaxFrameDataSize is the largest accepted length field
	MaxFrameDataSize = 2052

	// TxRequestHeaderSize is identifier + frame id + destination + options
	TxRequestHeaderSize = 5
	MaxTxPayloadSize    = MaxFrameDataSize - TxRequestHeaderSize
)

// API identifiers
const (
	APITxRequest16 = 0x01
	APIRxPacket16  = 0x81
	APITxStatus    = 0x89
	APIModemStatus = 0x8A
)

// Addresses
const (
	AddressBroadcast = 0xFFFF
)

// TX request options
const (
	TxOptionDisableAck = 0x01
)

// RX packet option bits
const (
	RxOptionAck       = 0x01
	RxOptionBroadcast = 0x02
)

// TX status values
const (
	TxStatusSuccess = 0x00
	TxStatusNoAck   = 0x01
	TxStatusCCAFail = 0x02
	TxStatusPurged  = 0x03
)

// Modem status values
const (
	ModemStatusHardwareReset = 0x00
	ModemStatusWatchdogReset = 0x01
)

// Decoder states (internal)
const (
	stateStart = iota
	stateLengthHigh
	stateLengthLow
	stateFrameData
	stateChecksum
)

var (
	// ErrInvalidLength is returned for a zero or oversized length field
	ErrInvalidLength = errors.New("invalid frame length")
	// ErrChecksum is returned when a frame fails checksum verification
	ErrChecksum = errors.New("checksum mismatch")
	// ErrUnknownFrame is returned when dispatching an unrecognized API identifier
	ErrUnknownFrame = errors.New("unknown API identifier")
	// ErrShortFrame is returned when frame data is too short for its type
	ErrShortFrame = errors.New("frame data too short")
	// ErrPayloadTooLarge is returned when a TX payload does not fit in one frame
	ErrPayloadTooLarge = errors.New("payload too large")
)
