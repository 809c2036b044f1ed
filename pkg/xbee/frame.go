// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Frame represents a decoded API frame
type Frame struct {
	data      []byte // frame data, identifier first
	checksum  byte
	timestamp time.Time
}

// NewFrame creates a frame from frame data (identifier first)
func NewFrame(data []byte) *Frame {
	return &Frame{
		data:      data,
		checksum:  Checksum(data),
		timestamp: time.Now(),
	}
}

// Identifier returns the API identifier
func (f *Frame) Identifier() uint8 {
	if len(f.data) == 0 {
		return 0
	}
	return f.data[0]
}

// Data returns the complete frame data including the identifier
func (f *Frame) Data() []byte {
	return f.data
}

// Body returns the frame data after the identifier
func (f *Frame) Body() []byte {
	if len(f.data) == 0 {
		return nil
	}
	return f.data[1:]
}

// Checksum returns the frame's checksum byte
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Parse decodes the frame into its typed variant: *RxPacket, *TxStatus or
// *ModemStatus. Unrecognized identifiers return ErrUnknownFrame.
func (f *Frame) Parse() (any, error) {
	switch f.Identifier() {
	case APIRxPacket16:
		return ParseRxPacket(f)
	case APITxStatus:
		return ParseTxStatus(f)
	case APIModemStatus:
		return ParseModemStatus(f)
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownFrame, f.Identifier())
	}
}

// RxPacket is a received RF packet with a 16-bit source address
type RxPacket struct {
	Source  uint16
	RSSI    uint8 // magnitude of negative dBm
	Options uint8
	Data    []byte
}

// ParseRxPacket decodes an RX packet frame (0x81)
func ParseRxPacket(f *Frame) (*RxPacket, error) {
	body := f.Body()
	if f.Identifier() != APIRxPacket16 || len(body) < 4 {
		return nil, fmt.Errorf("%w: RX packet needs 5 bytes, got %d", ErrShortFrame, len(f.data))
	}
	return &RxPacket{
		Source:  binary.BigEndian.Uint16(body[0:2]),
		RSSI:    body[2],
		Options: body[3],
		Data:    body[4:],
	}, nil
}

// IsAck reports whether the sender requested an acknowledgement
func (p *RxPacket) IsAck() bool {
	return p.Options&RxOptionAck != 0
}

// IsBroadcast reports whether the packet was sent to the broadcast address
func (p *RxPacket) IsBroadcast() bool {
	return p.Options&RxOptionBroadcast != 0
}

// SignalDBm returns the received signal strength in dBm
func (p *RxPacket) SignalDBm() int {
	return -int(p.RSSI)
}

// TxStatus reports the outcome of a TX request
type TxStatus struct {
	FrameID uint8
	Status  uint8
}

// ParseTxStatus decodes a TX status frame (0x89)
func ParseTxStatus(f *Frame) (*TxStatus, error) {
	body := f.Body()
	if f.Identifier() != APITxStatus || len(body) < 2 {
		return nil, fmt.Errorf("%w: TX status needs 3 bytes, got %d", ErrShortFrame, len(f.data))
	}
	return &TxStatus{FrameID: body[0], Status: body[1]}, nil
}

// IsSuccess reports whether the transmission succeeded
func (s *TxStatus) IsSuccess() bool {
	return s.Status == TxStatusSuccess
}

// ModemStatus is an unsolicited RF module status report
type ModemStatus struct {
	Status uint8
}

// ParseModemStatus decodes a modem status frame (0x8A)
func ParseModemStatus(f *Frame) (*ModemStatus, error) {
	body := f.Body()
	if f.Identifier() != APIModemStatus || len(body) < 1 {
		return nil, fmt.Errorf("%w: modem status needs 2 bytes, got %d", ErrShortFrame, len(f.data))
	}
	return &ModemStatus{Status: body[0]}, nil
}
