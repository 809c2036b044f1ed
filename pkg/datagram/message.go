// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package datagram

import (
	"net"
	"time"
)

// Message is one decoded protocol message
type Message struct {
	sequence  uint32
	id        uint8
	payload   []byte
	source    net.Addr
	timestamp time.Time

	// Stream variant only
	hasCRC      bool
	crc         uint32
	computedCRC uint32
}

// NewMessage creates a message for transmission
func NewMessage(sequence uint32, id uint8, payload []byte) *Message {
	return &Message{
		sequence:  sequence,
		id:        id,
		payload:   payload,
		timestamp: time.Now(),
	}
}

// Sequence returns the sender's sequence number
func (m *Message) Sequence() uint32 {
	return m.sequence
}

// ID returns the message id
func (m *Message) ID() uint8 {
	return m.id
}

// Payload returns the message payload
func (m *Message) Payload() []byte {
	return m.payload
}

// Source returns the sender address, or nil when the transport has none
func (m *Message) Source() net.Addr {
	return m.source
}

// Timestamp returns the decode (or creation) time
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// HasCRC reports whether the message carried a CRC field
func (m *Message) HasCRC() bool {
	return m.hasCRC
}

// CRC returns the transmitted CRC32
func (m *Message) CRC() uint32 {
	return m.crc
}

// ComputedCRC returns the CRC32 computed over the received payload
func (m *Message) ComputedCRC() uint32 {
	return m.computedCRC
}

// ChecksumOK reports whether the transmitted CRC matched. Messages are
// accepted regardless; this is informational.
func (m *Message) ChecksumOK() bool {
	return !m.hasCRC || m.crc == m.computedCRC
}
