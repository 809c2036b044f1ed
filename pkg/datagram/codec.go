// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package datagram

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// EncodeMessage encodes a message for a raw UDP datagram
func EncodeMessage(m *Message) []byte {
	return AppendMessage(make([]byte, 0, HeaderSize+len(m.payload)), m.sequence, m.id, m.payload)
}

// AppendMessage appends the raw datagram encoding of a message to dst
func AppendMessage(dst []byte, sequence uint32, id uint8, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, sequence)
	dst = append(dst, id)
	return append(dst, payload...)
}

// DecodeMessage decodes one raw UDP datagram. The datagram boundary is the
// message boundary; everything after the id is payload. The payload is copied,
// so the caller may reuse the datagram buffer.
func DecodeMessage(datagram []byte, source net.Addr) (*Message, error) {
	if len(datagram) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (header is %d)", ErrTruncated, len(datagram), HeaderSize)
	}

	payload := make([]byte, len(datagram)-HeaderSize)
	copy(payload, datagram[HeaderSize:])

	return &Message{
		sequence:  binary.BigEndian.Uint32(datagram[0:4]),
		id:        datagram[4],
		payload:   payload,
		source:    source,
		timestamp: time.Now(),
	}, nil
}
