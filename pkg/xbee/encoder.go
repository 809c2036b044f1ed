// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"encoding/binary"
	"fmt"
)

// EncodeFrame wraps frame data (identifier first) in the API frame envelope
func EncodeFrame(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > MaxFrameDataSize {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLength, len(data), MaxFrameDataSize)
	}

	frame := make([]byte, 0, len(data)+4)
	frame = append(frame, StartDelimiter)
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(data)))
	frame = append(frame, data...)
	frame = append(frame, Checksum(data))
	return frame, nil
}

// TxRequest asks the radio to transmit a payload to a 16-bit address
type TxRequest struct {
	FrameID     uint8 // 0 suppresses the TX status response
	Destination uint16
	Options     uint8
	Payload     []byte
}

// FrameData returns the TX request frame data:
// 0x01 | frame id | destination (BE) | options | payload
func (r *TxRequest) FrameData() []byte {
	data := make([]byte, 0, TxRequestHeaderSize+len(r.Payload))
	data = append(data, APITxRequest16, r.FrameID)
	data = binary.BigEndian.AppendUint16(data, r.Destination)
	data = append(data, r.Options)
	return append(data, r.Payload...)
}

// Encode encodes the TX request as a complete API frame
func (r *TxRequest) Encode() ([]byte, error) {
	if len(r.Payload) > MaxTxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(r.Payload), MaxTxPayloadSize)
	}
	return EncodeFrame(r.FrameData())
}

// FrameIDs hands out TX frame ids 1..255, skipping 0 so every request gets a status
type FrameIDs struct {
	next uint8
}

// Next returns the next frame id
func (f *FrameIDs) Next() uint8 {
	f.next++
	if f.next == 0 {
		f.next = 1
	}
	return f.next
}
