// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package datagram

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"
)

// StreamDecoder implements the stream message decoder state machine.
//
// The two start bytes are matched one at a time. A byte that does not match
// the expected start byte abandons the current attempt and is not itself
// reconsidered as a new first start byte, so F0 F0 0D does not synchronize.
type StreamDecoder struct {
	state      int
	maxPayload int
	checksum   bool

	field      uint32 // big-endian accumulator for multi-byte fields
	fieldBytes int
	length     int
	message    *Message
}

// NewStreamDecoder creates a stream decoder. Length fields above maxPayload
// invalidate the message; maxPayload <= 0 selects DefaultMaxPayload.
func NewStreamDecoder(maxPayload int) *StreamDecoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &StreamDecoder{
		state:      stateStart1,
		maxPayload: maxPayload,
		checksum:   true,
	}
}

// WithoutChecksum configures the decoder for streams that omit the trailing CRC32
func (d *StreamDecoder) WithoutChecksum() *StreamDecoder {
	d.checksum = false
	return d
}

// Reset returns the decoder to scanning for a start marker
func (d *StreamDecoder) Reset() {
	d.state = stateStart1
	d.field = 0
	d.fieldBytes = 0
	d.length = 0
	d.message = nil
}

// accumulate adds a byte to the current big-endian field and reports whether
// all size bytes have been read
func (d *StreamDecoder) accumulate(b byte, size int) bool {
	d.field = d.field<<8 | uint32(b)
	d.fieldBytes++
	return d.fieldBytes >= size
}

func (d *StreamDecoder) nextField(state int) {
	d.state = state
	d.field = 0
	d.fieldBytes = 0
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed message, or nil if no message is complete yet.
// Returns an error when a length field invalidates the current message; the
// decoder has already been reset and the next byte starts a new scan.
func (d *StreamDecoder) DecodeByte(b byte) (*Message, error) {
	switch d.state {
	case stateStart1:
		if b == StartByte1 {
			d.state = stateStart2
		}
		return nil, nil

	case stateStart2:
		if b != StartByte2 {
			d.Reset()
			return nil, nil
		}
		d.message = &Message{}
		d.nextField(stateSequence)
		return nil, nil

	case stateSequence:
		if d.accumulate(b, SequenceSize) {
			d.message.sequence = d.field
			d.nextField(stateID)
		}
		return nil, nil

	case stateID:
		d.message.id = b
		d.nextField(stateLength)
		return nil, nil

	case stateLength:
		if !d.accumulate(b, LengthSize) {
			return nil, nil
		}
		length := int32(d.field)
		if length < 0 || int(length) > d.maxPayload {
			d.Reset()
			return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLength, length, d.maxPayload)
		}
		d.length = int(length)
		d.message.payload = make([]byte, 0, d.length)
		if d.length == 0 {
			return d.afterPayload(), nil
		}
		d.nextField(statePayload)
		return nil, nil

	case statePayload:
		d.message.payload = append(d.message.payload, b)
		if len(d.message.payload) >= d.length {
			return d.afterPayload(), nil
		}
		return nil, nil

	case stateCRC:
		if !d.accumulate(b, CRCSize) {
			return nil, nil
		}
		d.message.hasCRC = true
		d.message.crc = d.field
		d.message.computedCRC = crc32.ChecksumIEEE(d.message.payload)
		return d.finish(), nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

func (d *StreamDecoder) afterPayload() *Message {
	if d.checksum {
		d.nextField(stateCRC)
		return nil
	}
	return d.finish()
}

func (d *StreamDecoder) finish() *Message {
	message := d.message
	message.timestamp = time.Now()
	d.Reset()
	return message
}

// ReadMessage feeds bytes from r into the decoder until a message completes.
// Invalid lengths are skipped; scanning continues with the following bytes.
// Returns the reader's error (io.EOF at end of stream) if no message completes.
func (d *StreamDecoder) ReadMessage(r io.ByteReader) (*Message, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		message, err := d.DecodeByte(b)
		if err != nil {
			continue
		}
		if message != nil {
			return message, nil
		}
	}
}

// StreamEncoder encodes messages for byte-stream transports
type StreamEncoder struct {
	checksum bool
}

// NewStreamEncoder creates a stream encoder that appends a CRC32 trailer
func NewStreamEncoder() *StreamEncoder {
	return &StreamEncoder{checksum: true}
}

// WithoutChecksum omits the CRC32 trailer
func (e *StreamEncoder) WithoutChecksum() *StreamEncoder {
	e.checksum = false
	return e
}

// Encode encodes a message in stream format
func (e *StreamEncoder) Encode(m *Message) []byte {
	return e.Append(nil, m.sequence, m.id, m.payload)
}

// Append appends the stream encoding of a message to dst
func (e *StreamEncoder) Append(dst []byte, sequence uint32, id uint8, payload []byte) []byte {
	dst = append(dst, StartByte1, StartByte2)
	dst = binary.BigEndian.AppendUint32(dst, sequence)
	dst = append(dst, id)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, payload...)
	if e.checksum {
		dst = binary.BigEndian.AppendUint32(dst, crc32.ChecksumIEEE(payload))
	}
	return dst
}

// EncodeStream encodes a message in stream format with a CRC32 trailer
func EncodeStream(sequence uint32, id uint8, payload []byte) []byte {
	return NewStreamEncoder().Append(nil, sequence, id, payload)
}
