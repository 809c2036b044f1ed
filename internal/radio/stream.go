// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"go.uber.org/zap"
)

// StreamLink carries start-byte framed messages over a radio in transparent
// mode, where the radio forwards raw bytes.
type StreamLink struct {
	stream  *transport.Stream
	decoder *datagram.StreamDecoder
	encoder *datagram.StreamEncoder
	logger  *zap.SugaredLogger

	writeMu  sync.Mutex
	dropped  atomic.Uint64
	badCRC   atomic.Uint64
	received atomic.Uint64
}

// NewStreamLink wraps conn
func NewStreamLink(conn transport.Connection, maxPayload int, logger *zap.SugaredLogger) *StreamLink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StreamLink{
		stream:  transport.NewStream(conn, logger),
		decoder: datagram.NewStreamDecoder(maxPayload),
		encoder: datagram.NewStreamEncoder(),
		logger:  logger,
	}
}

// Run decodes messages until ctx is done or the connection closes
func (s *StreamLink) Run(ctx context.Context, handler func(*datagram.Message)) error {
	return s.stream.Pump(ctx, func(data []byte) {
		s.Feed(data, handler)
	})
}

// Feed decodes data and passes each complete message to handler
func (s *StreamLink) Feed(data []byte, handler func(*datagram.Message)) {
	for _, b := range data {
		m, err := s.decoder.DecodeByte(b)
		if err != nil {
			s.dropped.Add(1)
			s.logger.Debugf("Dropped stream message: %v", err)
			continue
		}
		if m == nil {
			continue
		}
		s.received.Add(1)
		if !m.ChecksumOK() {
			s.badCRC.Add(1)
			s.logger.Debugf("Message seq=%d CRC 0x%08X, computed 0x%08X (accepted)", m.Sequence(), m.CRC(), m.ComputedCRC())
		}
		handler(m)
	}
}

// SendMessage frames and writes one message
func (s *StreamLink) SendMessage(seq uint32, id uint8, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.stream.Write(s.encoder.Append(nil, seq, id, payload)); err != nil {
		return fmt.Errorf("radio write: %w", err)
	}
	return nil
}

// Counts returns messages received, dropped by the decoder, and received with
// a CRC that did not match
func (s *StreamLink) Counts() (received, dropped, badCRC uint64) {
	return s.received.Load(), s.dropped.Load(), s.badCRC.Load()
}

// Close closes the connection, stopping Run
func (s *StreamLink) Close() error {
	return s.stream.Close()
}
