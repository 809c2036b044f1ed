// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package radio drives the XTend serial radio: API frame decoding and
// dispatch, transparent-mode stream framing, and AT command configuration.
package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"go.uber.org/zap"
)

// Link runs the API frame decoder over a radio connection.
// Set the Dispatcher handlers before calling Run.
type Link struct {
	stream     *transport.Stream
	decoder    *xbee.Decoder
	stats      *xbee.Statistics
	logger     *zap.SugaredLogger
	Dispatcher xbee.Dispatcher

	sendMu   sync.Mutex
	frameIDs xbee.FrameIDs
}

// NewLink wraps conn. A nil logger discards output.
func NewLink(conn transport.Connection, logger *zap.SugaredLogger) *Link {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Link{
		stream:  transport.NewStream(conn, logger),
		decoder: xbee.NewDecoder(),
		stats:   xbee.NewStatistics(),
		logger:  logger,
	}
}

// Statistics returns the link statistics
func (l *Link) Statistics() *xbee.Statistics {
	return l.stats
}

// Run decodes frames until ctx is done or the connection closes
func (l *Link) Run(ctx context.Context) error {
	return l.stream.Pump(ctx, l.Feed)
}

// Feed passes raw bytes through the decoder and dispatches completed frames
func (l *Link) Feed(data []byte) {
	for _, b := range data {
		frame, err := l.decoder.DecodeByte(b)
		if err != nil {
			l.stats.Update(nil, err)
			l.logger.Warnf("Dropped frame: %v", err)
			continue
		}
		if frame == nil {
			continue
		}
		l.stats.Update(frame, nil)
		if err := l.Dispatcher.Dispatch(frame); err != nil {
			if errors.Is(err, xbee.ErrUnknownFrame) {
				l.logger.Debugf("Ignored frame: %v", err)
			} else {
				l.logger.Warnf("Malformed frame: %v", err)
			}
		}
	}
}

// Send transmits payload to dest and returns the frame id the TX status
// will carry. Pass ack=false to disable radio retries.
func (l *Link) Send(dest uint16, payload []byte, ack bool) (uint8, error) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	req := &xbee.TxRequest{
		FrameID:     l.frameIDs.Next(),
		Destination: dest,
		Payload:     payload,
	}
	if !ack {
		req.Options |= xbee.TxOptionDisableAck
	}
	frame, err := req.Encode()
	if err != nil {
		return 0, err
	}
	if _, err := l.stream.Write(frame); err != nil {
		return 0, fmt.Errorf("radio write: %w", err)
	}
	return req.FrameID, nil
}

// Close closes the connection, stopping Run
func (l *Link) Close() error {
	return l.stream.Close()
}
