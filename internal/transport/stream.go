// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RetryBackoff is the pause after a failed read before retrying
const RetryBackoff = 250 * time.Millisecond

// Stream pumps bytes from a Connection to a callback on one goroutine
type Stream struct {
	conn    Connection
	logger  *zap.SugaredLogger
	backoff time.Duration

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps conn. A nil logger discards output.
func NewStream(conn Connection, logger *zap.SugaredLogger) *Stream {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Stream{conn: conn, logger: logger, backoff: RetryBackoff}
}

// Write sends p; concurrent writers are serialized
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrConnectionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(p)
}

// Close closes the connection, unblocking a pending Pump read
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Closed reports whether Close has been called
func (s *Stream) Closed() bool {
	return s.closed.Load()
}

// Pump reads until the stream is closed or ctx is done, passing every chunk to fn.
// Transient read errors are logged and retried after RetryBackoff. End of stream
// and ErrConnectionClosed are terminal and returned.
func (s *Stream) Pump(ctx context.Context, fn func([]byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	buf := make([]byte, 256)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == nil {
			continue
		}
		if s.closed.Load() {
			return nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
			return err
		}

		s.logger.Warnf("Read error: %v (retrying in %v)", err, s.backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff):
		}
	}
}
