// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flight

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/queue"
	"go.uber.org/zap"
)

// Server answers UDP requests. One goroutine receives datagrams into a
// drop-oldest queue; another answers them, so a slow reply never stalls the
// socket and a burst leaves only the newest requests.
type Server struct {
	sock      *transport.UDPSocket
	responder *Responder
	queue     *queue.Ring[*datagram.Message]
	logger    *zap.SugaredLogger

	received  atomic.Uint64
	malformed atomic.Uint64
	answered  atomic.Uint64
}

// NewServer serves requests arriving on sock
func NewServer(sock *transport.UDPSocket, responder *Responder, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		sock:      sock,
		responder: responder,
		queue:     queue.New[*datagram.Message](queue.DefaultCapacity),
		logger:    logger,
	}
}

// Run serves until ctx is done or the socket is closed
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.queue.Close()
		if err := s.sock.Serve(ctx, s.enqueue); err != nil {
			s.logger.Errorf("UDP receive loop stopped: %v", err)
		}
	}()

	s.logger.Infof("Serving sensor requests on %s", s.sock.LocalAddr())
	for {
		m, err := s.queue.Poll(ctx)
		if err != nil {
			cancel()
			wg.Wait()
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.answer(m)
	}
}

func (s *Server) enqueue(data []byte, from net.Addr) {
	m, err := datagram.DecodeMessage(data, from)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Debugf("Dropped datagram from %s: %v", from, err)
		return
	}
	s.received.Add(1)
	if s.queue.Offer(m) {
		s.logger.Debugf("Request queue full, dropped oldest request")
	}
}

func (s *Server) answer(m *datagram.Message) {
	id, payload, ok := s.responder.Respond(m)
	if !ok {
		s.logger.Debugf("No reply for %s from %s", datagram.FormatMessageID(m.ID()), m.Source())
		return
	}
	reply := datagram.AppendMessage(nil, m.Sequence(), id, payload)
	if err := s.sock.SendTo(reply, m.Source()); err != nil {
		s.logger.Warnf("Reply to %s failed: %v", m.Source(), err)
		return
	}
	s.answered.Add(1)
}

// Counts returns requests received, datagrams too short to decode, and replies sent
func (s *Server) Counts() (received, malformed, answered uint64) {
	return s.received.Load(), s.malformed.Load(), s.answered.Load()
}

// Dropped returns how many requests were discarded by the full queue
func (s *Server) Dropped() uint64 {
	return s.queue.Dropped()
}
