// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// MaxDatagramSize is the receive buffer size for UDP sockets
const MaxDatagramSize = 65507

// UDPSocket is a UDP endpoint whose blocking receive is cancelled by Close
type UDPSocket struct {
	conn    *net.UDPConn
	logger  *zap.SugaredLogger
	backoff time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
}

// ListenUDP binds a UDP socket. Use ":0" for an ephemeral client port.
func ListenUDP(addr string, logger *zap.SugaredLogger) (*UDPSocket, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("invalid UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UDPSocket{conn: conn, logger: logger, backoff: RetryBackoff}, nil
}

// LocalAddr returns the bound address
func (u *UDPSocket) LocalAddr() *net.UDPAddr {
	return u.conn.LocalAddr().(*net.UDPAddr)
}

// SendTo sends one datagram to addr
func (u *UDPSocket) SendTo(p []byte, addr net.Addr) error {
	if u.closed.Load() {
		return ErrConnectionClosed
	}
	_, err := u.conn.WriteTo(p, addr)
	return err
}

// Receive blocks for one datagram. The returned slice aliases buf.
func (u *UDPSocket) Receive(buf []byte) ([]byte, net.Addr, error) {
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if u.closed.Load() {
			return nil, nil, ErrConnectionClosed
		}
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

// Close closes the socket, unblocking a pending Receive
func (u *UDPSocket) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.closed.Store(true)
		err = u.conn.Close()
	})
	return err
}

// Serve receives datagrams until the socket is closed or ctx is done, calling fn
// for each. fn must not retain data. Receive errors are logged and retried
// after RetryBackoff.
func (u *UDPSocket) Serve(ctx context.Context, fn func(data []byte, from net.Addr)) error {
	stop := context.AfterFunc(ctx, func() { _ = u.Close() })
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	for {
		data, addr, err := u.Receive(buf)
		if err != nil {
			if u.closed.Load() {
				return nil
			}
			u.logger.Warnf("UDP receive error: %v (retrying in %v)", err, u.backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(u.backoff):
			}
			continue
		}
		fn(data, addr)
	}
}
