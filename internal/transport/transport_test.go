// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ============================================================
// Mock Connection
// ============================================================

// mockConn replays scripted reads and records writes
type mockConn struct {
	mu     sync.Mutex
	reads  []mockRead
	writes bytes.Buffer
	closed chan struct{}
	once   sync.Once
}

type mockRead struct {
	data []byte
	err  error
}

func newMockConn(reads ...mockRead) *mockConn {
	return &mockConn{reads: reads, closed: make(chan struct{})}
}

func (m *mockConn) Read(p []byte) (int, error) {
	m.mu.Lock()
	if len(m.reads) > 0 {
		r := m.reads[0]
		m.reads = m.reads[1:]
		m.mu.Unlock()
		return copy(p, r.data), r.err
	}
	m.mu.Unlock()

	// Block like a real port until closed
	<-m.closed
	return 0, errors.New("use of closed port")
}

func (m *mockConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes.Write(p)
}

func (m *mockConn) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// ============================================================
// Stream Tests
// ============================================================

func TestStream_PumpRetriesTransientErrors(t *testing.T) {
	conn := newMockConn(
		mockRead{data: []byte{0x7E, 0x00}},
		mockRead{err: errors.New("framing error")},
		mockRead{data: []byte{0x03}},
	)
	s := NewStream(conn, zap.NewNop().Sugar())
	s.backoff = time.Millisecond

	var mu sync.Mutex
	var got []byte
	done := make(chan error, 1)
	go func() {
		done <- s.Pump(context.Background(), func(b []byte) {
			mu.Lock()
			got = append(got, b...)
			mu.Unlock()
		})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Close from another goroutine unblocks the pending read
	s.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Pump returned %v after Close, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Pump did not return after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(got, []byte{0x7E, 0x00, 0x03}) {
		t.Errorf("pumped % X", got)
	}
}

func TestStream_PumpTerminalErrors(t *testing.T) {
	for _, terminal := range []error{io.EOF, ErrConnectionClosed} {
		s := NewStream(newMockConn(mockRead{err: terminal}), nil)
		err := s.Pump(context.Background(), func([]byte) {})
		if !errors.Is(err, terminal) {
			t.Errorf("Pump error = %v, want %v", err, terminal)
		}
	}
}

func TestStream_PumpContextCancel(t *testing.T) {
	s := NewStream(newMockConn(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Pump(ctx, func([]byte) {}) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Pump error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Pump did not return after cancel")
	}
	if !s.Closed() {
		t.Error("stream not closed by cancel")
	}
}

func TestStream_WriteAfterClose(t *testing.T) {
	conn := newMockConn()
	s := NewStream(conn, nil)
	if _, err := s.Write([]byte("AT")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	s.Close()
	if _, err := s.Write([]byte("CN")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Write after Close = %v, want ErrConnectionClosed", err)
	}
	if conn.writes.String() != "AT" {
		t.Errorf("writes = %q", conn.writes.String())
	}
}

// ============================================================
// UDP Tests
// ============================================================

func TestUDPSocket_SendReceive(t *testing.T) {
	server, err := ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer server.Close()
	client, err := ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer client.Close()

	if err := client.SendTo([]byte("ping"), server.LocalAddr()); err != nil {
		t.Fatalf("SendTo error: %v", err)
	}

	buf := make([]byte, MaxDatagramSize)
	data, from, err := server.Receive(buf)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if string(data) != "ping" {
		t.Errorf("Receive = %q", data)
	}
	if from.(*net.UDPAddr).Port != client.LocalAddr().Port {
		t.Errorf("from = %v, want port %d", from, client.LocalAddr().Port)
	}
}

func TestUDPSocket_CloseCancelsServe(t *testing.T) {
	sock, err := ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sock.Serve(context.Background(), func([]byte, net.Addr) {}) }()

	time.Sleep(10 * time.Millisecond)
	sock.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve blocked after Close")
	}

	if err := sock.SendTo([]byte("x"), sock.LocalAddr()); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("SendTo after Close = %v", err)
	}
}

func TestUDPSocket_ServeContextCancel(t *testing.T) {
	sock, err := ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- sock.Serve(ctx, func(data []byte, _ net.Addr) { received <- string(data) })
	}()

	sender, err := ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer sender.Close()
	sender.SendTo([]byte("hello"), sock.LocalAddr())

	select {
	case got := <-received:
		if got != "hello" {
			t.Errorf("received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("datagram not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenUDP_InvalidAddress(t *testing.T) {
	if _, err := ListenUDP("not-an-address", nil); err == nil {
		t.Error("expected error for invalid address")
	}
}
