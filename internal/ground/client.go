// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ground

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/queue"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the sensor request period
	DefaultInterval = 100 * time.Millisecond
	// DefaultPingEvery is how many request ticks pass between pings
	DefaultPingEvery = 10
)

// ClientOptions configures a Client. UDP traffic is not radio activity, so
// the client never touches the radio watchdog.
type ClientOptions struct {
	Interval  time.Duration // between sensor requests
	Mask      sensors.Mask  // initial mask, see SetMask
	PingEvery int           // ticks between pings, <= 0 selects DefaultPingEvery
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
}

// Client polls a flight computer over UDP. It sends a sensor request every
// interval and a ping every PingEvery requests, and applies responses to the
// local state.
type Client struct {
	sock     *transport.UDPSocket
	server   net.Addr
	opts     ClientOptions
	reports  *reports
	queue    *queue.Ring[*datagram.Message]
	mask     atomic.Uint32
	sequence atomic.Uint32
	rtt      atomic.Int64
	pongs    atomic.Uint64
}

// NewClient polls server through sock and applies reports to state
func NewClient(sock *transport.UDPSocket, server net.Addr, state *sensors.State, listener Listener, opts ClientOptions) *Client {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.PingEvery <= 0 {
		opts.PingEvery = DefaultPingEvery
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	c := &Client{
		sock:    sock,
		server:  server,
		opts:    opts,
		reports: newReports(state, listener, opts.Logger),
		queue:   queue.New[*datagram.Message](queue.DefaultCapacity),
	}
	c.mask.Store(uint32(opts.Mask))
	return c
}

// SetMask changes the groups requested from the next request on
func (c *Client) SetMask(m sensors.Mask) {
	c.mask.Store(uint32(m))
}

// Mask returns the requested groups
func (c *Client) Mask() sensors.Mask {
	return sensors.Mask(c.mask.Load())
}

// Run polls until ctx is done or the socket is closed
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer c.queue.Close()
		if err := c.sock.Serve(ctx, c.enqueue); err != nil {
			c.opts.Logger.Errorf("UDP receive loop stopped: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		c.requestLoop(ctx)
	}()

	c.opts.Logger.Infof("Polling %s every %v (mask %s)", c.server, c.opts.Interval, c.Mask())
	for {
		m, err := c.queue.Poll(ctx)
		if err != nil {
			cancel()
			wg.Wait()
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(m)
	}
}

func (c *Client) requestLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	for tick := 1; ; tick++ {
		if err := c.SendRequest(); err != nil {
			c.opts.Logger.Warnf("Sensor request failed: %v", err)
		}
		if tick%c.opts.PingEvery == 0 {
			if err := c.SendPing(); err != nil {
				c.opts.Logger.Warnf("Ping failed: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SendRequest sends one sensor request with the configured mask
func (c *Client) SendRequest() error {
	return c.send(datagram.IDSensorRequest, []byte{byte(c.Mask())})
}

// SendPing sends a ping carrying the current time for round trip measurement
func (c *Client) SendPing() error {
	payload := binary.BigEndian.AppendUint64(nil, uint64(c.opts.Clock.Now().UnixNano()))
	return c.send(datagram.IDPing, payload)
}

func (c *Client) send(id uint8, payload []byte) error {
	seq := c.sequence.Add(1)
	return c.sock.SendTo(datagram.AppendMessage(nil, seq, id, payload), c.server)
}

func (c *Client) enqueue(data []byte, from net.Addr) {
	m, err := datagram.DecodeMessage(data, from)
	if err != nil {
		c.reports.malformed.Add(1)
		c.opts.Logger.Debugf("Dropped datagram from %s: %v", from, err)
		return
	}
	if c.queue.Offer(m) {
		c.opts.Logger.Debugf("Response queue full, dropped oldest response")
	}
}

func (c *Client) handle(m *datagram.Message) {
	if !c.reports.handle(m) {
		return
	}
	if m.ID() == datagram.IDPong && len(m.Payload()) == 8 {
		sent := int64(binary.BigEndian.Uint64(m.Payload()))
		c.rtt.Store(c.opts.Clock.Now().UnixNano() - sent)
		c.pongs.Add(1)
	}
}

// RoundTrip returns the most recent ping round trip time, 0 before the first pong
func (c *Client) RoundTrip() time.Duration {
	return time.Duration(c.rtt.Load())
}

// Counts returns the receive counters
func (c *Client) Counts() Counts {
	return c.reports.counts()
}

// Dropped returns how many responses were discarded by the full queue
func (c *Client) Dropped() uint64 {
	return c.queue.Dropped()
}
