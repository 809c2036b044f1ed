// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flight

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"go.uber.org/zap"
)

// DefaultPushInterval is used when no push interval is given
const DefaultPushInterval = 500 * time.Millisecond

// Pusher periodically sends a masked sensor report over the radio
type Pusher struct {
	state    *sensors.State
	sender   radio.MessageSender
	interval time.Duration
	logger   *zap.SugaredLogger

	mask     atomic.Uint32
	sequence atomic.Uint32
	sent     atomic.Uint64
	failed   atomic.Uint64
}

// NewPusher sends state through sender every interval
func NewPusher(state *sensors.State, sender radio.MessageSender, interval time.Duration, mask sensors.Mask, logger *zap.SugaredLogger) *Pusher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if interval <= 0 {
		interval = DefaultPushInterval
	}
	p := &Pusher{state: state, sender: sender, interval: interval, logger: logger}
	p.mask.Store(uint32(mask))
	return p
}

// SetMask changes the groups sent from the next push on
func (p *Pusher) SetMask(m sensors.Mask) {
	p.mask.Store(uint32(m))
}

// Mask returns the current mask
func (p *Pusher) Mask() sensors.Mask {
	return sensors.Mask(p.mask.Load())
}

// Push sends one report with the next push sequence number. Pushes have their
// own message id so their sequence never competes with request replies.
func (p *Pusher) Push() error {
	seq := p.sequence.Add(1)
	report := sensors.EncodeReport(p.state, p.Mask())
	if err := p.sender.SendMessage(seq, datagram.IDSensorPush, report); err != nil {
		p.failed.Add(1)
		return err
	}
	p.sent.Add(1)
	return nil
}

// HandleRequest answers a request received over the radio. A sensor request
// also becomes the push mask.
func (p *Pusher) HandleRequest(responder *Responder, m *datagram.Message) {
	id, payload, ok := responder.Respond(m)
	if !ok {
		return
	}
	if m.ID() == datagram.IDSensorRequest {
		p.SetMask(sensors.Mask(payload[0]))
	}
	if err := p.sender.SendMessage(m.Sequence(), id, payload); err != nil {
		p.logger.Warnf("Radio reply failed: %v", err)
	}
}

// Run pushes every interval until ctx is done. Send failures are logged.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Push(); err != nil {
				p.logger.Warnf("Telemetry push failed: %v", err)
			}
		}
	}
}

// Counts returns reports sent and failed
func (p *Pusher) Counts() (sent, failed uint64) {
	return p.sent.Load(), p.failed.Load()
}
