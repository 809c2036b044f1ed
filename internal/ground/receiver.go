// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ground

import (
	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/watchdog"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"go.uber.org/zap"
)

// Receiver applies telemetry arriving over the radio. In API mode every valid
// frame resets the watchdog; in transparent mode every decoded message does.
// All handlers run on the link's read goroutine.
type Receiver struct {
	reports  *reports
	listener Listener
	watchdog *watchdog.Watchdog
	logger   *zap.SugaredLogger
}

// NewReceiver applies reports to state. wd may be nil.
func NewReceiver(state *sensors.State, listener Listener, wd *watchdog.Watchdog, logger *zap.SugaredLogger) *Receiver {
	if listener == nil {
		listener = ListenerFuncs{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Receiver{
		reports:  newReports(state, listener, logger),
		listener: listener,
		watchdog: wd,
		logger:   logger,
	}
}

// Attach installs the receiver's handlers on an API mode link
func (r *Receiver) Attach(link *radio.Link) {
	link.Dispatcher.OnFrame = r.HandleFrame
	link.Dispatcher.OnRxPacket = r.HandleRxPacket
	link.Dispatcher.OnModemStatus = func(s *xbee.ModemStatus) {
		r.logger.Infof("Radio modem status: %s", xbee.FormatModemStatus(s.Status))
	}
}

// HandleFrame records link activity for any valid frame
func (r *Receiver) HandleFrame(f *xbee.Frame) {
	r.activity()
	r.listener.OnLinkFrame(f)
}

// HandleRxPacket decodes the datagram carried by a received packet
func (r *Receiver) HandleRxPacket(rx *xbee.RxPacket) {
	m, err := datagram.DecodeMessage(rx.Data, nil)
	if err != nil {
		r.reports.malformed.Add(1)
		r.logger.Debugf("Ignored packet from 0x%04X (%d dBm): %v", rx.Source, rx.SignalDBm(), err)
		return
	}
	r.HandleMessage(m)
}

// HandleStreamMessage handles a transparent mode message
func (r *Receiver) HandleStreamMessage(m *datagram.Message) {
	r.activity()
	r.HandleMessage(m)
}

// HandleMessage applies a message that has already counted as link activity
func (r *Receiver) HandleMessage(m *datagram.Message) {
	r.reports.handle(m)
}

func (r *Receiver) activity() {
	if r.watchdog != nil {
		r.watchdog.Reset()
	}
}

// Counts returns the receive counters
func (r *Receiver) Counts() Counts {
	return r.reports.counts()
}
