// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ground

import (
	"sync/atomic"

	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"go.uber.org/zap"
)

// Counts summarizes messages seen on one receive path
type Counts struct {
	Applied   uint64 // sensor reports applied to the state
	Stale     uint64 // dropped by sequence number
	Malformed uint64 // undecodable datagrams or reports
}

// reports applies sensor responses from one receive path. Sequence numbers
// are tracked per message id, so it must only be used from one goroutine.
type reports struct {
	state    *sensors.State
	filter   *datagram.SequenceFilter
	listener Listener
	logger   *zap.SugaredLogger

	applied   atomic.Uint64
	stale     atomic.Uint64
	malformed atomic.Uint64
}

func newReports(state *sensors.State, listener Listener, logger *zap.SugaredLogger) *reports {
	if listener == nil {
		listener = ListenerFuncs{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &reports{
		state:    state,
		filter:   datagram.NewSequenceFilter(),
		listener: listener,
		logger:   logger,
	}
}

// handle drops stale messages and applies sensor responses. It reports whether
// m passed the sequence filter.
func (r *reports) handle(m *datagram.Message) bool {
	if !r.filter.Accept(m) {
		r.stale.Add(1)
		r.logger.Debugf("Dropped stale %s seq=%d", datagram.FormatMessageID(m.ID()), m.Sequence())
		return false
	}
	if !datagram.IsSensorReport(m.ID()) {
		return true
	}
	mask, err := sensors.DecodeReport(m.Payload(), r.state)
	if err != nil {
		r.malformed.Add(1)
		r.logger.Warnf("Bad sensor report seq=%d mask=%s: %v", m.Sequence(), mask, err)
		return true
	}
	r.applied.Add(1)
	r.listener.OnSensorsUpdated(r.state.Snapshot())
	return true
}

func (r *reports) counts() Counts {
	return Counts{
		Applied:   r.applied.Load(),
		Stale:     r.stale.Load(),
		Malformed: r.malformed.Load(),
	}
}
