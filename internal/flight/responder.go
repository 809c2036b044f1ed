// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package flight runs the flight computer side of the link: answering sensor
// requests over UDP and pushing telemetry over the radio.
package flight

import (
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
)

// Responder builds replies to ground station requests from the sensor state
type Responder struct {
	state *sensors.State
}

// NewResponder creates a responder over state
func NewResponder(state *sensors.State) *Responder {
	return &Responder{state: state}
}

// Respond returns the reply id and payload for m. Replies carry m's sequence
// number. ok is false for messages that get no reply.
//
// SensorRequest: payload [mask], empty means all groups. Reply is a
// SensorResponse with [mask][sensor payload].
// Ping: reply is a Pong echoing the payload.
func (r *Responder) Respond(m *datagram.Message) (id uint8, payload []byte, ok bool) {
	switch m.ID() {
	case datagram.IDSensorRequest:
		var mask sensors.Mask
		if p := m.Payload(); len(p) > 0 {
			mask = sensors.Mask(p[0])
		}
		return datagram.IDSensorResponse, sensors.EncodeReport(r.state, mask), true
	case datagram.IDPing:
		return datagram.IDPong, m.Payload(), true
	default:
		return 0, nil, false
	}
}
