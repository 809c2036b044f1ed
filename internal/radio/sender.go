// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

// MessageSender transmits one message over the radio in whichever framing
// the radio mode uses
type MessageSender interface {
	SendMessage(seq uint32, id uint8, payload []byte) error
}

// APISender sends messages as TX requests. The RF packet preserves message
// boundaries, so the raw datagram layout is used as the TX payload.
type APISender struct {
	link *Link
	dest uint16
}

// NewAPISender sends to dest over link. Unicast destinations request radio
// acknowledgement; broadcast cannot be acknowledged.
func NewAPISender(link *Link, dest uint16) *APISender {
	return &APISender{link: link, dest: dest}
}

func (s *APISender) SendMessage(seq uint32, id uint8, payload []byte) error {
	_, err := s.link.Send(s.dest, datagram.AppendMessage(nil, seq, id, payload), s.dest != xbee.AddressBroadcast)
	return err
}
