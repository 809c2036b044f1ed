// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flight

import (
	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"go.uber.org/zap"
)

// AttachLink routes frames from an API mode link: received packets are
// answered through the pusher, failed transmissions and modem resets are logged.
func AttachLink(link *radio.Link, p *Pusher, responder *Responder, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	link.Dispatcher.OnRxPacket = func(rx *xbee.RxPacket) {
		m, err := datagram.DecodeMessage(rx.Data, nil)
		if err != nil {
			logger.Debugf("Ignored packet from 0x%04X: %v", rx.Source, err)
			return
		}
		p.HandleRequest(responder, m)
	}
	link.Dispatcher.OnTxStatus = func(s *xbee.TxStatus) {
		if !s.IsSuccess() {
			logger.Warnf("Transmit %d failed: %s", s.FrameID, xbee.FormatTxStatus(s.Status))
		}
	}
	link.Dispatcher.OnModemStatus = func(s *xbee.ModemStatus) {
		logger.Infof("Radio modem status: %s", xbee.FormatModemStatus(s.Status))
	}
}

// StreamHandler returns a handler for transparent mode messages that answers
// requests through the pusher
func StreamHandler(p *Pusher, responder *Responder) func(*datagram.Message) {
	return func(m *datagram.Message) {
		p.HandleRequest(responder, m)
	}
}
