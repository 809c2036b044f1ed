// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import "fmt"

// Dispatcher routes decoded frames to typed handlers. Nil handlers are skipped.
type Dispatcher struct {
	// OnFrame is called for every frame before typed dispatch
	OnFrame func(*Frame)

	OnRxPacket    func(*RxPacket)
	OnTxStatus    func(*TxStatus)
	OnModemStatus func(*ModemStatus)
}

// Dispatch parses the frame and invokes the matching handler.
// Unknown identifiers still reach OnFrame and then return ErrUnknownFrame.
func (d *Dispatcher) Dispatch(f *Frame) error {
	if d.OnFrame != nil {
		d.OnFrame(f)
	}

	v, err := f.Parse()
	if err != nil {
		return err
	}

	switch typed := v.(type) {
	case *RxPacket:
		if d.OnRxPacket != nil {
			d.OnRxPacket(typed)
		}
	case *TxStatus:
		if d.OnTxStatus != nil {
			d.OnTxStatus(typed)
		}
	case *ModemStatus:
		if d.OnModemStatus != nil {
			d.OnModemStatus(typed)
		}
	default:
		return fmt.Errorf("%w: 0x%02X", ErrUnknownFrame, f.Identifier())
	}
	return nil
}
