// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import "fmt"

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, FormatFrameType(f.Identifier()), f.Identifier(), len(f.data))

	v, err := f.Parse()
	if err != nil {
		return result + fmt.Sprintf("  data: % X\n", f.Body())
	}

	switch p := v.(type) {
	case *RxPacket:
		result += fmt.Sprintf("  src=0x%04X rssi=%ddBm ack=%t bcast=%t len=%d\n",
			p.Source, p.SignalDBm(), p.IsAck(), p.IsBroadcast(), len(p.Data))
	case *TxStatus:
		result += fmt.Sprintf("  frame_id=%d status=%s\n", p.FrameID, FormatTxStatus(p.Status))
	case *ModemStatus:
		result += fmt.Sprintf("  status=%s\n", FormatModemStatus(p.Status))
	}
	return result
}

// FormatFrameType returns the human-readable name for an API identifier
func FormatFrameType(id uint8) string {
	switch id {
	case APITxRequest16:
		return "TX_REQUEST_16"
	case APIRxPacket16:
		return "RX_PACKET_16"
	case APITxStatus:
		return "TX_STATUS"
	case APIModemStatus:
		return "MODEM_STATUS"
	default:
		return "UNKNOWN"
	}
}

// FormatTxStatus returns the human-readable name for a TX status value
func FormatTxStatus(status uint8) string {
	switch status {
	case TxStatusSuccess:
		return "SUCCESS"
	case TxStatusNoAck:
		return "NO_ACK"
	case TxStatusCCAFail:
		return "CCA_FAILURE"
	case TxStatusPurged:
		return "PURGED"
	default:
		return fmt.Sprintf("0x%02X", status)
	}
}

// FormatModemStatus returns the human-readable name for a modem status value
func FormatModemStatus(status uint8) string {
	switch status {
	case ModemStatusHardwareReset:
		return "HARDWARE_RESET"
	case ModemStatusWatchdogReset:
		return "WATCHDOG_RESET"
	default:
		return fmt.Sprintf("0x%02X", status)
	}
}
