// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/telelink/internal/log"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/spf13/cobra"
)

var radioLogStatsInterval int

var radioLogCmd = &cobra.Command{
	Use:   "radio_log",
	Short: "Display radio traffic in human-readable format",
	Long: `Continuously decode and display radio traffic as it arrives.

In API mode each frame is shown with timestamp, frame type and decoded fields,
and link statistics are printed every --stats seconds. In transparent mode
(radio.api_mode: false) stream messages are shown instead.

Supports both serial and WebSocket connections.`,
	RunE: runRadioLog,
}

func init() {
	rootCmd.AddCommand(radioLogCmd)
	radioLogCmd.Flags().IntVar(&radioLogStatsInterval, "stats", 10, "Statistics interval in seconds (0 disables)")
}

func runRadioLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	conn, connInfo, err := OpenConnection(cfg.Radio)
	if err != nil {
		return err
	}
	stream := transport.NewStream(conn, log.Named("radio"))
	defer stream.Close()

	fmt.Printf("Telelink - Radio Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if !cfg.Radio.APIMode {
		decoder := datagram.NewStreamDecoder(cfg.Radio.MaxPayload)
		return stream.Pump(ctx, func(data []byte) {
			for _, b := range data {
				m, err := decoder.DecodeByte(b)
				if err != nil {
					fmt.Printf("[ERROR] %v\n", err)
					continue
				}
				if m != nil {
					fmt.Print(formatStreamMessage(m))
				}
			}
		})
	}

	decoder := xbee.NewDecoder()
	stats := xbee.NewStatistics()
	if radioLogStatsInterval > 0 {
		go printStatistics(ctx, stats, time.Duration(radioLogStatsInterval)*time.Second)
	}

	err = stream.Pump(ctx, func(data []byte) {
		for _, b := range data {
			frame, err := decoder.DecodeByte(b)
			if err != nil {
				stats.Update(nil, err)
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if frame != nil {
				stats.Update(frame, nil)
				fmt.Print(xbee.FormatFrame(frame))
			}
		}
	})
	fmt.Print(stats.String())
	return err
}

func printStatistics(ctx context.Context, stats *xbee.Statistics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Print(stats.String())
		}
	}
}

// formatStreamMessage renders a transparent mode message
func formatStreamMessage(m *datagram.Message) string {
	crc := "ok"
	if !m.ChecksumOK() {
		crc = fmt.Sprintf("mismatch (0x%08X != 0x%08X)", m.CRC(), m.ComputedCRC())
	}
	result := fmt.Sprintf("[%s] %s (0x%02X) seq=%d len=%d crc=%s\n",
		m.Timestamp().Format("15:04:05.000"), datagram.FormatMessageID(m.ID()), m.ID(), m.Sequence(), len(m.Payload()), crc)

	if datagram.IsSensorReport(m.ID()) && len(m.Payload()) > 0 {
		result += fmt.Sprintf("  mask=%s\n", sensors.Mask(m.Payload()[0]))
	}
	return result
}
