// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test the radio by waiting for a valid frame",
	Long: `Wait for a valid radio frame on the connection until timeout.

In API mode this waits for any API frame with a good checksum; in transparent
mode it waits for a complete stream message. Invalid bytes are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the radio cabling and baud rate.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// frameScanner feeds one byte and returns a description once something valid
// has been decoded
type frameScanner func(b byte) (string, bool, error)

func apiScanner() frameScanner {
	decoder := xbee.NewDecoder()
	return func(b byte) (string, bool, error) {
		frame, err := decoder.DecodeByte(b)
		if err != nil || frame == nil {
			return "", false, err
		}
		return fmt.Sprintf("  Type: %s (0x%02X)\n  Length: %d bytes\n  Checksum: 0x%02X\n",
			xbee.FormatFrameType(frame.Identifier()), frame.Identifier(), len(frame.Data()), frame.Checksum()), true, nil
	}
}

func streamScanner(maxPayload int) frameScanner {
	decoder := datagram.NewStreamDecoder(maxPayload)
	return func(b byte) (string, bool, error) {
		m, err := decoder.DecodeByte(b)
		if err != nil || m == nil {
			return "", false, err
		}
		return fmt.Sprintf("  Type: %s (0x%02X)\n  Sequence: %d\n  Length: %d bytes\n  CRC: 0x%08X (ok=%t)\n",
			datagram.FormatMessageID(m.ID()), m.ID(), m.Sequence(), len(m.Payload()), m.CRC(), m.ChecksumOK()), true, nil
	}
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg.Radio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Telelink - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	scan := apiScanner()
	if !cfg.Radio.APIMode {
		scan = streamScanner(cfg.Radio.MaxPayload)
	}

	found := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 128)
		rejected := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			for i := 0; i < n; i++ {
				desc, ok, decodeErr := scan(buf[i])
				if decodeErr != nil {
					rejected++
					continue
				}
				if ok {
					if rejected > 0 {
						fmt.Printf("(skipped %d invalid frames before sync)\n", rejected)
					}
					found <- desc
					return
				}
			}
		}
	}()

	select {
	case desc := <-found:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Print(desc)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
