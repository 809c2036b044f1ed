// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/spf13/cobra"
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Check radio connection stability",
	Long: `Hold the radio connection open for a fixed time without transmitting.

Every chunk of received data is logged and run through the API frame decoder,
so a serial bridge that drops or corrupts bytes shows up as frame errors.

Exit codes:
  0 - Check completed normally
  1 - Connection failed during the check
  2 - Connection error`,
	RunE: runLinkCheck,
}

var linkCheckDuration int

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Check duration in seconds")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg.Radio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Radio Link Stability Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	decoder := xbee.NewDecoder()
	stats := xbee.NewStatistics()
	start := time.Now()
	endTime := start.Add(time.Duration(linkCheckDuration) * time.Second)
	bytesReceived := 0

	report := func(result string) {
		fmt.Printf("\n--- Check Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(start).Truncate(time.Millisecond))
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Print(stats.String())
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for data...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			fmt.Printf("[%s] Received %d bytes: %x\n", time.Now().Format("15:04:05.000"), len(data), data)
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				if err != nil || frame != nil {
					stats.Update(frame, err)
				}
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			report("FAILED (connection error)")
			os.Exit(1)

		case <-time.After(1 * time.Second):
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), time.Until(endTime).Seconds())
		}
	}

	report("PASSED (connection stable)")
	return nil
}
