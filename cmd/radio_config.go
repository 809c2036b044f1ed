// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/spf13/cobra"
)

var radioConfigCmd = &cobra.Command{
	Use:   "radio_config [COMMANDS]",
	Short: "Apply AT commands to the radio",
	Long: `Enter AT command mode and apply a configuration string.

COMMANDS is a comma separated list such as "AP1,BD3,DT0001" and defaults to
radio.at_commands from the settings file. The radio is left in command mode for
at most one guard time on each side of "+++", then returned to normal operation
with ATCN.

Common commands:
  AP  API enable (0 transparent, 1 API)
  BD  Interface data rate
  BR  RF data rate
  MY  Source address
  DT  Destination address
  PL  Transmit power level
  RR  Retries
  TX  Transmit only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRadioConfig,
}

func init() {
	rootCmd.AddCommand(radioConfigCmd)
}

func runRadioConfig(cmd *cobra.Command, args []string) error {
	commands := cfg.Radio.ATCommands
	if len(args) == 1 {
		commands = args[0]
	}
	if strings.TrimSpace(commands) == "" {
		return fmt.Errorf("no AT commands given")
	}
	cmds, err := xbee.ParseATCommands(commands)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Radio)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Telelink - Radio Configuration\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Sending: %q\n", xbee.BuildATCommandLine(cmds))

	if err := radio.Configure(conn, clock.System(), cfg.Radio.GuardTime, cmds); err != nil {
		return err
	}
	fmt.Printf("Applied %d commands\n", len(cmds))
	return nil
}
