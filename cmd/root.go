// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/telelink/internal/config"
	"github.com/Thermoquad/telelink/internal/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	// Radio connection flags
	portName string
	baudRate int

	// WebSocket serial bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "telelink",
	Short: "Flight computer and ground station telemetry link",
	Long: `Telelink - sensor telemetry between a flight computer and a ground station.

The flight side polls its sensors and answers requests over UDP while pushing
reports over an XTend radio. The ground side polls over UDP, listens on the
radio and raises a watchdog alarm when the link goes quiet.

Radio connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config (YAML); connection flags override the file.
For WebSocket authentication, the password is read from the TELELINK_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { log.Sync() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML settings file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Radio serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket serial bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// loadConfig reads the settings file and applies flag overrides
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Radio.Port = portName
		cfg.Radio.Enabled = true
	}
	if flags.Changed("baud") {
		cfg.Radio.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Radio.URL = wsURL
		cfg.Radio.Enabled = true
	}
	if flags.Changed("username") {
		cfg.Radio.Username = wsUsername
	}
	if debug {
		cfg.Log.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.Init(cfg.Log.Debug, cfg.Log.Level); err != nil {
		return err
	}

	if configPath != "" {
		log.Debugf("Loaded config from %s", configPath)
	} else {
		log.Debugf("No --config given, using defaults")
	}
	if wsNoSSLVerify && cfg.Radio.URL != "" {
		log.Warnf("TLS certificate verification disabled for %s", cfg.Radio.URL)
	}
	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
