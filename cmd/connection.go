// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/telelink/internal/config"
	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

const passwordEnv = "TELELINK_PASSWORD"

// OpenConnection opens either a serial or WebSocket connection to the radio
func OpenConnection(rc config.RadioConfig) (transport.Connection, string, error) {
	if rc.URL != "" {
		password := ""
		if rc.Username != "" {
			var err error
			password, err = transport.GetPassword(passwordEnv)
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := transport.OpenWebSocket(rc.URL, rc.Username, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", rc.URL), nil
	}

	if rc.Port != "" {
		conn, err := transport.OpenSerial(rc.Port, rc.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", rc.Port, rc.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// OpenRadio opens the radio connection and applies the configured AT commands
func OpenRadio(rc config.RadioConfig) (transport.Connection, string, error) {
	conn, info, err := OpenConnection(rc)
	if err != nil {
		return nil, "", err
	}
	if rc.ATCommands == "" {
		return conn, info, nil
	}

	cmds, err := xbee.ParseATCommands(rc.ATCommands)
	if err != nil {
		conn.Close()
		return nil, "", err
	}
	if err := radio.Configure(conn, clock.System(), rc.GuardTime, cmds); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("radio configuration failed: %w", err)
	}
	return conn, info, nil
}
