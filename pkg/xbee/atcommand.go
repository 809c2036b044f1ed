// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"fmt"
	"strings"
)

// Command mode strings
const (
	CommandModeSequence = "+++"
	CommandModeOK       = "OK\r"
	ExitCommandMode     = "ATCN\r"
)

// ATCommand is a two-letter AT command with an optional parameter
type ATCommand struct {
	Command   string
	Parameter string
}

// String returns the command as it appears after the AT prefix
func (c ATCommand) String() string {
	return c.Command + c.Parameter
}

// ParseATCommands parses a comma separated list such as "AP1,BD3".
// Surrounding whitespace and an optional AT prefix on each entry are ignored.
func ParseATCommands(s string) ([]ATCommand, error) {
	var cmds []ATCommand
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		upper := strings.ToUpper(part)
		if strings.HasPrefix(upper, "AT") && len(part) > 2 {
			part = part[2:]
			upper = upper[2:]
		}
		if len(part) < 2 {
			return nil, fmt.Errorf("invalid AT command %q", part)
		}
		cmds = append(cmds, ATCommand{Command: upper[:2], Parameter: part[2:]})
	}
	return cmds, nil
}

// BuildATCommandLine joins commands into a single AT line: ATAP1,BD3\r
func BuildATCommandLine(cmds []ATCommand) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return "AT" + strings.Join(parts, ",") + "\r"
}
