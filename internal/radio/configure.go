// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

// ErrNoResponse is returned when the radio does not answer OK in time
var ErrNoResponse = errors.New("no OK from radio")

// ResponseTimeout bounds the wait for each OK
const ResponseTimeout = 2 * time.Second

// pollReadTimeout keeps reads short so the response deadline is honored
const pollReadTimeout = 100 * time.Millisecond

// Configure enters command mode, applies cmds and exits command mode.
// The radio must see guard time of silence before and after "+++".
func Configure(rw io.ReadWriter, c clock.Clock, guard time.Duration, cmds []xbee.ATCommand) error {
	if c == nil {
		c = clock.System()
	}
	if rt, ok := rw.(transport.ReadTimeouter); ok {
		if err := rt.SetReadTimeout(pollReadTimeout); err != nil {
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
		defer rt.SetReadTimeout(-1)
	}

	c.Sleep(guard)
	if _, err := io.WriteString(rw, xbee.CommandModeSequence); err != nil {
		return err
	}
	c.Sleep(guard)
	if err := expectOK(rw, c, "+++"); err != nil {
		return err
	}

	if len(cmds) > 0 {
		line := xbee.BuildATCommandLine(cmds)
		if _, err := io.WriteString(rw, line); err != nil {
			return err
		}
		if err := expectOK(rw, c, strings.TrimSpace(line)); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(rw, xbee.ExitCommandMode); err != nil {
		return err
	}
	return expectOK(rw, c, "ATCN")
}

// expectOK reads until "OK\r" arrives or ResponseTimeout passes. An "ERROR"
// reply fails immediately.
func expectOK(r io.Reader, c clock.Clock, sent string) error {
	var got []byte
	buf := make([]byte, 64)
	deadline := c.Now().Add(ResponseTimeout)
	for c.Now().Before(deadline) {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if strings.Contains(string(got), xbee.CommandModeOK) {
			return nil
		}
		if strings.Contains(string(got), "ERROR") {
			return fmt.Errorf("radio rejected %s: %q", sent, got)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading response to %s: %w", sent, err)
		}
		if n == 0 {
			c.Sleep(pollReadTimeout)
		}
	}
	return fmt.Errorf("%w after %s (got %q)", ErrNoResponse, sent, got)
}
