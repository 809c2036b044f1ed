// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	nmea "github.com/adrianmo/go-nmea"
)

// NMEASource reads position fixes from a GPS receiver's NMEA sentence stream.
// Only GGA sentences carry the fields the sensor state needs; everything else
// is skipped. Reads block on the underlying stream, so cancel by closing it.
//
// A failed or ended stream is reported after a pause of transport.RetryBackoff,
// and the next read starts a fresh scanner over the same reader.
type NMEASource struct {
	r       io.Reader
	clock   clock.Clock
	backoff time.Duration
	scanner *bufio.Scanner
	skipped uint64
	failed  uint64
}

// NewNMEASource reads sentences from r, one per line. Nil clock selects the
// system clock.
func NewNMEASource(r io.Reader, c clock.Clock) *NMEASource {
	if c == nil {
		c = clock.System()
	}
	return &NMEASource{
		r:       r,
		clock:   c,
		backoff: transport.RetryBackoff,
		scanner: bufio.NewScanner(r),
	}
}

// Failed returns the number of reads that ended in a stream error or EOF
func (s *NMEASource) Failed() uint64 {
	return s.failed
}

// Skipped returns the number of lines that did not parse
func (s *NMEASource) Skipped() uint64 {
	return s.skipped
}

// ReadFix blocks until the next GGA sentence
func (s *NMEASource) ReadFix(ctx context.Context) (GPSFix, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return GPSFix{}, err
		}

		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			s.skipped++
			continue
		}
		if sentence.DataType() != nmea.TypeGGA {
			continue
		}
		gga, ok := sentence.(nmea.GGA)
		if !ok {
			continue
		}
		return fixFromGGA(gga)
	}
	if err := ctx.Err(); err != nil {
		return GPSFix{}, err
	}
	err := s.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.failed++
	s.clock.Sleep(s.backoff)
	s.scanner = bufio.NewScanner(s.r)
	return GPSFix{}, fmt.Errorf("nmea stream: %w", err)
}

func fixFromGGA(gga nmea.GGA) (GPSFix, error) {
	quality, err := strconv.Atoi(gga.FixQuality)
	if err != nil {
		return GPSFix{}, fmt.Errorf("invalid GGA fix quality %q", gga.FixQuality)
	}
	return GPSFix{
		Fix:        int32(quality),
		Satellites: int32(gga.NumSatellites),
		Latitude:   gga.Latitude,
		Longitude:  gga.Longitude,
		Altitude:   gga.Altitude,
	}, nil
}
