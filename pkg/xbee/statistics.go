// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Counters is a point-in-time copy of link statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	ValidFrames    uint64
	ChecksumErrors uint64
	LengthErrors   uint64
	RxPackets      uint64
	TxStatuses     uint64
	TxFailures     uint64
	ModemStatuses  uint64
	UnknownFrames  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// Statistics tracks radio link frame counts and error rates.
// Safe for concurrent use.
type Statistics struct {
	mu  sync.Mutex
	c   Counters
	now func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return newStatistics(time.Now)
}

func newStatistics(now func() time.Time) *Statistics {
	t := now()
	return &Statistics{
		c:   Counters{StartTime: t, LastUpdateTime: t},
		now: now,
	}
}

// Update records a decoder result. Frames are classified by type.
func (s *Statistics) Update(frame *Frame, decodeErr error) {
	if frame == nil && decodeErr == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.TotalFrames++
	s.c.LastUpdateTime = s.now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrChecksum):
			s.c.ChecksumErrors++
		case errors.Is(decodeErr, ErrInvalidLength):
			s.c.LengthErrors++
		}
		return
	}

	s.c.ValidFrames++
	switch frame.Identifier() {
	case APIRxPacket16:
		s.c.RxPackets++
	case APITxStatus:
		s.c.TxStatuses++
		if st, err := ParseTxStatus(frame); err == nil && !st.IsSuccess() {
			s.c.TxFailures++
		}
	case APIModemStatus:
		s.c.ModemStatuses++
	default:
		s.c.UnknownFrames++
	}
}

// Errors returns the number of dropped frames
func (s *Statistics) Errors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.ChecksumErrors + s.c.LengthErrors
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return s.c
}

func (s *Statistics) calculateRates() {
	elapsed := s.now().Sub(s.c.StartTime).Seconds()
	if elapsed > 0 {
		s.c.FrameRate = float64(s.c.TotalFrames) / elapsed
		s.c.ErrorRate = float64(s.c.ChecksumErrors+s.c.LengthErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var validPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidFrames) * 100.0 / float64(snap.TotalFrames)
	}
	elapsed := s.now().Sub(snap.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", snap.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", snap.ValidFrames, validPercent)
	if snap.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", snap.ChecksumErrors)
	}
	if snap.LengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d\n", snap.LengthErrors)
	}
	result += fmt.Sprintf("  RX Packets:       %5d\n", snap.RxPackets)
	result += fmt.Sprintf("  TX Status:        %5d (%d failed)\n", snap.TxStatuses, snap.TxFailures)
	if snap.ModemStatuses > 0 {
		result += fmt.Sprintf("  Modem Status:     %5d\n", snap.ModemStatuses)
	}
	if snap.UnknownFrames > 0 {
		result += fmt.Sprintf("  Unknown:          %5d\n", snap.UnknownFrames)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", snap.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "=====================================\n"
	return result
}
