// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package clock provides the monotonic time source injected into the scheduler,
// watchdog and device drivers, plus a manually driven clock for tests.
package clock

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

// ErrTimeout is returned by PollUntil when the deadline passes
var ErrTimeout = errors.New("poll timeout")

// Clock is a monotonic time source
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// System returns the process clock. time.Now carries a monotonic reading,
// so differences between two Now values are immune to wall clock steps.
func System() Clock {
	return systemClock{}
}

// Manual is a clock that only moves when told to. Sleep advances it
// instead of blocking. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the clock by d
func (m *Manual) Sleep(d time.Duration) {
	m.Advance(d)
}

// Advance moves the clock forward by d; negative values are ignored
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// PollUntil calls ready in a busy loop until it reports true, returns an error,
// or timeout elapses on c. The loop yields between polls but never blocks.
func PollUntil(c Clock, timeout time.Duration, ready func() (bool, error)) error {
	deadline := c.Now().Add(timeout)
	for {
		ok, err := ready()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !c.Now().Before(deadline) {
			return ErrTimeout
		}
		runtime.Gosched()
	}
}
