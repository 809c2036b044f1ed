// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package watchdog detects radio link loss.
//
// Two timers are checked on every tick: a rolling timeout that inbound frames
// reset, and a one-shot countdown that only StartCountdown arms. The listener
// is called on every tick while either timer is expired, not just once.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
)

// DefaultInterval is the default check interval
const DefaultInterval = time.Second

// Watchdog is a level-triggered liveness timer. Safe for concurrent use.
type Watchdog struct {
	clock    clock.Clock
	epoch    time.Time
	interval time.Duration
	listener func()

	// Durations in ns, 0 = disabled
	timeout   atomic.Int64
	countdown atomic.Int64

	// Offsets from epoch in ns
	lastReset      atomic.Int64
	countdownStart atomic.Int64

	fires atomic.Uint64
}

// New creates a watchdog that calls listener when a timer is expired.
// Nil clock selects the system clock; interval <= 0 selects DefaultInterval.
func New(c clock.Clock, interval time.Duration, listener func()) *Watchdog {
	if c == nil {
		c = clock.System()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if listener == nil {
		listener = func() {}
	}
	return &Watchdog{
		clock:    c,
		epoch:    c.Now(),
		interval: interval,
		listener: listener,
	}
}

func (w *Watchdog) now() int64 {
	return int64(w.clock.Now().Sub(w.epoch))
}

// EnableTimeout arms the rolling timeout, starting from now
func (w *Watchdog) EnableTimeout(d time.Duration) {
	w.lastReset.Store(w.now())
	w.timeout.Store(int64(d))
}

// DisableTimeout disarms the rolling timeout
func (w *Watchdog) DisableTimeout() {
	w.timeout.Store(0)
}

// Reset restarts the rolling timeout. Called for every inbound frame.
func (w *Watchdog) Reset() {
	w.lastReset.Store(w.now())
}

// StartCountdown arms the one-shot countdown. Traffic does not reset it.
func (w *Watchdog) StartCountdown(d time.Duration) {
	w.countdownStart.Store(w.now())
	w.countdown.Store(int64(d))
}

// StopCountdown disarms the countdown
func (w *Watchdog) StopCountdown() {
	w.countdown.Store(0)
}

// Expired reports whether either armed timer has run out
func (w *Watchdog) Expired() bool {
	now := w.now()
	if t := w.timeout.Load(); t > 0 && now-w.lastReset.Load() >= t {
		return true
	}
	if c := w.countdown.Load(); c > 0 && now-w.countdownStart.Load() >= c {
		return true
	}
	return false
}

// SinceReset returns the time since the last Reset
func (w *Watchdog) SinceReset() time.Duration {
	return time.Duration(w.now() - w.lastReset.Load())
}

// Check performs one tick, calling the listener if a timer is expired
func (w *Watchdog) Check() bool {
	if !w.Expired() {
		return false
	}
	w.fires.Add(1)
	w.listener()
	return true
}

// Fires returns how many times the listener has been called
func (w *Watchdog) Fires() uint64 {
	return w.fires.Load()
}

// Run ticks every interval until ctx is done
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}
