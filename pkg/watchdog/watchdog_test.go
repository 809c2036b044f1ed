// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watchdog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
)

func newTestWatchdog() (*Watchdog, *clock.Manual, *int) {
	c := clock.NewManual(time.Unix(0, 0))
	calls := 0
	w := New(c, time.Second, func() { calls++ })
	return w, c, &calls
}

// ============================================================
// Timeout Tests
// ============================================================

func TestWatchdog_DisabledNeverFires(t *testing.T) {
	w, c, calls := newTestWatchdog()
	for i := 0; i < 5; i++ {
		c.Advance(time.Hour)
		w.Check()
	}
	if *calls != 0 {
		t.Errorf("listener called %d times with no timers armed", *calls)
	}
}

func TestWatchdog_TimeoutFiresEveryTick(t *testing.T) {
	w, c, calls := newTestWatchdog()
	w.EnableTimeout(3 * time.Second)

	// Ticks at 1s, 2s: not yet expired. 3s, 4s, 5s: expired.
	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
		w.Check()
	}
	if *calls != 3 {
		t.Errorf("listener called %d times, want 3", *calls)
	}
	if w.Fires() != 3 {
		t.Errorf("Fires() = %d, want 3", w.Fires())
	}
}

func TestWatchdog_ResetDefersTimeout(t *testing.T) {
	w, c, calls := newTestWatchdog()
	w.EnableTimeout(2 * time.Second)

	for i := 0; i < 10; i++ {
		c.Advance(time.Second)
		w.Reset()
		if w.Check() {
			t.Fatalf("fired at tick %d despite traffic", i)
		}
	}

	c.Advance(2 * time.Second)
	if !w.Check() || *calls != 1 {
		t.Errorf("calls = %d after traffic stopped, want 1", *calls)
	}
	if w.SinceReset() != 2*time.Second {
		t.Errorf("SinceReset() = %v, want 2s", w.SinceReset())
	}

	w.Reset()
	if w.Check() {
		t.Error("fired right after Reset")
	}
}

func TestWatchdog_DisableTimeout(t *testing.T) {
	w, c, calls := newTestWatchdog()
	w.EnableTimeout(time.Second)
	c.Advance(2 * time.Second)
	w.Check()
	w.DisableTimeout()
	c.Advance(2 * time.Second)
	w.Check()
	if *calls != 1 {
		t.Errorf("listener called %d times, want 1", *calls)
	}
}

// ============================================================
// Countdown Tests
// ============================================================

func TestWatchdog_CountdownIgnoresTraffic(t *testing.T) {
	w, c, calls := newTestWatchdog()
	w.StartCountdown(3 * time.Second)

	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
		w.Reset()
		w.Check()
	}
	if *calls != 3 {
		t.Errorf("listener called %d times, want 3", *calls)
	}

	w.StopCountdown()
	c.Advance(time.Second)
	if w.Check() {
		t.Error("fired after StopCountdown")
	}
}

func TestWatchdog_BothTimersFireOncePerTick(t *testing.T) {
	w, c, calls := newTestWatchdog()
	w.EnableTimeout(time.Second)
	w.StartCountdown(time.Second)

	c.Advance(5 * time.Second)
	w.Check()
	if *calls != 1 {
		t.Errorf("listener called %d times in one tick, want 1", *calls)
	}
}

func TestWatchdog_Run(t *testing.T) {
	var calls atomic.Int64
	w := New(nil, 5*time.Millisecond, func() { calls.Add(1) })
	w.EnableTimeout(time.Nanosecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if calls.Load() < 3 {
		t.Errorf("listener called %d times, want repeated calls", calls.Load())
	}
}
