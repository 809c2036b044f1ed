// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package clock

import (
	"errors"
	"testing"
	"time"
)

func TestManual_AdvanceAndSleep(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManual(start)

	c.Advance(time.Second)
	c.Sleep(500 * time.Millisecond)
	c.Advance(-time.Hour)
	c.Sleep(0)

	if got := c.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got)
	}
}

func TestSystem_Monotonic(t *testing.T) {
	c := System()
	a := c.Now()
	c.Sleep(time.Millisecond)
	if b := c.Now(); !b.After(a) {
		t.Errorf("Now() did not advance: %v then %v", a, b)
	}
}

func TestPollUntil(t *testing.T) {
	errBus := errors.New("bus error")

	tests := []struct {
		name    string
		readyAt int // poll count at which ready returns true, 0 = never
		failAt  int // poll count at which ready fails, 0 = never
		want    error
		polls   int
	}{
		{"immediate", 1, 0, nil, 1},
		{"after several polls", 5, 0, nil, 5},
		{"timeout", 0, 0, ErrTimeout, 10},
		{"error", 0, 3, errBus, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewManual(time.Unix(0, 0))
			polls := 0
			err := PollUntil(c, 10*time.Millisecond, func() (bool, error) {
				polls++
				if tt.failAt > 0 && polls == tt.failAt {
					return false, errBus
				}
				if tt.readyAt > 0 && polls == tt.readyAt {
					return true, nil
				}
				// Each poll costs 1ms of bus time
				c.Advance(time.Millisecond)
				return false, nil
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("PollUntil error = %v, want %v", err, tt.want)
			}
			if polls != tt.polls {
				t.Errorf("polls = %d, want %d", polls, tt.polls)
			}
		})
	}
}
