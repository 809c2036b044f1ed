// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ground runs the ground station side of the link: polling the flight
// computer over UDP and receiving radio telemetry, both feeding a local copy of
// the sensor state.
package ground

import (
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

// Listener receives ground station events. Methods are called from receive
// goroutines and must not block.
type Listener interface {
	// OnSensorsUpdated is called after a sensor report is applied
	OnSensorsUpdated(sensors.Snapshot)
	// OnWatchdogTriggered is called on every watchdog tick while expired
	OnWatchdogTriggered()
	// OnLinkFrame is called for every valid radio API frame
	OnLinkFrame(*xbee.Frame)
}

// Listeners fans events out to several listeners in order
type Listeners []Listener

func (ls Listeners) OnSensorsUpdated(s sensors.Snapshot) {
	for _, l := range ls {
		l.OnSensorsUpdated(s)
	}
}

func (ls Listeners) OnWatchdogTriggered() {
	for _, l := range ls {
		l.OnWatchdogTriggered()
	}
}

func (ls Listeners) OnLinkFrame(f *xbee.Frame) {
	for _, l := range ls {
		l.OnLinkFrame(f)
	}
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	SensorsUpdated    func(sensors.Snapshot)
	WatchdogTriggered func()
	LinkFrame         func(*xbee.Frame)
}

func (f ListenerFuncs) OnSensorsUpdated(s sensors.Snapshot) {
	if f.SensorsUpdated != nil {
		f.SensorsUpdated(s)
	}
}

func (f ListenerFuncs) OnWatchdogTriggered() {
	if f.WatchdogTriggered != nil {
		f.WatchdogTriggered()
	}
}

func (f ListenerFuncs) OnLinkFrame(fr *xbee.Frame) {
	if f.LinkFrame != nil {
		f.LinkFrame(fr)
	}
}
