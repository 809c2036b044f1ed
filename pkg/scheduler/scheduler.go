// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package scheduler runs each sensor device's poll function on its own
// goroutine at a target frequency.
//
// Pacing is a discrete proportional correction recomputed once per measurement
// window: the time a loop takes without the corrective sleep is estimated from
// the window, and the sleep is set to whatever is left of the target period.
// It is a heuristic. Convergence time depends on how stable the device's I/O
// latency is and is not bounded.
package scheduler

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/pkg/clock"
	"go.uber.org/zap"
)

// DefaultWindow is the measurement window length
const DefaultWindow = time.Second

// Device is a physical sensor polled by the scheduler.
// Loop performs one poll; errors are logged and polling continues.
type Device interface {
	Name() string
	Loop(ctx context.Context) error
}

// Options configures a Scheduler. Zero values select defaults.
type Options struct {
	Clock  clock.Clock
	Logger *zap.SugaredLogger
	Window time.Duration
}

// Scheduler owns one polling goroutine per registered device
type Scheduler struct {
	clock  clock.Clock
	logger *zap.SugaredLogger
	window time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	devices []*ScheduledDevice
}

// New creates a scheduler
func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:  opts.Clock,
		logger: opts.Logger,
		window: opts.Window,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register starts polling d at targetHz. A target of 0 runs unthrottled.
func (s *Scheduler) Register(d Device, targetHz float64) *ScheduledDevice {
	sd := newScheduledDevice(d, targetHz, s.clock, s.window, s.logger.With("device", d.Name()))

	ctx, cancel := context.WithCancel(s.ctx)
	sd.cancel = cancel

	s.mu.Lock()
	s.devices = append(s.devices, sd)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sd.run(ctx)
	}()

	s.logger.Infof("Registered device %s at %.1f Hz", d.Name(), targetHz)
	return sd
}

// Devices returns the registered devices
func (s *Scheduler) Devices() []*ScheduledDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ScheduledDevice, len(s.devices))
	copy(out, s.devices)
	return out
}

// Stop cancels every device goroutine and waits for them to exit
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// ScheduledDevice is a device plus its pacing state
type ScheduledDevice struct {
	device   Device
	targetHz float64
	clock    clock.Clock
	window   time.Duration
	logger   *zap.SugaredLogger
	cancel   context.CancelFunc
	done     chan struct{}

	// Observable from other goroutines
	measuredHz      atomic.Uint64 // float64 bits
	correctiveSleep atomic.Int64  // nanoseconds
	loops           atomic.Uint64
	failures        atomic.Uint64

	// Owned by the polling goroutine
	windowStart time.Time
	loopCount   uint64
}

func newScheduledDevice(d Device, targetHz float64, c clock.Clock, window time.Duration, logger *zap.SugaredLogger) *ScheduledDevice {
	if targetHz < 0 {
		targetHz = 0
	}
	return &ScheduledDevice{
		device:      d,
		targetHz:    targetHz,
		clock:       c,
		window:      window,
		logger:      logger,
		done:        make(chan struct{}),
		windowStart: c.Now(),
	}
}

// Device returns the scheduled device
func (sd *ScheduledDevice) Device() Device { return sd.device }

// TargetHz returns the target poll frequency
func (sd *ScheduledDevice) TargetHz() float64 { return sd.targetHz }

// MeasuredHz returns the loop rate measured over the last complete window
func (sd *ScheduledDevice) MeasuredHz() float64 {
	return math.Float64frombits(sd.measuredHz.Load())
}

// CorrectiveSleep returns the current per-loop sleep
func (sd *ScheduledDevice) CorrectiveSleep() time.Duration {
	return time.Duration(sd.correctiveSleep.Load())
}

// Loops returns the total number of completed loops
func (sd *ScheduledDevice) Loops() uint64 { return sd.loops.Load() }

// Errors returns the number of failed loops
func (sd *ScheduledDevice) Errors() uint64 { return sd.failures.Load() }

// Stop cancels this device's goroutine and waits for it to exit
func (sd *ScheduledDevice) Stop() {
	if sd.cancel != nil {
		sd.cancel()
	}
	<-sd.done
}

// Done is closed when the polling goroutine exits
func (sd *ScheduledDevice) Done() <-chan struct{} { return sd.done }

func (sd *ScheduledDevice) run(ctx context.Context) {
	defer close(sd.done)
	sd.windowStart = sd.clock.Now()
	for ctx.Err() == nil {
		sd.step(ctx)
	}
	sd.logger.Debugf("Device %s stopped after %d loops", sd.device.Name(), sd.Loops())
}

// step runs one loop, applies the corrective sleep and closes the window if due
func (sd *ScheduledDevice) step(ctx context.Context) {
	if err := sd.device.Loop(ctx); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return
		}
		sd.failures.Add(1)
		sd.logger.Warnf("Device %s loop failed: %v", sd.device.Name(), err)
	}

	if sd.targetHz > 0 {
		sd.clock.Sleep(sd.CorrectiveSleep())
	}

	sd.loopCount++
	sd.loops.Add(1)

	elapsed := sd.clock.Now().Sub(sd.windowStart)
	if elapsed >= sd.window {
		sd.closeWindow(elapsed)
	}
}

func (sd *ScheduledDevice) closeWindow(elapsed time.Duration) {
	measured := float64(sd.loopCount) * float64(time.Second) / float64(sd.window)
	sd.measuredHz.Store(math.Float64bits(measured))

	if sd.targetHz > 0 {
		sleep := sd.CorrectiveSleep()
		actualPerLoop := elapsed/time.Duration(sd.loopCount) - sleep
		targetPerLoop := time.Duration(float64(elapsed) / sd.targetHz)
		next := targetPerLoop - actualPerLoop
		if next < 0 {
			next = 0
		}
		sd.correctiveSleep.Store(int64(next))
	}

	sd.windowStart = sd.clock.Now()
	sd.loopCount = 0
}
