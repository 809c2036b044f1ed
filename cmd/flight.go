// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/Thermoquad/telelink/internal/devices"
	"github.com/Thermoquad/telelink/internal/flight"
	"github.com/Thermoquad/telelink/internal/log"
	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/clock"
	"github.com/Thermoquad/telelink/pkg/scheduler"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flightSimulate bool

var flightCmd = &cobra.Command{
	Use:   "flight",
	Short: "Run the flight computer side of the link",
	Long: `Poll the sensors and serve their readings.

Each enabled device runs on its own goroutine at its configured rate. Sensor
requests and pings arriving on the UDP listen address are answered from the
latest readings. With the radio enabled, a masked sensor report is pushed every
radio.push_interval, and requests received over the radio change the mask.

Use --simulate to run without sensor hardware.`,
	RunE: runFlight,
}

func init() {
	rootCmd.AddCommand(flightCmd)
	flightCmd.Flags().BoolVar(&flightSimulate, "simulate", false, "Use simulated sensors")
}

func runFlight(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	if flightSimulate {
		cfg.Devices.Simulate = true
	}
	logger := log.Named("flight")
	state := sensors.NewState()
	clk := clock.System()

	onFault := func(f devices.Fault) {
		logger.Warnf("Device fault: %v", &f)
	}
	scheduled, closers, err := devices.Setup(cfg.Devices, devices.HostHardware(cfg.Devices.I2CBus), state, clk, onFault)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
		if !cfg.Devices.Simulate {
			_ = devices.CloseI2C()
		}
	}()
	if err != nil {
		logger.Errorf("Device setup failed, affected devices disabled: %v", err)
	}

	sched := scheduler.New(scheduler.Options{Clock: clk, Logger: log.Named("scheduler")})
	defer sched.Stop()
	for _, s := range scheduled {
		sched.Register(s.Poller, s.Hz)
		logger.Infof("Polling %s at %v Hz", s.Poller.Name(), s.Hz)
	}

	responder := flight.NewResponder(state)
	var wg sync.WaitGroup

	if cfg.UDP.Enabled {
		sock, err := transport.ListenUDP(cfg.UDP.Listen, log.Named("udp"))
		if err != nil {
			return err
		}
		server := flight.NewServer(sock, responder, log.Named("server"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				logger.Errorf("UDP server stopped: %v", err)
			}
			received, malformed, answered := server.Counts()
			logger.Infof("UDP: %d received, %d malformed, %d answered, %d dropped", received, malformed, answered, server.Dropped())
		}()
	}

	if cfg.Radio.Enabled {
		if err := startFlightRadio(ctx, &wg, state, responder, log.Named("radio")); err != nil {
			return err
		}
	}

	fmt.Printf("Telelink - Flight\n")
	fmt.Printf("Devices: %d scheduled\n", len(scheduled))
	fmt.Printf("Press Ctrl+C to exit\n\n")

	<-ctx.Done()
	wg.Wait()
	for _, sd := range sched.Devices() {
		logger.Infof("%s: %d loops, %d errors, %.0f Hz measured", sd.Device().Name(), sd.Loops(), sd.Errors(), sd.MeasuredHz())
	}
	return nil
}

// startFlightRadio opens the radio and starts the telemetry pusher
func startFlightRadio(ctx context.Context, wg *sync.WaitGroup, state *sensors.State, responder *flight.Responder, logger *zap.SugaredLogger) error {
	conn, connInfo, err := OpenRadio(cfg.Radio)
	if err != nil {
		return err
	}
	logger.Infof("Radio connected (%s, API mode %v)", connInfo, cfg.Radio.APIMode)

	mask := sensors.Mask(cfg.Radio.Mask)
	var pusher *flight.Pusher
	var run func(context.Context) error

	if cfg.Radio.APIMode {
		link := radio.NewLink(conn, logger)
		pusher = flight.NewPusher(state, radio.NewAPISender(link, cfg.Radio.DestAddr), cfg.Radio.PushInterval, mask, logger)
		flight.AttachLink(link, pusher, responder, logger)
		run = link.Run
	} else {
		link := radio.NewStreamLink(conn, cfg.Radio.MaxPayload, logger)
		pusher = flight.NewPusher(state, link, cfg.Radio.PushInterval, mask, logger)
		handler := flight.StreamHandler(pusher, responder)
		run = func(ctx context.Context) error { return link.Run(ctx, handler) }
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := run(ctx); err != nil {
			logger.Errorf("Radio link stopped: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		pusher.Run(ctx)
		sent, failed := pusher.Counts()
		logger.Infof("Pushed %d reports, %d failed", sent, failed)
	}()
	return nil
}
