// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Thermoquad/telelink/internal/ground"
	"github.com/Thermoquad/telelink/internal/log"
	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/internal/recorder"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/watchdog"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	groundRecordPath   string
	groundRecordFrames bool
)

var groundCmd = &cobra.Command{
	Use:   "ground",
	Short: "Run the ground station side of the link",
	Long: `Poll the flight computer over UDP and receive radio telemetry.

Sensor reports from either path are applied to the ground copy of the sensor
state. Every valid radio frame resets the watchdog; while it is expired the
alarm is raised on every check interval.

With --record, each update is appended to a CBOR record file.`,
	RunE: runGround,
}

func init() {
	rootCmd.AddCommand(groundCmd)
	addRecordFlags(groundCmd)
}

func addRecordFlags(c *cobra.Command) {
	c.Flags().StringVar(&groundRecordPath, "record", "", "Append CBOR records to this file (overrides record.path)")
	c.Flags().BoolVar(&groundRecordFrames, "record-frames", false, "Also record raw radio frames")
}

// groundStation owns everything the ground side runs
type groundStation struct {
	state    *sensors.State
	watchdog *watchdog.Watchdog
	client   *ground.Client    // nil without UDP
	receiver *ground.Receiver  // nil without radio
	link     *radio.Link       // API mode only
	stream   *radio.StreamLink // transparent mode only
	recorder *recorder.Recorder
	connInfo string
	requests atomic.Uint32 // radio request sequence

	wg      sync.WaitGroup
	closers []io.Closer
}

// startGround starts the enabled ground components. Events go to listener.
func startGround(ctx context.Context, listener ground.Listener) (*groundStation, error) {
	gs := &groundStation{state: sensors.NewState()}
	listeners := ground.Listeners{listener}

	path := cfg.Record.Path
	if groundRecordPath != "" {
		path = groundRecordPath
	}
	if path != "" {
		sink, err := recorder.OpenFile(path)
		if err != nil {
			return nil, err
		}
		gs.closers = append(gs.closers, sink)
		gs.recorder = recorder.New(sink, groundRecordFrames, log.Named("recorder"))
		log.Infof("Recording to %s (frames %v)", path, groundRecordFrames)
		listeners = append(listeners, gs.recorder)
	}

	gs.watchdog = watchdog.New(nil, cfg.Radio.WatchdogInterval, listeners.OnWatchdogTriggered)
	if cfg.Radio.WatchdogTimeout > 0 {
		gs.watchdog.EnableTimeout(cfg.Radio.WatchdogTimeout)
	}
	if cfg.Radio.Countdown > 0 {
		gs.watchdog.StartCountdown(cfg.Radio.Countdown)
	}
	gs.goRun(func() { gs.watchdog.Run(ctx) })

	if cfg.UDP.Enabled {
		if err := gs.startUDP(ctx, listeners); err != nil {
			gs.close()
			return nil, err
		}
	}
	if cfg.Radio.Enabled {
		if err := gs.startRadio(ctx, listeners, log.Named("radio")); err != nil {
			gs.close()
			return nil, err
		}
	}
	return gs, nil
}

func (gs *groundStation) startUDP(ctx context.Context, listener ground.Listener) error {
	server, err := net.ResolveUDPAddr("udp", cfg.UDP.Server)
	if err != nil {
		return fmt.Errorf("invalid udp.server %q: %w", cfg.UDP.Server, err)
	}
	sock, err := transport.ListenUDP(":0", log.Named("udp"))
	if err != nil {
		return err
	}
	gs.client = ground.NewClient(sock, server, gs.state, listener, ground.ClientOptions{
		Interval: cfg.UDP.PingInterval,
		Mask:     sensors.Mask(cfg.UDP.Mask),
		Logger:   log.Named("client"),
	})
	gs.goRun(func() {
		if err := gs.client.Run(ctx); err != nil {
			log.Errorf("UDP client stopped: %v", err)
		}
	})
	return nil
}

func (gs *groundStation) startRadio(ctx context.Context, listener ground.Listener, logger *zap.SugaredLogger) error {
	conn, connInfo, err := OpenRadio(cfg.Radio)
	if err != nil {
		return err
	}
	gs.connInfo = connInfo
	gs.receiver = ground.NewReceiver(gs.state, listener, gs.watchdog, logger)
	if cfg.Radio.APIMode {
		gs.link = radio.NewLink(conn, logger)
		gs.receiver.Attach(gs.link)
		gs.goRun(func() {
			if err := gs.link.Run(ctx); err != nil {
				logger.Errorf("Radio link stopped: %v", err)
			}
		})
	} else {
		gs.stream = radio.NewStreamLink(conn, cfg.Radio.MaxPayload, logger)
		gs.goRun(func() {
			if err := gs.stream.Run(ctx, gs.receiver.HandleStreamMessage); err != nil {
				logger.Errorf("Radio link stopped: %v", err)
			}
		})
	}
	if err := gs.requestOverRadio(sensors.Mask(cfg.Radio.Mask)); err != nil {
		logger.Warnf("Initial mask request failed: %v", err)
	}
	logger.Infof("Radio connected (%s, API mode %v)", connInfo, cfg.Radio.APIMode)
	return nil
}

// SetMask changes the groups requested over every enabled path
func (gs *groundStation) SetMask(m sensors.Mask) error {
	if gs.client != nil {
		gs.client.SetMask(m)
	}
	return gs.requestOverRadio(m)
}

func (gs *groundStation) requestOverRadio(m sensors.Mask) error {
	seq := gs.requests.Add(1)
	payload := []byte{byte(m)}
	switch {
	case gs.link != nil:
		return radio.NewAPISender(gs.link, cfg.Radio.DestAddr).SendMessage(seq, datagram.IDSensorRequest, payload)
	case gs.stream != nil:
		return gs.stream.SendMessage(seq, datagram.IDSensorRequest, payload)
	}
	return nil
}

func (gs *groundStation) goRun(fn func()) {
	gs.wg.Add(1)
	go func() {
		defer gs.wg.Done()
		fn()
	}()
}

// wait blocks until every component has stopped, then releases resources
func (gs *groundStation) wait() {
	gs.wg.Wait()
	gs.close()
}

func (gs *groundStation) close() {
	for _, c := range gs.closers {
		_ = c.Close()
	}
	gs.closers = nil
}

// logListener reports ground events through the logger
type logListener struct {
	logger *zap.SugaredLogger
}

func (l logListener) OnSensorsUpdated(s sensors.Snapshot) {
	l.logger.Debugf("Sensors: baro T=%d P=%d accel=(%d,%d,%d) gps=(%.6f,%.6f,%.1f)",
		s.Barometer.RawTemperature, s.Barometer.RawPressure,
		s.Accel.X, s.Accel.Y, s.Accel.Z,
		s.GPS.Latitude, s.GPS.Longitude, s.GPS.Altitude)
}

func (l logListener) OnWatchdogTriggered() {
	l.logger.Warnf("Watchdog: no link activity")
}

func (l logListener) OnLinkFrame(f *xbee.Frame) {
	l.logger.Debugf("Frame: %s", xbee.FormatFrameType(f.Identifier()))
}

func runGround(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	logger := log.Named("ground")
	gs, err := startGround(ctx, logListener{logger: logger})
	if err != nil {
		return err
	}

	fmt.Printf("Telelink - Ground Station\n")
	if gs.connInfo != "" {
		fmt.Printf("Connection: %s\n", gs.connInfo)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	<-ctx.Done()
	gs.wait()

	if gs.client != nil {
		c := gs.client.Counts()
		logger.Infof("UDP: %d applied, %d stale, %d malformed, %d dropped, round trip %v",
			c.Applied, c.Stale, c.Malformed, gs.client.Dropped(), gs.client.RoundTrip())
	}
	if gs.receiver != nil {
		c := gs.receiver.Counts()
		logger.Infof("Radio: %d applied, %d stale, %d malformed", c.Applied, c.Stale, c.Malformed)
	}
	if gs.link != nil {
		fmt.Print(gs.link.Statistics().String())
	}
	if gs.recorder != nil {
		written, failed := gs.recorder.Counts()
		logger.Infof("Recorded %d records, %d failed", written, failed)
	}
	return nil
}
