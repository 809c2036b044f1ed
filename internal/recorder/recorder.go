// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recorder logs ground station events as a stream of CBOR records.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// Kind identifies what a record holds
type Kind uint8

const (
	KindSnapshot Kind = 1
	KindWatchdog Kind = 2
	KindFrame    Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "SNAPSHOT"
	case KindWatchdog:
		return "WATCHDOG"
	case KindFrame:
		return "FRAME"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Record is one logged event. Frame holds the API frame data without the
// delimiter, length and checksum.
type Record struct {
	Time     time.Time         `cbor:"1,keyasint"`
	Kind     Kind              `cbor:"2,keyasint"`
	Snapshot *sensors.Snapshot `cbor:"3,keyasint,omitempty"`
	Frame    []byte            `cbor:"4,keyasint,omitempty"`
}

// Sink stores encoded records. Each Append receives exactly one record.
type Sink interface {
	Append(p []byte) error
}

// FileSink appends records to a file
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFile opens path for appending, creating it if needed
func OpenFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.file.Write(p)
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder writes listener events to a sink. It satisfies ground.Listener.
type Recorder struct {
	sink   Sink
	frames bool
	now    func() time.Time
	logger *zap.SugaredLogger

	written atomic.Uint64
	failed  atomic.Uint64
}

// New records to sink. Link frames are recorded only when frames is set.
func New(sink Sink, frames bool, logger *zap.SugaredLogger) *Recorder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{sink: sink, frames: frames, now: time.Now, logger: logger}
}

func (r *Recorder) OnSensorsUpdated(s sensors.Snapshot) {
	r.write(Record{Kind: KindSnapshot, Snapshot: &s})
}

func (r *Recorder) OnWatchdogTriggered() {
	r.write(Record{Kind: KindWatchdog})
}

func (r *Recorder) OnLinkFrame(f *xbee.Frame) {
	if !r.frames {
		return
	}
	r.write(Record{Kind: KindFrame, Frame: f.Data()})
}

// Write encodes and appends one record, stamping it if Time is zero
func (r *Recorder) Write(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = r.now()
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.sink.Append(data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (r *Recorder) write(rec Record) {
	if err := r.Write(rec); err != nil {
		r.failed.Add(1)
		r.logger.Warnf("Record %s dropped: %v", rec.Kind, err)
		return
	}
	r.written.Add(1)
}

// Counts returns records written and dropped
func (r *Recorder) Counts() (written, failed uint64) {
	return r.written.Load(), r.failed.Load()
}

// ReadRecords decodes every record in r
func ReadRecords(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}
