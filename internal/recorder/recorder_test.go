// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recorder

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

// ============================================================
// Helpers
// ============================================================

type bufferSink struct {
	bytes.Buffer
	appends int
	err     error
}

func (b *bufferSink) Append(p []byte) error {
	if b.err != nil {
		return b.err
	}
	b.appends++
	_, err := b.Write(p)
	return err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ============================================================
// Recorder Tests
// ============================================================

func TestRecorder_RoundTrip(t *testing.T) {
	sink := &bufferSink{}
	rec := New(sink, true, nil)
	stamp := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	rec.now = fixedClock(stamp)

	state := sensors.NewState()
	state.SetAnalog(1, 3.25)
	state.Gyroscope.SetAxes(-1, 2, -3)
	state.GPS.SetLongitude(-122.4194)
	snap := state.Snapshot()

	rec.OnSensorsUpdated(snap)
	rec.OnWatchdogTriggered()
	rec.OnLinkFrame(xbee.NewFrame([]byte{xbee.APITxStatus, 0x01, 0x00}))

	if sink.appends != 3 {
		t.Fatalf("appends = %d", sink.appends)
	}
	records, err := ReadRecords(&sink.Buffer)
	if err != nil {
		t.Fatalf("ReadRecords error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("read %d records", len(records))
	}

	kinds := []Kind{KindSnapshot, KindWatchdog, KindFrame}
	for i, r := range records {
		if r.Kind != kinds[i] {
			t.Errorf("record %d kind = %s, want %s", i, r.Kind, kinds[i])
		}
		if !r.Time.Equal(stamp) {
			t.Errorf("record %d time = %v", i, r.Time)
		}
	}
	if records[0].Snapshot == nil || *records[0].Snapshot != snap {
		t.Errorf("snapshot = %+v, want %+v", records[0].Snapshot, snap)
	}
	if records[1].Snapshot != nil || records[1].Frame != nil {
		t.Errorf("watchdog record carries data: %+v", records[1])
	}
	if !bytes.Equal(records[2].Frame, []byte{xbee.APITxStatus, 0x01, 0x00}) {
		t.Errorf("frame = % X", records[2].Frame)
	}
}

func TestRecorder_FramesDisabled(t *testing.T) {
	sink := &bufferSink{}
	rec := New(sink, false, nil)
	rec.OnLinkFrame(xbee.NewFrame([]byte{xbee.APIModemStatus, 0x00}))
	if sink.appends != 0 {
		t.Errorf("appends = %d, want 0", sink.appends)
	}
}

func TestRecorder_SinkFailure(t *testing.T) {
	sink := &bufferSink{err: errors.New("disk full")}
	rec := New(sink, true, nil)
	rec.OnWatchdogTriggered()
	rec.OnWatchdogTriggered()

	written, failed := rec.Counts()
	if written != 0 || failed != 2 {
		t.Errorf("Counts = %d, %d", written, failed)
	}
	if err := rec.Write(Record{Kind: KindWatchdog}); err == nil {
		t.Error("Write should return the sink error")
	}
}

func TestReadRecords_Truncated(t *testing.T) {
	sink := &bufferSink{}
	rec := New(sink, false, nil)
	rec.OnWatchdogTriggered()
	rec.OnWatchdogTriggered()

	data := sink.Bytes()
	records, err := ReadRecords(bytes.NewReader(data[:len(data)-2]))
	if err == nil {
		t.Fatal("expected an error for a truncated stream")
	}
	if len(records) != 1 {
		t.Errorf("records before error = %d, want 1", len(records))
	}
}

func TestFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.cbor")

	for i := 0; i < 2; i++ {
		sink, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile error: %v", err)
		}
		if err := New(sink, false, nil).Write(Record{Kind: KindWatchdog}); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer f.Close()
	records, err := ReadRecords(f)
	if err != nil {
		t.Fatalf("ReadRecords error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2 after reopening", len(records))
	}
}

func TestKind_String(t *testing.T) {
	if KindFrame.String() != "FRAME" || Kind(9).String() != "UNKNOWN(9)" {
		t.Errorf("String = %s, %s", KindFrame, Kind(9))
	}
}
