// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flight

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/telelink/internal/radio"
	"github.com/Thermoquad/telelink/internal/transport"
	"github.com/Thermoquad/telelink/pkg/datagram"
	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
)

// ============================================================
// Helpers
// ============================================================

func sampleState() *sensors.State {
	s := sensors.NewState()
	s.SetAnalog(0, 101.5)
	s.SetAnalog(3, -2.25)
	s.Barometer.SetRawTemperature(27898)
	s.Barometer.SetRawPressure(-1)
	s.Accelerometer.SetScale(0.000488)
	s.Accelerometer.SetAxes(1, -2, 2048)
	s.Gyroscope.SetAxes(-300, 0, 300)
	s.GPS.SetFix(1)
	s.GPS.SetSatellites(8)
	s.GPS.SetLatitude(48.1173)
	s.GPS.SetLongitude(11.5167)
	s.GPS.SetAltitude(545.4)
	return s
}

type sentMessage struct {
	seq     uint32
	id      uint8
	payload []byte
}

// recordingSender captures messages instead of transmitting them
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordingSender) SendMessage(seq uint32, id uint8, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMessage{seq, id, append([]byte(nil), payload...)})
	return nil
}

func (r *recordingSender) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

type nopConn struct{}

func (nopConn) Read([]byte) (int, error)    { return 0, io.EOF }
func (nopConn) Write(p []byte) (int, error) { return len(p), nil }
func (nopConn) Close() error                { return nil }

// ============================================================
// Responder Tests
// ============================================================

func TestResponder_SensorRequest(t *testing.T) {
	state := sampleState()
	r := NewResponder(state)

	tests := []struct {
		name    string
		payload []byte
		want    sensors.Mask
	}{
		{"empty payload selects all", nil, 0},
		{"gps only", []byte{byte(sensors.MaskGPS)}, sensors.MaskGPS},
		{"analog and gyro", []byte{byte(sensors.MaskAnalog | sensors.MaskGyroscope)}, sensors.MaskAnalog | sensors.MaskGyroscope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, payload, ok := r.Respond(datagram.NewMessage(7, datagram.IDSensorRequest, tt.payload))
			if !ok || id != datagram.IDSensorResponse {
				t.Fatalf("Respond = 0x%02X, %v", id, ok)
			}
			if !bytes.Equal(payload, sensors.EncodeReport(state, tt.want)) {
				t.Errorf("payload = % X", payload)
			}

			got := sensors.NewState()
			mask, err := sensors.DecodeReport(payload, got)
			if err != nil || mask != tt.want {
				t.Fatalf("DecodeReport = %v, %v", mask, err)
			}
			if tt.want.Has(sensors.MaskGPS) && got.GPS.Latitude() != 48.1173 {
				t.Errorf("latitude = %v", got.GPS.Latitude())
			}
			if !tt.want.Has(sensors.MaskBarometer) && got.Barometer.RawTemperature() != 0 {
				t.Errorf("unselected barometer decoded: %d", got.Barometer.RawTemperature())
			}
		})
	}
}

func TestResponder_PingAndUnknown(t *testing.T) {
	r := NewResponder(sensors.NewState())

	id, payload, ok := r.Respond(datagram.NewMessage(1, datagram.IDPing, []byte{1, 2, 3}))
	if !ok || id != datagram.IDPong || !bytes.Equal(payload, []byte{1, 2, 3}) {
		t.Errorf("ping reply = 0x%02X % X %v", id, payload, ok)
	}

	if _, _, ok := r.Respond(datagram.NewMessage(1, 0x7F, nil)); ok {
		t.Error("unknown id should get no reply")
	}
	if _, _, ok := r.Respond(datagram.NewMessage(1, datagram.IDSensorResponse, nil)); ok {
		t.Error("sensor response should get no reply")
	}
}

// ============================================================
// Server Tests
// ============================================================

func TestServer_AnswersOverUDP(t *testing.T) {
	sock, err := transport.ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	client, err := transport.ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer client.Close()

	state := sampleState()
	server := NewServer(sock, NewResponder(state), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	request := datagram.AppendMessage(nil, 42, datagram.IDSensorRequest, []byte{byte(sensors.MaskAccelerometer)})
	if err := client.SendTo(request, sock.LocalAddr()); err != nil {
		t.Fatalf("SendTo error: %v", err)
	}

	buf := make([]byte, transport.MaxDatagramSize)
	data, _, err := client.Receive(buf)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	reply, err := datagram.DecodeMessage(data, nil)
	if err != nil {
		t.Fatalf("DecodeMessage error: %v", err)
	}
	if reply.Sequence() != 42 || reply.ID() != datagram.IDSensorResponse {
		t.Errorf("reply seq=%d id=0x%02X", reply.Sequence(), reply.ID())
	}
	got := sensors.NewState()
	if _, err := sensors.DecodeReport(reply.Payload(), got); err != nil {
		t.Fatalf("DecodeReport error: %v", err)
	}
	if got.Accelerometer.Z() != 2048 {
		t.Errorf("accelerometer z = %d", got.Accelerometer.Z())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	received, _, answered := server.Counts()
	if received != 1 || answered != 1 {
		t.Errorf("Counts = %d received, %d answered", received, answered)
	}
}

func TestServer_DropsMalformed(t *testing.T) {
	sock, err := transport.ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer sock.Close()
	server := NewServer(sock, NewResponder(sensors.NewState()), nil)

	server.enqueue([]byte{0x01, 0x02}, sock.LocalAddr())
	_, malformed, _ := server.Counts()
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
	if server.queue.Len() != 0 {
		t.Errorf("queue length = %d, want 0", server.queue.Len())
	}
}

func TestServer_QueueKeepsNewest(t *testing.T) {
	sock, err := transport.ListenUDP("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenUDP error: %v", err)
	}
	defer sock.Close()
	server := NewServer(sock, NewResponder(sensors.NewState()), nil)

	for i := 0; i < 20; i++ {
		server.enqueue(datagram.AppendMessage(nil, uint32(i), datagram.IDPing, nil), sock.LocalAddr())
	}
	if server.Dropped() != 4 {
		t.Errorf("Dropped = %d, want 4", server.Dropped())
	}
	first, ok := server.queue.TryPoll()
	if !ok || first.Sequence() != 4 {
		t.Errorf("oldest queued = %v, %v; want seq 4", first, ok)
	}
}

// ============================================================
// Pusher Tests
// ============================================================

func TestPusher_PushSequencesAndMask(t *testing.T) {
	state := sampleState()
	sender := &recordingSender{}
	p := NewPusher(state, sender, time.Second, sensors.MaskBarometer, nil)

	for i := 0; i < 2; i++ {
		if err := p.Push(); err != nil {
			t.Fatalf("Push error: %v", err)
		}
	}
	p.SetMask(0)
	if err := p.Push(); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 3 {
		t.Fatalf("sent %d messages", len(msgs))
	}
	for i, m := range msgs {
		if m.seq != uint32(i+1) || m.id != datagram.IDSensorPush {
			t.Errorf("message %d: seq=%d id=0x%02X", i, m.seq, m.id)
		}
	}
	if !bytes.Equal(msgs[0].payload, sensors.EncodeReport(state, sensors.MaskBarometer)) {
		t.Errorf("first payload = % X", msgs[0].payload)
	}
	if !bytes.Equal(msgs[2].payload, sensors.EncodeReport(state, 0)) {
		t.Errorf("third payload = % X", msgs[2].payload)
	}
}

func TestPusher_SendFailureCounted(t *testing.T) {
	sender := &recordingSender{err: errors.New("radio gone")}
	p := NewPusher(sensors.NewState(), sender, time.Second, 0, nil)
	if err := p.Push(); err == nil {
		t.Fatal("Push should return the sender error")
	}
	sent, failed := p.Counts()
	if sent != 0 || failed != 1 {
		t.Errorf("Counts = %d, %d", sent, failed)
	}
}

func TestPusher_HandleRequestSetsMask(t *testing.T) {
	state := sampleState()
	sender := &recordingSender{}
	p := NewPusher(state, sender, time.Second, 0, nil)
	responder := NewResponder(state)

	p.HandleRequest(responder, datagram.NewMessage(99, datagram.IDSensorRequest, []byte{byte(sensors.MaskGPS)}))
	if p.Mask() != sensors.MaskGPS {
		t.Errorf("Mask = %v, want GPS", p.Mask())
	}
	p.HandleRequest(responder, datagram.NewMessage(100, datagram.IDPing, []byte{9}))
	if p.Mask() != sensors.MaskGPS {
		t.Errorf("ping changed mask to %v", p.Mask())
	}

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages", len(msgs))
	}
	if msgs[0].seq != 99 || msgs[0].id != datagram.IDSensorResponse {
		t.Errorf("sensor reply seq=%d id=0x%02X", msgs[0].seq, msgs[0].id)
	}
	if msgs[1].seq != 100 || msgs[1].id != datagram.IDPong || !bytes.Equal(msgs[1].payload, []byte{9}) {
		t.Errorf("pong = %+v", msgs[1])
	}
}

func TestPusher_Run(t *testing.T) {
	sender := &recordingSender{}
	p := NewPusher(sensors.NewState(), sender, 5*time.Millisecond, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(sender.messages()) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if n := len(sender.messages()); n < 3 {
		t.Errorf("pushed %d reports, want at least 3", n)
	}
}

// ============================================================
// Radio Glue Tests
// ============================================================

func TestAttachLink_AnswersRxPacket(t *testing.T) {
	state := sampleState()
	sender := &recordingSender{}
	p := NewPusher(state, sender, time.Second, 0, nil)
	link := radio.NewLink(nopConn{}, nil)
	AttachLink(link, p, NewResponder(state), nil)

	request := datagram.AppendMessage(nil, 5, datagram.IDSensorRequest, []byte{byte(sensors.MaskAnalog)})
	data := append([]byte{xbee.APIRxPacket16, 0x00, 0x01, 0x30, 0x00}, request...)
	raw, err := xbee.EncodeFrame(data)
	if err != nil {
		t.Fatalf("EncodeFrame error: %v", err)
	}
	// status frames are only logged
	status, _ := xbee.EncodeFrame([]byte{xbee.APITxStatus, 0x01, xbee.TxStatusNoAck})
	link.Feed(append(raw, status...))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages", len(msgs))
	}
	if msgs[0].seq != 5 || !bytes.Equal(msgs[0].payload, sensors.EncodeReport(state, sensors.MaskAnalog)) {
		t.Errorf("reply = %+v", msgs[0])
	}
	if p.Mask() != sensors.MaskAnalog {
		t.Errorf("Mask = %v", p.Mask())
	}
}

func TestStreamHandler(t *testing.T) {
	sender := &recordingSender{}
	state := sensors.NewState()
	p := NewPusher(state, sender, time.Second, 0, nil)
	handle := StreamHandler(p, NewResponder(state))

	handle(datagram.NewMessage(3, datagram.IDPing, []byte("hi")))
	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0].id != datagram.IDPong || string(msgs[0].payload) != "hi" {
		t.Errorf("sent = %+v", msgs)
	}
}
