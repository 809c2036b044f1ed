// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if parsed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = parsed
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomState fills every field with random finite values
func randomState(rng *rand.Rand) *State {
	s := NewState()
	for ch := 0; ch < AnalogChannels; ch++ {
		s.SetAnalog(ch, (rng.Float32()-0.5)*10000)
	}
	s.Barometer.SetRawTemperature(rng.Int31() - rng.Int31())
	s.Barometer.SetRawPressure(rng.Int31() - rng.Int31())
	s.Accelerometer.SetScale(rng.Float32())
	s.Accelerometer.SetAxes(int16(rng.Intn(65536)-32768), int16(rng.Intn(65536)-32768), int16(rng.Intn(65536)-32768))
	s.Gyroscope.SetScale(rng.Float32() * 100)
	s.Gyroscope.SetAxes(int16(rng.Intn(65536)-32768), int16(rng.Intn(65536)-32768), int16(rng.Intn(65536)-32768))
	s.GPS.SetFix(int32(rng.Intn(4)))
	s.GPS.SetSatellites(int32(rng.Intn(24)))
	s.GPS.SetLatitude((rng.Float64() - 0.5) * 180)
	s.GPS.SetLongitude((rng.Float64() - 0.5) * 360)
	s.GPS.SetAltitude(rng.Float64() * 30000)
	return s
}

// assertMaskedEqual compares the fields selected by m by bit pattern
func assertMaskedEqual(t *testing.T, want, got *State, m Mask) {
	t.Helper()
	if m.Has(MaskAnalog) {
		for ch := 0; ch < AnalogChannels; ch++ {
			if math.Float32bits(want.Analog(ch)) != math.Float32bits(got.Analog(ch)) {
				t.Errorf("mask %s: analog[%d] = %v, want %v", m, ch, got.Analog(ch), want.Analog(ch))
			}
		}
	}
	if m.Has(MaskBarometer) {
		if want.Barometer.RawTemperature() != got.Barometer.RawTemperature() ||
			want.Barometer.RawPressure() != got.Barometer.RawPressure() {
			t.Errorf("mask %s: barometer mismatch", m)
		}
	}
	if m.Has(MaskAccelerometer) && want.Accelerometer.reading() != got.Accelerometer.reading() {
		t.Errorf("mask %s: accelerometer = %+v, want %+v", m, got.Accelerometer.reading(), want.Accelerometer.reading())
	}
	if m.Has(MaskGyroscope) && want.Gyroscope.reading() != got.Gyroscope.reading() {
		t.Errorf("mask %s: gyroscope = %+v, want %+v", m, got.Gyroscope.reading(), want.Gyroscope.reading())
	}
	if m.Has(MaskGPS) {
		if math.Float64bits(want.GPS.Latitude()) != math.Float64bits(got.GPS.Latitude()) ||
			math.Float64bits(want.GPS.Longitude()) != math.Float64bits(got.GPS.Longitude()) ||
			math.Float64bits(want.GPS.Altitude()) != math.Float64bits(got.GPS.Altitude()) {
			t.Errorf("mask %s: gps mismatch", m)
		}
	}
}

// ============================================================
// Mask Tests
// ============================================================

func TestMask_ZeroMeansAll(t *testing.T) {
	if Mask(0).Effective() != MaskAll {
		t.Errorf("Mask(0).Effective() = 0x%02X, want 0x%02X", Mask(0).Effective(), MaskAll)
	}
	for _, g := range groups {
		if !Mask(0).Has(g) {
			t.Errorf("Mask(0) should select %s", groupName(g))
		}
	}
	if EncodedSize(0) != EncodedSize(MaskAll) {
		t.Errorf("EncodedSize(0) = %d, want %d", EncodedSize(0), EncodedSize(MaskAll))
	}
}

func TestMask_String(t *testing.T) {
	tests := []struct {
		mask     Mask
		expected string
	}{
		{MaskAnalog, "ANALOG"},
		{MaskBarometer | MaskGPS, "BAROMETER|GPS"},
		{0, "ANALOG|BAROMETER|ACCELEROMETER|GYROSCOPE|GPS"},
		{0x20, "NONE"},
	}
	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.expected {
			t.Errorf("Mask(0x%02X).String() = %q, want %q", uint8(tt.mask), got, tt.expected)
		}
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		input    string
		expected Mask
		wantErr  bool
	}{
		{"", 0, false},
		{"0x1F", MaskAll, false},
		{"4", MaskAccelerometer, false},
		{"gps|analog", MaskGPS | MaskAnalog, false},
		{" BAROMETER, gyroscope ", MaskBarometer | MaskGyroscope, false},
		{"all", MaskAll, false},
		{"compass", 0, true},
		{"256", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMask(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMask(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseMask(%q) = 0x%02X, want 0x%02X", tt.input, uint8(got), uint8(tt.expected))
		}
	}
}

// ============================================================
// Codec Tests
// ============================================================

func TestEncodedSize(t *testing.T) {
	tests := []struct {
		mask     Mask
		expected int
	}{
		{MaskAnalog, 16},
		{MaskBarometer, 8},
		{MaskAccelerometer, 10},
		{MaskGyroscope, 10},
		{MaskGPS, 24},
		{MaskAll, 68},
		{0, 68},
	}
	for _, tt := range tests {
		if got := EncodedSize(tt.mask); got != tt.expected {
			t.Errorf("EncodedSize(%s) = %d, want %d", tt.mask, got, tt.expected)
		}
		if got := len(Encode(NewState(), tt.mask)); got != tt.expected {
			t.Errorf("len(Encode(%s)) = %d, want %d", tt.mask, got, tt.expected)
		}
	}
}

func TestEncode_Layout(t *testing.T) {
	s := NewState()
	s.Barometer.SetRawTemperature(0x01020304)
	s.Barometer.SetRawPressure(-2)
	s.Accelerometer.SetScale(1.0)
	s.Accelerometer.SetAxes(1, -1, 0x0203)

	got := Encode(s, MaskBarometer|MaskAccelerometer)
	expected := []byte{
		0x01, 0x02, 0x03, 0x04, // raw temperature
		0xFF, 0xFF, 0xFF, 0xFE, // raw pressure
		0x3F, 0x80, 0x00, 0x00, // scale 1.0
		0x00, 0x01, // x
		0xFF, 0xFF, // y
		0x02, 0x03, // z
	}
	if string(got) != string(expected) {
		t.Errorf("Encode layout mismatch:\n got % X\nwant % X", got, expected)
	}
}

func TestEncode_GroupOrderIndependentOfBitOrder(t *testing.T) {
	s := NewState()
	s.SetAnalog(0, 1.5)
	s.GPS.SetLatitude(45.0)

	got := Encode(s, MaskGPS|MaskAnalog)
	if len(got) != 16+24 {
		t.Fatalf("unexpected length %d", len(got))
	}
	// Analog precedes GPS regardless of mask bit order
	if got[0] != 0x3F || got[1] != 0xC0 {
		t.Errorf("expected analog[0]=1.5 first, got % X", got[:4])
	}
	if got[16] != 0x40 || got[17] != 0x46 {
		t.Errorf("expected latitude 45.0 after analog, got % X", got[16:24])
	}
}

func TestDecode_RoundTripAllMasks(t *testing.T) {
	rng := newFuzzRng(t)
	for m := 0; m <= int(MaskAll); m++ {
		mask := Mask(m)
		src := randomState(rng)
		dst := NewState()

		n, err := Decode(Encode(src, mask), mask, dst)
		if err != nil {
			t.Fatalf("mask %s: decode error: %v", mask, err)
		}
		if n != EncodedSize(mask) {
			t.Errorf("mask %s: consumed %d bytes, want %d", mask, n, EncodedSize(mask))
		}
		assertMaskedEqual(t, src, dst, mask)
	}
}

func TestDecode_OnlyMaskedFieldsChange(t *testing.T) {
	src := NewState()
	src.Gyroscope.SetScale(2.5)
	src.Gyroscope.SetAxes(10, 20, 30)

	dst := NewState()
	dst.SetAnalog(2, 123.5)
	dst.GPS.SetAltitude(1000)

	if _, err := Decode(Encode(src, MaskGyroscope), MaskGyroscope, dst); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if dst.Analog(2) != 123.5 {
		t.Errorf("analog[2] changed to %v", dst.Analog(2))
	}
	if dst.GPS.Altitude() != 1000 {
		t.Errorf("altitude changed to %v", dst.GPS.Altitude())
	}
	if dst.Gyroscope.Y() != 20 {
		t.Errorf("gyroscope y = %d, want 20", dst.Gyroscope.Y())
	}
}

func TestDecode_Truncated(t *testing.T) {
	for _, mask := range []Mask{MaskAnalog, MaskGPS, MaskAll, 0} {
		buf := Encode(NewState(), mask)
		for cut := 0; cut < len(buf); cut++ {
			dst := NewState()
			dst.Barometer.SetRawPressure(77)
			_, err := Decode(buf[:cut], mask, dst)
			if !errors.Is(err, ErrTruncatedInput) {
				t.Fatalf("mask %s len %d: expected ErrTruncatedInput, got %v", mask, cut, err)
			}
			if dst.Barometer.RawPressure() != 77 {
				t.Fatalf("mask %s len %d: state modified by truncated decode", mask, cut)
			}
		}
	}
}

func TestReport_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	src := randomState(rng)
	report := EncodeReport(src, MaskAccelerometer|MaskGPS)
	if report[0] != byte(MaskAccelerometer|MaskGPS) {
		t.Errorf("report mask byte = 0x%02X", report[0])
	}

	dst := NewState()
	m, err := DecodeReport(report, dst)
	if err != nil {
		t.Fatalf("DecodeReport error: %v", err)
	}
	if m != MaskAccelerometer|MaskGPS {
		t.Errorf("mask = %s", m)
	}
	assertMaskedEqual(t, src, dst, m)

	if _, err := DecodeReport(nil, dst); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("expected ErrTruncatedInput for empty report, got %v", err)
	}
}

func TestFuzz_RandomMaskedRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	for i := 0; i < rounds; i++ {
		mask := Mask(rng.Intn(256))
		src := randomState(rng)
		dst := NewState()
		if _, err := Decode(Encode(src, mask), mask, dst); err != nil {
			t.Fatalf("round %d mask 0x%02X: %v", i, uint8(mask), err)
		}
		assertMaskedEqual(t, src, dst, mask)
	}
}

// ============================================================
// State Tests
// ============================================================

func TestSnapshot_RestoreRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	src := randomState(rng)
	dst := NewState()
	dst.Restore(src.Snapshot())
	if src.Snapshot() != dst.Snapshot() {
		t.Errorf("snapshot mismatch after restore:\n got %+v\nwant %+v", dst.Snapshot(), src.Snapshot())
	}
}
