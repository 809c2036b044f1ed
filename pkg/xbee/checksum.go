// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xbee

// Checksum computes the API frame checksum over frame data: 0xFF minus the low
// byte of the sum of all bytes. Bytes are summed as signed 8-bit values; the
// low byte of the two's complement sum is the same as for unsigned bytes.
func Checksum(data []byte) byte {
	sum := 0
	for _, b := range data {
		sum += int(int8(b))
	}
	return byte(0xFF - (sum & 0xFF))
}

// Verify checks frame data against a received checksum byte. The bytes and
// the checksum are added in a signed 8-bit accumulator, which wraps on every
// addition, and the total must equal 0xFF (-1 as a signed byte).
func Verify(data []byte, checksum byte) bool {
	var sum int8
	for _, b := range data {
		sum += int8(b)
	}
	sum += int8(checksum)
	return sum == -1
}
