// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

import (
	"fmt"
	"strconv"
	"strings"
)

// Mask selects which sensor groups take part in encoding and decoding.
//
// A mask of zero selects every group; it does not mean "nothing". Bits above
// MaskAll are carried through unchanged and ignored.
type Mask uint8

// Sensor groups, in wire order
const (
	MaskAnalog        Mask = 0x01
	MaskBarometer     Mask = 0x02
	MaskAccelerometer Mask = 0x04
	MaskGyroscope     Mask = 0x08
	MaskGPS           Mask = 0x10

	MaskAll Mask = MaskAnalog | MaskBarometer | MaskAccelerometer | MaskGyroscope | MaskGPS
)

// groups lists every group in the fixed wire order
var groups = []Mask{MaskAnalog, MaskBarometer, MaskAccelerometer, MaskGyroscope, MaskGPS}

// Effective returns the groups actually selected by m (zero expands to MaskAll)
func (m Mask) Effective() Mask {
	if m == 0 {
		return MaskAll
	}
	return m & MaskAll
}

// Has reports whether group g is selected
func (m Mask) Has(g Mask) bool {
	return m.Effective()&g != 0
}

// String returns the group names joined with "|"
func (m Mask) String() string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		if m.Has(g) {
			names = append(names, groupName(g))
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

func groupName(g Mask) string {
	switch g {
	case MaskAnalog:
		return "ANALOG"
	case MaskBarometer:
		return "BAROMETER"
	case MaskAccelerometer:
		return "ACCELEROMETER"
	case MaskGyroscope:
		return "GYROSCOPE"
	case MaskGPS:
		return "GPS"
	default:
		return "UNKNOWN"
	}
}

// ParseMask reads a mask as a number ("0x1F", "31") or as group names joined
// with "|" or "," ("GPS|ANALOG"). Names are case-insensitive; "ALL" and the
// empty string select every group.
func ParseMask(s string) (Mask, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		return Mask(v), nil
	}

	var m Mask
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "ALL" {
			m |= MaskAll
			continue
		}
		found := false
		for _, g := range groups {
			if groupName(g) == name {
				m |= g
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown sensor group %q", name)
		}
	}
	return m, nil
}
