// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"errors"
	"fmt"
)

// ErrIdentity is returned when a chip's identity register does not match
var ErrIdentity = errors.New("device identity mismatch")

// FaultKind classifies a device fault
type FaultKind int

const (
	// FaultADCZero is a conversion that returned the zero sentinel
	FaultADCZero FaultKind = iota + 1
	// FaultSaturated is a conversion pinned at full scale
	FaultSaturated
)

func (k FaultKind) String() string {
	switch k {
	case FaultADCZero:
		return "ADC_ZERO"
	case FaultSaturated:
		return "SATURATED"
	default:
		return fmt.Sprintf("FAULT(%d)", int(k))
	}
}

// Fault is a reading the hardware produced but that cannot be trusted.
// Drivers return it as an error; pollers route it to a FaultHandler instead of
// the sensor state.
type Fault struct {
	Device string
	Kind   FaultKind
	Detail string
}

func (f *Fault) Error() string {
	if f.Device == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("%s %s: %s", f.Device, f.Kind, f.Detail)
}

// FaultHandler receives device faults
type FaultHandler func(Fault)
