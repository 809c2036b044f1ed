// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Telelink - flight computer and ground station telemetry link
//
// A CLI tool that polls sensors on the flight computer, serves them over UDP
// and an XTend radio, and receives them at the ground station.

package main

import (
	"os"

	"github.com/Thermoquad/telelink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
