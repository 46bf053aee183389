// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Spalink - Intex PureSpa display bus decoder
//
// A CLI tool for decoding the bus between the mainboard and the control
// panel of a PureSpa whirlpool and for pressing its buttons.

//go:build !(tinygo && baremetal)

package main

import (
	"os"

	"github.com/Thermoquad/spalink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
