// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build tinygo && baremetal

package main

import (
	"machine"
	"time"

	"github.com/Thermoquad/spalink/internal/board"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Pins of the probe board, an RP2040 behind 5 V level shifters
var pins = board.Pins{
	Clock: machine.GP2,
	Data:  machine.GP3,
	Latch: machine.GP4,
}

const (
	model       = spabus.ModelSBH20
	linkPeriod  = 100 * time.Millisecond
	reportEvery = 50 // link checks
)

func main() {
	cfg, err := spabus.ConfigFor(model)
	if err != nil {
		println("config:", err.Error())
		return
	}

	bus := board.New(pins, spabus.DefaultTiming(cfg))
	spa, err := spabus.New(model, spabus.WithReplyLine(bus))
	if err != nil {
		println("decoder:", err.Error())
		return
	}
	if err := bus.Start(spa); err != nil {
		println("clock interrupt:", err.Error())
		return
	}

	online := false
	for i := 0; ; i++ {
		time.Sleep(linkPeriod)
		if now := spa.CheckLink(); now != online {
			online = now
			println("link online:", online)
		}
		if i%reportEvery == 0 {
			print(spabus.FormatState(spa))
		}
	}
}
