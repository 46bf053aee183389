// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build tinygo && baremetal

// Package board wires the display bus lines of a microcontroller to the
// decoder.
package board

import (
	"device"
	"machine"
	"time"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Pins are the bus lines, all inputs behind level shifters
type Pins struct {
	Clock machine.Pin
	Data  machine.Pin
	Latch machine.Pin
}

// Bus samples the lines on every rising clock edge and drives the reply
// pulse on the data line
type Bus struct {
	pins  Pins
	spa   *spabus.Spa
	delay uint32 // spin loops
	width uint32
}

// New configures the pins. The reply pulse is shaped by t.
func New(pins Pins, t spabus.Timing) *Bus {
	input := machine.PinConfig{Mode: machine.PinInput}
	pins.Clock.Configure(input)
	pins.Data.Configure(input)
	pins.Latch.Configure(input)

	return &Bus{
		pins:  pins,
		delay: spins(t.ReplyDelay),
		width: spins(t.ReplyWidth),
	}
}

// Start feeds the clock edges into spa
func (b *Bus) Start(spa *spabus.Spa) error {
	b.spa = spa
	return b.pins.Clock.SetInterrupt(machine.PinRising, b.onClock)
}

// Stop detaches the clock interrupt
func (b *Bus) Stop() error {
	return b.pins.Clock.SetInterrupt(0, nil)
}

func (b *Bus) onClock(machine.Pin) {
	b.spa.OnClockRising(b.pins.Data.Get(), b.pins.Latch.Get())
}

// Pulse pulls the data line low, it runs inside the clock interrupt and has
// to end before the next falling clock edge
func (b *Bus) Pulse() {
	spin(b.delay)
	b.pins.Data.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.pins.Data.Low()
	spin(b.width)
	b.pins.Data.Configure(machine.PinConfig{Mode: machine.PinInput})
}

// spins converts d into busy loop iterations, one iteration is about four
// cycles
func spins(d time.Duration) uint32 {
	cycles := uint64(machine.CPUFrequency()) * uint64(d) / uint64(time.Second)
	return uint32(cycles / 4)
}

func spin(n uint32) {
	for i := uint32(0); i < n; i++ {
		device.Asm("nop")
	}
}
