// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"time"
)

// Timing holds the debounce and button timing constants. The defaults were
// tuned against real panels; they are configurable so that other panel
// revisions can be validated without rebuilding.
//
// Frame distances are counted in bus frames as seen by the frame counter,
// confirmation thresholds in consecutive identical observations.
type Timing struct {
	// CyclePeriod is the period of one complete frame cycle
	CyclePeriod time.Duration

	// ConfirmFrames is the number of identical observations required before a
	// display composite, an LED mask, a duration or a blinking setpoint is
	// trusted
	ConfirmFrames uint32

	// ConfirmNotBlinking is the number of display confirmations required before
	// an actual temperature is published, must be high enough to tell it
	// apart from a blinking setpoint
	ConfirmNotBlinking uint32

	// BlinkPeriod is the blink period of the setpoint display
	BlinkPeriod time.Duration

	// BlinkTempFrames is the window after a blank display in which a new
	// setpoint value is accepted
	BlinkTempFrames uint32

	// BlinkStoppedFrames is the blank-free distance after which blinking is
	// considered over, must be longer than one blink period
	BlinkStoppedFrames uint32

	// DesiredBlinkCycles is the number of blink cycles that must have passed
	// before a blinking setpoint is published
	DesiredBlinkCycles uint32

	// PressCycles is the number of cycles a toggle button is held, long enough
	// to trigger the buzzer
	PressCycles uint32

	// TapCycles is the number of cycles a temperature button is held, long
	// enough to trigger but short enough to avoid a double step
	TapCycles uint32

	// AckCheckPeriod is the polling interval of blocking commands
	AckCheckPeriod time.Duration

	// AckTimeout bounds the wait for a press acknowledgement
	AckTimeout time.Duration

	// SettleDelay follows a quiet buzzer before the next press, avoids
	// triggering the panel's auto repeat
	SettleDelay time.Duration

	// ReadbackPeriod is the polling interval of setpoint readbacks
	ReadbackPeriod time.Duration

	// ReceiveTimeout is the time without a confirmed LED publish after which
	// the link is considered offline
	ReceiveTimeout time.Duration

	// ReplyDelay and ReplyWidth shape the reply pulse relative to the latch edge
	ReplyDelay time.Duration
	ReplyWidth time.Duration
}

// DefaultTiming derives the timing of a model from its frame cycle
func DefaultTiming(cfg ModelConfig) Timing {
	const (
		cycleMs = 21
		blinkMs = 500
		tapMs   = 380
	)

	// frames per millisecond, integer arithmetic as measured on the bus
	framesPerMs := (CueFramesPerCycle + cfg.ButtonFrames()) / cycleMs
	if framesPerMs < 1 {
		framesPerMs = 1
	}

	pressCycles := blinkMs / cycleMs
	cycle := cycleMs * time.Millisecond

	return Timing{
		CyclePeriod:   cycle,
		ConfirmFrames: 4,
		// +1 counts the first sighting of a new value
		ConfirmNotBlinking: uint32(blinkMs/2*framesPerMs/DisplayGroupsPerCycle) + 1,
		BlinkPeriod:        blinkMs * time.Millisecond,
		BlinkTempFrames:    uint32(blinkMs / 4 * framesPerMs),
		BlinkStoppedFrames: uint32(2 * blinkMs * framesPerMs),
		DesiredBlinkCycles: 2,
		PressCycles:        uint32(pressCycles),
		TapCycles:          uint32(tapMs / cycleMs),
		AckCheckPeriod:     10 * time.Millisecond,
		AckTimeout:         time.Duration(2*pressCycles) * cycle,
		SettleDelay:        2 * cycle,
		ReadbackPeriod:     5 * cycle,
		ReceiveTimeout:     50 * cycle,
		ReplyDelay:         1 * time.Microsecond,
		ReplyWidth:         3 * time.Microsecond,
	}
}

// Validate checks the timing for values the decoder cannot work with
func (t Timing) Validate() error {
	switch {
	case t.CyclePeriod <= 0:
		return fmt.Errorf("cycle period must be positive")
	case t.ConfirmFrames < 2:
		return fmt.Errorf("confirm frames must be at least 2, got %d", t.ConfirmFrames)
	case t.ConfirmNotBlinking < 2:
		return fmt.Errorf("not blinking confirmations must be at least 2, got %d", t.ConfirmNotBlinking)
	case t.BlinkPeriod <= 0:
		return fmt.Errorf("blink period must be positive")
	case t.BlinkStoppedFrames <= t.BlinkTempFrames:
		return fmt.Errorf("blink stopped frames (%d) must exceed blink temp frames (%d)", t.BlinkStoppedFrames, t.BlinkTempFrames)
	case t.PressCycles == 0 || t.TapCycles == 0:
		return fmt.Errorf("press and tap cycles must be positive")
	case t.TapCycles > t.PressCycles:
		return fmt.Errorf("tap cycles (%d) must not exceed press cycles (%d)", t.TapCycles, t.PressCycles)
	case t.AckCheckPeriod <= 0:
		return fmt.Errorf("ack check period must be positive")
	case t.AckTimeout < t.AckCheckPeriod:
		return fmt.Errorf("ack timeout must be at least one check period")
	case t.ReadbackPeriod <= 0:
		return fmt.Errorf("readback period must be positive")
	case t.ReceiveTimeout <= 0:
		return fmt.Errorf("receive timeout must be positive")
	}
	return nil
}
