// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package panelsim simulates the mainboard side of a PureSpa display bus.
//
// A Panel generates complete frame cycles from a spa state and reacts to the
// reply pulses of a decoder the way the real mainboard does: a button held for
// a few cycles triggers its function once and sounds the buzzer.
package panelsim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Sink receives the clock edges of the bus
type Sink interface {
	OnClockRising(data, latch bool)
}

// Options tune the panel behaviour, zero values select the defaults
type Options struct {
	AckPulses          int  // consecutive pulsed cycles before a press registers
	BeepCycles         int  // buzzer duration
	BlinkHalfCycles    int  // duration of one blink phase
	BlinkTimeoutCycles int  // blinking ends this long after the last temperature press
	DurationCycles     int  // the disinfection duration is shown this long after a press
	Silent             bool // never sound the buzzer
}

func (o *Options) setDefaults() {
	if o.AckPulses <= 0 {
		o.AckPulses = 3
	}
	if o.BeepCycles <= 0 {
		o.BeepCycles = 8
	}
	if o.BlinkHalfCycles <= 0 {
		o.BlinkHalfCycles = 12
	}
	if o.BlinkTimeoutCycles <= 0 {
		o.BlinkTimeoutCycles = 240
	}
	if o.DurationCycles <= 0 {
		o.DurationCycles = 100
	}
}

// State is the spa state shown by the panel. Temperatures are in Unit.
type State struct {
	Power        bool
	Filter       bool
	Bubble       bool
	Heater       bool
	Jet          bool
	Disinfection int // hours: 0, 3, 5 or 8
	Actual       int
	Setpoint     int
	Unit         byte // 'C' or 'F'
	Error        string
}

// DefaultState is a powered spa at 30 °C with a setpoint of 35 °C
func DefaultState() State {
	return State{Power: true, Actual: 30, Setpoint: 35, Unit: 'C'}
}

// Panel is a simulated mainboard
type Panel struct {
	mu   sync.Mutex
	cfg  spabus.ModelConfig
	opts Options

	st State

	cycle         int
	blinkStart    int
	blinkUntil    int
	durationUntil int
	beepUntil     int

	// reply tracking, only touched while a cycle is sent
	inButton bool
	current  spabus.Button
	pulsed   [16]bool
	held     [16]int
	fired    [16]bool

	presses [16]int
}

// New creates a panel for a model
func New(cfg spabus.ModelConfig, opts Options) *Panel {
	opts.setDefaults()
	return &Panel{
		cfg:  cfg,
		opts: opts,
		st:   DefaultState(),
	}
}

// Model returns the protocol table of the panel
func (p *Panel) Model() spabus.ModelConfig {
	return p.cfg
}

// State returns the current spa state
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// SetState replaces the spa state
func (p *Panel) SetState(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st.Unit != 'F' {
		st.Unit = 'C'
	}
	p.st = st
}

// Update changes the spa state under the panel lock
func (p *Panel) Update(fn func(st *State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.st)
}

// Presses returns how often a button function was triggered
func (p *Panel) Presses(b spabus.Button) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presses[b]
}

// Cycles returns the number of frame cycles sent
func (p *Panel) Cycles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

// Display returns the text currently shown
func (p *Panel) Display() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayText()
}

// Pulse registers a reply pulse for the button frame being sent. It is called
// by the decoder from within RunCycle.
func (p *Panel) Pulse() {
	if p.inButton {
		p.pulsed[p.current] = true
	}
}

// RunCycle sends one complete frame cycle to sink
func (p *Panel) RunCycle(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := p.displayText()
	led := p.ledFrame()

	for g := 0; g < spabus.DisplayGroupsPerCycle; g++ {
		for pos := 1; pos <= 4; pos++ {
			SendFrame(sink, spabus.FrameCue)
			SendFrame(sink, spabus.DigitFrame(pos, text[pos-1]))
		}
		SendFrame(sink, spabus.FrameCue)

		if g == spabus.DisplayGroupsPerCycle-1 {
			for _, bm := range p.cfg.Buttons {
				p.current = bm.Button
				p.inButton = true
				SendFrame(sink, spabus.FrameCue|bm.Mask)
				p.inButton = false
			}
		}
		SendFrame(sink, led)
	}

	p.updateButtons()
	p.cycle++
}

// Run sends a frame cycle every period until ctx is done
func (p *Panel) Run(ctx context.Context, period time.Duration, sink Sink) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunCycle(sink)
		}
	}
}

// SendFrame clocks a frame into sink: MSB first, inverted data, the latch
// rises with the last bit
func SendFrame(sink Sink, frame uint16) {
	for i := spabus.FrameBits - 1; i >= 0; i-- {
		bit := frame>>uint(i)&1 == 1
		sink.OnClockRising(!bit, i == 0)
	}
}

func (p *Panel) blinking() bool {
	return p.cycle < p.blinkUntil
}

func (p *Panel) displayText() string {
	st := &p.st
	switch {
	case !st.Power:
		return "    "
	case st.Error != "":
		return fmt.Sprintf("%-4.4s", st.Error)
	case p.cycle < p.durationUntil:
		return fmt.Sprintf("%3dH", st.Disinfection)
	case p.blinking():
		if (p.cycle-p.blinkStart)/p.opts.BlinkHalfCycles%2 == 1 {
			return "    "
		}
		return fmt.Sprintf("%3d%c", st.Setpoint, st.Unit)
	}
	return fmt.Sprintf("%3d%c", st.Actual, st.Unit)
}

func (p *Panel) ledFrame() uint16 {
	st := &p.st
	l := p.cfg.LED
	led := spabus.FrameLED

	set := func(on bool, mask uint16) {
		if on {
			led |= mask
		}
	}
	set(st.Power, l.Power)
	set(st.Filter, l.Filter)
	set(st.Bubble, l.Bubble)
	set(st.Jet, l.Jet)
	set(st.Disinfection > 0, l.Disinfection)
	if st.Heater {
		if st.Actual >= st.Setpoint {
			led |= l.HeaterStandby
		} else {
			led |= l.HeaterOn
		}
	}
	if p.cycle >= p.beepUntil {
		led |= l.NoBeep
	}
	return led
}

// updateButtons triggers a button once it was held for AckPulses cycles
func (p *Panel) updateButtons() {
	for i := range p.pulsed {
		if !p.pulsed[i] {
			p.held[i] = 0
			p.fired[i] = false
			continue
		}
		p.pulsed[i] = false
		p.held[i]++
		if p.held[i] >= p.opts.AckPulses && !p.fired[i] {
			p.fired[i] = true
			p.trigger(spabus.Button(i))
		}
	}
}

func (p *Panel) trigger(b spabus.Button) {
	st := &p.st
	if !st.Power && b != spabus.ButtonPower {
		return
	}

	next := p.cycle + 1
	switch b {
	case spabus.ButtonPower:
		st.Power = !st.Power
		if !st.Power {
			st.Filter, st.Bubble, st.Heater, st.Jet = false, false, false, false
			st.Disinfection = 0
			p.blinkUntil = 0
			p.durationUntil = 0
		}
	case spabus.ButtonFilter:
		st.Filter = !st.Filter
		if !st.Filter {
			st.Heater = false
		}
	case spabus.ButtonBubble:
		st.Bubble = !st.Bubble
	case spabus.ButtonJet:
		st.Jet = !st.Jet
	case spabus.ButtonHeater:
		st.Heater = !st.Heater
		if st.Heater {
			st.Filter = true
		}
	case spabus.ButtonTempUp, spabus.ButtonTempDown:
		if p.blinking() {
			step := 1
			if b == spabus.ButtonTempDown {
				step = -1
			}
			lo, hi := spabus.WaterTempSetMin, spabus.WaterTempSetMax
			if st.Unit == 'F' {
				lo, hi = 68, 104
			}
			st.Setpoint = max(lo, min(st.Setpoint+step, hi))
		}
		p.blinkStart = next
		p.blinkUntil = next + p.opts.BlinkTimeoutCycles
	case spabus.ButtonDisinfection:
		switch st.Disinfection {
		case 0:
			st.Disinfection = 3
		case 3:
			st.Disinfection = 5
		case 5:
			st.Disinfection = 8
		default:
			st.Disinfection = 0
		}
		p.durationUntil = next + p.opts.DurationCycles
	default:
		return
	}

	p.presses[b]++
	if !p.opts.Silent {
		p.beepUntil = next + p.opts.BeepCycles
	}
}
