// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ledUndefined marks an LED mask that has not been confirmed yet
const ledUndefined uint32 = 0xFFFFFFFF

// Spa decodes the bus of one panel and drives its buttons.
//
// OnClockRising is the edge handler and must be called from a single
// goroutine or interrupt context. The accessors may be called from any
// goroutine. Blocking commands are serialized.
type Spa struct {
	cfg        ModelConfig
	timing     Timing
	classifier Classifier
	lang       Language
	name       string
	clock      Clock
	reply      ReplyLine
	tap        *FrameTap

	echo  [maxButtonFrames]ButtonMask
	echoN int

	// owned by the edge handler
	rx      receiver
	display displayState
	led     ledState

	// written by the edge handler, read by the foreground
	pub published

	// armed by the foreground, decremented by the edge handler
	presses [buttonCount]atomic.Uint32

	cmdMu sync.Mutex

	linkMu     sync.Mutex
	lastUpdate time.Time
}

type published struct {
	waterTemp   atomic.Uint32
	desiredTemp atomic.Uint32
	duration    atomic.Uint32
	errorCode   atomic.Uint32
	led         atomic.Uint32
	buzzer      atomic.Bool
	online      atomic.Bool
	updated     atomic.Bool

	frames   atomic.Uint32
	dropped  atomic.Uint32
	cues     atomic.Uint32
	digits   atomic.Uint32
	leds     atomic.Uint32
	buttons  atomic.Uint32
	unknown  atomic.Uint32
	rejected atomic.Uint32
	replies  atomic.Uint32
}

// Option configures a Spa
type Option func(*Spa)

// WithTiming replaces the default timing of the model
func WithTiming(t Timing) Option {
	return func(s *Spa) { s.timing = t }
}

// WithClock replaces the wall clock, used by simulations
func WithClock(c Clock) Option {
	return func(s *Spa) { s.clock = c }
}

// WithReplyLine sets the output that pulls the data line on a reply
func WithReplyLine(r ReplyLine) Option {
	return func(s *Spa) { s.reply = r }
}

// WithLanguage selects the error message language
func WithLanguage(l Language) Option {
	return func(s *Spa) { s.lang = l }
}

// WithName overrides the model name reported by ModelName
func WithName(name string) Option {
	return func(s *Spa) { s.name = name }
}

// WithFrameTap copies every complete frame into a tap
func WithFrameTap(t *FrameTap) Option {
	return func(s *Spa) { s.tap = t }
}

// New creates a decoder for a model
func New(model Model, opts ...Option) (*Spa, error) {
	cfg, err := ConfigFor(model)
	if err != nil {
		return nil, err
	}
	if len(cfg.Buttons) > maxButtonFrames {
		return nil, fmt.Errorf("model %v has %d button frames, at most %d supported", model, len(cfg.Buttons), maxButtonFrames)
	}

	s := &Spa{
		cfg:        cfg,
		timing:     DefaultTiming(cfg),
		classifier: NewClassifier(cfg),
		name:       cfg.Name,
		clock:      SystemClock(),
		reply:      noReply{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing: %w", err)
	}

	s.echoN = copy(s.echo[:], cfg.Buttons)
	s.display.reset(s.timing)
	s.led.reset(s.timing)
	s.pub.waterTemp.Store(uint32(DisplayUndefined))
	s.pub.desiredTemp.Store(uint32(DisplayUndefined))
	s.pub.duration.Store(uint32(DisplayUndefined))
	s.pub.led.Store(ledUndefined)
	s.lastUpdate = s.clock.Now()
	return s, nil
}

// Model returns the protocol table in use
func (s *Spa) Model() ModelConfig {
	return s.cfg
}

// Timing returns the timing in use
func (s *Spa) Timing() Timing {
	return s.timing
}

// ModelName returns the product name of the panel
func (s *Spa) ModelName() string {
	return s.name
}

// IsOnline reports whether LED frames were confirmed recently, updated by
// CheckLink
func (s *Spa) IsOnline() bool {
	return s.pub.online.Load()
}

// ActWaterTempCelsius returns the measured water temperature
func (s *Spa) ActWaterTempCelsius() (int, bool) {
	return Display(s.pub.waterTemp.Load()).Celsius()
}

// DesiredWaterTempCelsius returns the setpoint, known after the panel showed it
// blinking
func (s *Spa) DesiredWaterTempCelsius() (int, bool) {
	return Display(s.pub.desiredTemp.Load()).Celsius()
}

// DisinfectionTime returns the remaining disinfection duration in hours, 0
// when disinfection is off or not supported
func (s *Spa) DisinfectionTime() (int, bool) {
	switch s.DisinfectionOn() {
	case FlagOff:
		return 0, true
	case FlagOn:
		return Display(s.pub.duration.Load()).Hours()
	}
	return 0, false
}

// RawLED returns the last confirmed LED frame
func (s *Spa) RawLED() (uint16, bool) {
	led := s.pub.led.Load()
	if led == ledUndefined {
		return 0, false
	}
	return uint16(led), true
}

func (s *Spa) ledFlag(mask uint16) Flag {
	led, ok := s.RawLED()
	if !ok {
		return FlagUndefined
	}
	return flagOf(led&mask != 0)
}

// PowerOn reports the power lamp
func (s *Spa) PowerOn() Flag {
	return s.ledFlag(s.cfg.LED.Power)
}

// FilterOn reports the filter pump lamp
func (s *Spa) FilterOn() Flag {
	return s.ledFlag(s.cfg.LED.Filter)
}

// BubbleOn reports the bubble lamp
func (s *Spa) BubbleOn() Flag {
	return s.ledFlag(s.cfg.LED.Bubble)
}

// HeaterOn reports an active heater, heating or standby
func (s *Spa) HeaterOn() Flag {
	return s.ledFlag(s.cfg.LED.HeaterOn | s.cfg.LED.HeaterStandby)
}

// HeaterStandby reports a heater waiting for the water to cool down
func (s *Spa) HeaterStandby() Flag {
	return s.ledFlag(s.cfg.LED.HeaterStandby)
}

// BuzzerOn reports the buzzer, derived from the no beep bit
func (s *Spa) BuzzerOn() Flag {
	if _, ok := s.RawLED(); !ok {
		return FlagUndefined
	}
	return flagOf(s.pub.buzzer.Load())
}

// JetOn reports the jet lamp, off on models without jets
func (s *Spa) JetOn() Flag {
	if !s.cfg.Has(FeatureJet) {
		return FlagOff
	}
	return s.ledFlag(s.cfg.LED.Jet)
}

// DisinfectionOn reports the disinfection lamp, off on models without it
func (s *Spa) DisinfectionOn() Flag {
	if !s.cfg.Has(FeatureDisinfection) {
		return FlagOff
	}
	return s.ledFlag(s.cfg.LED.Disinfection)
}

// ErrorCode returns the last error shown by the panel, empty if none. The code
// is latched until the decoder is recreated.
func (s *Spa) ErrorCode() string {
	bits := s.pub.errorCode.Load()
	if bits == 0 {
		return ""
	}
	d := Display(bits)
	return string([]byte{d.Char(0), d.Char(1), d.Char(2)})
}

// ErrorMessage translates an error code in the configured language
func (s *Spa) ErrorMessage(code string) string {
	return ErrorMessage(code, s.lang)
}

// TotalFrames returns the number of frames received, including dropped ones
func (s *Spa) TotalFrames() uint32 {
	return s.pub.frames.Load()
}

// DroppedFrames returns the number of incomplete frames
func (s *Spa) DroppedFrames() uint32 {
	return s.pub.dropped.Load()
}

// Counters is a snapshot of the frame counters
type Counters struct {
	Total    uint32
	Dropped  uint32
	Cue      uint32
	Digit    uint32
	LED      uint32
	Button   uint32
	Unknown  uint32
	Rejected uint32 // digit frames with unknown segment patterns or several positions
	Replies  uint32
}

// Counters returns the frame counters
func (s *Spa) Counters() Counters {
	return Counters{
		Total:    s.pub.frames.Load(),
		Dropped:  s.pub.dropped.Load(),
		Cue:      s.pub.cues.Load(),
		Digit:    s.pub.digits.Load(),
		LED:      s.pub.leds.Load(),
		Button:   s.pub.buttons.Load(),
		Unknown:  s.pub.unknown.Load(),
		Rejected: s.pub.rejected.Load(),
		Replies:  s.pub.replies.Load(),
	}
}
