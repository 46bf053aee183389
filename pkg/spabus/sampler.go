// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// receiver assembles frames from single bits
type receiver struct {
	value uint16
	bits  int
}

// OnClockRising samples one bit. data and latch are the electrical levels at
// the rising clock edge, true is high.
//
// A bit is shifted in while the latch is low. The last bit of a frame is
// sampled when the latch rises. A rising latch before that drops the partial
// frame.
func (s *Spa) OnClockRising(data, latch bool) {
	r := &s.rx
	enabled := !latch
	if !enabled && r.bits != FrameBits-1 {
		// clocks between frames carry no data
		if r.bits != 0 {
			r.bits = 0
			r.value = 0
			s.pub.frames.Add(1)
			s.pub.dropped.Add(1)
		}
		return
	}

	r.value <<= 1
	if !data {
		r.value |= 1
	}
	r.bits++
	if r.bits < FrameBits {
		return
	}

	frame := r.value
	r.value = 0
	r.bits = 0
	s.onFrame(frame)
}

// OnFrame processes a complete frame, for sources that deliver whole words
func (s *Spa) OnFrame(frame uint16) {
	s.onFrame(frame)
}

func (s *Spa) onFrame(frame uint16) {
	n := s.pub.frames.Add(1)
	if s.tap != nil {
		s.tap.put(frame)
	}

	switch s.classifier.Classify(frame) {
	case ClassCue:
		s.pub.cues.Add(1)
	case ClassDigit:
		s.pub.digits.Add(1)
		s.decodeDisplay(frame, n)
	case ClassLED:
		s.pub.leds.Add(1)
		s.decodeLED(frame)
	case ClassButton:
		s.pub.buttons.Add(1)
		s.decodeButton(frame)
	case ClassUnknown:
		s.pub.unknown.Add(1)
	}
}
