// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// Received digit positions
const (
	gotPos1 uint8 = 1 << iota
	gotPos2
	gotPos3
	gotPos4

	gotPos12  = gotPos1 | gotPos2
	gotPos123 = gotPos12 | gotPos3
)

type displayState struct {
	value    Display // composite being assembled
	received uint8

	latest      Display // last complete composite
	remaining   uint32  // identical composites still needed
	blankRemain uint32  // blank composites still ignored

	blinking   bool
	blinks     uint32 // blank phases of the current blink episode
	lastBlank  uint32 // frame counter of the last accepted blank
	blinkValue Display
	blinkSeen  uint32

	actualValue  Display
	actualRemain uint32

	durationValue  Display
	durationRemain uint32
}

func (d *displayState) reset(t Timing) {
	*d = displayState{
		value:         DisplayUndefined,
		latest:        DisplayUndefined,
		blankRemain:   t.ConfirmFrames - 1,
		blinkValue:    DisplayUndefined,
		actualValue:   DisplayUndefined,
		durationValue: DisplayUndefined,
	}
}

// decodeDisplay adds a digit frame to the composite. Positions must arrive in
// order 1, 2, 3, 4; an out of order digit is dropped and the composite is only
// evaluated when position 4 completes it. Glitched frames leave the positions
// received so far alone.
func (s *Spa) decodeDisplay(frame uint16, now uint32) {
	ch, ok := DecodeSegments(frame)
	if !ok {
		s.pub.rejected.Add(1)
		return
	}

	d := &s.display
	switch frame & DigitPositions {
	case DigitPos1:
		d.value = d.value&^0x000000FF | Display(ch)
		d.received = gotPos1
	case DigitPos2:
		if d.received == gotPos1 {
			d.value = d.value&^0x0000FF00 | Display(ch)<<8
			d.received |= gotPos2
		}
	case DigitPos3:
		if d.received == gotPos12 {
			d.value = d.value&^0x00FF0000 | Display(ch)<<16
			d.received |= gotPos3
		}
	case DigitPos4:
		if d.received == gotPos123 {
			d.value = d.value&^0xFF000000 | Display(ch)<<24
			d.received |= gotPos4
			s.evaluateDisplay(now)
		}
	default:
		// more than one position selected, the composite is kept
		s.pub.rejected.Add(1)
	}
}

// evaluateDisplay debounces a complete composite
func (s *Spa) evaluateDisplay(now uint32) {
	d := &s.display
	v := d.value

	switch {
	case v == d.latest:
		d.remaining--
		if d.remaining == 0 {
			d.remaining = s.timing.ConfirmFrames - 1
			s.confirmDisplay(v, now)
		}
	case v.IsBlank():
		if d.blankRemain > 0 {
			d.blankRemain--
			return
		}
		s.acceptBlank(now)
	default:
		d.latest = v
		d.remaining = s.timing.ConfirmFrames - 1
		d.blankRemain = s.timing.ConfirmFrames - 1
	}
}

// acceptBlank handles the dark phase of a blinking display
func (s *Spa) acceptBlank(now uint32) {
	d := &s.display
	if d.blinking {
		if d.blinkValue != DisplayUndefined {
			d.blinks++
			if s.pub.errorCode.Load() == 0 &&
				d.blinks > s.timing.DesiredBlinkCycles &&
				d.blinkSeen >= s.timing.ConfirmFrames &&
				Display(s.pub.desiredTemp.Load()) != d.blinkValue {
				s.pub.desiredTemp.Store(uint32(d.blinkValue))
			}
		}
		d.blinkValue = DisplayUndefined
		d.blinkSeen = 0
	} else {
		d.blinking = true
		d.blinks = 0
	}
	d.lastBlank = now
}

// confirmDisplay routes a confirmed composite to the error latch, the
// duration or the temperatures
func (s *Spa) confirmDisplay(v Display, now uint32) {
	d := &s.display
	if d.blinking && now-d.lastBlank > s.timing.BlinkStoppedFrames {
		d.blinking = false
		d.blinkValue = DisplayUndefined
	}

	switch {
	case v.IsError():
		s.pub.errorCode.Store(v.errorBits())

	case v.IsDuration() && s.cfg.Has(FeatureDisinfection):
		if v != d.durationValue {
			d.durationValue = v
			d.durationRemain = s.timing.ConfirmFrames - 1
			return
		}
		if d.durationRemain > 0 {
			d.durationRemain--
			if d.durationRemain == 0 && Display(s.pub.duration.Load()) != v {
				s.pub.duration.Store(uint32(v))
			}
		}

	case v.IsTemp():
		if d.blinking {
			s.trackBlinkingTemp(v, now)
		} else {
			s.trackActualTemp(v)
		}
	}
}

// trackBlinkingTemp follows the setpoint shown during a blink episode. A new
// value replaces the pending one only shortly after a blank phase, values seen
// later may already belong to the actual temperature.
func (s *Spa) trackBlinkingTemp(v Display, now uint32) {
	d := &s.display
	if v == d.blinkValue {
		d.blinkSeen++
		return
	}
	if now-d.lastBlank < s.timing.BlinkTempFrames {
		d.blinkValue = v
		d.blinkSeen = 1
	}
}

// trackActualTemp publishes a temperature that has been shown long enough to
// rule out a blinking setpoint
func (s *Spa) trackActualTemp(v Display) {
	d := &s.display
	if v != d.actualValue {
		d.actualValue = v
		d.actualRemain = s.timing.ConfirmNotBlinking - 1
		return
	}
	if d.actualRemain > 0 {
		d.actualRemain--
		if d.actualRemain == 0 && Display(s.pub.waterTemp.Load()) != v {
			s.pub.waterTemp.Store(uint32(v))
		}
	}
}
