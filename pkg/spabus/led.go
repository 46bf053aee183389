// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

type ledState struct {
	latest    uint32
	remaining uint32
}

func (l *ledState) reset(t Timing) {
	l.latest = ledUndefined
	l.remaining = t.ConfirmFrames - 1
}

// decodeLED debounces the lamp states. A confirmed frame also carries the
// buzzer state, which acknowledges button presses.
func (s *Spa) decodeLED(frame uint16) {
	l := &s.led
	if uint32(frame) != l.latest {
		l.latest = uint32(frame)
		l.remaining = s.timing.ConfirmFrames - 1
		return
	}

	l.remaining--
	if l.remaining != 0 {
		return
	}
	l.remaining = s.timing.ConfirmFrames - 1

	s.pub.led.Store(uint32(frame))
	buzzer := frame&s.cfg.LED.NoBeep == 0
	s.pub.buzzer.Store(buzzer)
	s.pub.updated.Store(true)

	// a beep ends every pending press
	if buzzer {
		for i := range s.presses {
			s.presses[i].Store(0)
		}
	}
}
