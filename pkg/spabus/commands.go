// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"time"
)

// Maximum number of presses to reach a disinfection duration, the panel steps
// through 0, 3, 5 and 8 hours
const disinfectionTries = 8

// Press holds a button until the panel beeps. The buzzer must be quiet first,
// otherwise the press is not registered.
func (s *Spa) Press(b Button) error {
	if b == ButtonTempUnit || s.cfg.ButtonBit(b) == 0 {
		return fmt.Errorf("%w: %s button", ErrUnsupported, b)
	}
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.press(b)
}

// SetPowerOn switches the spa on or off
func (s *Spa) SetPowerOn(on bool) error {
	return s.toggle(ButtonPower, on, s.PowerOn)
}

// SetFilterOn switches the filter pump
func (s *Spa) SetFilterOn(on bool) error {
	return s.toggle(ButtonFilter, on, s.FilterOn)
}

// SetBubbleOn switches the bubble blower
func (s *Spa) SetBubbleOn(on bool) error {
	return s.toggle(ButtonBubble, on, s.BubbleOn)
}

// SetHeaterOn switches the heater, standby counts as on
func (s *Spa) SetHeaterOn(on bool) error {
	return s.toggle(ButtonHeater, on, s.HeaterOn)
}

// SetJetOn switches the jets
func (s *Spa) SetJetOn(on bool) error {
	if !s.cfg.Has(FeatureJet) {
		return fmt.Errorf("%w: jet", ErrUnsupported)
	}
	return s.toggle(ButtonJet, on, s.JetOn)
}

func (s *Spa) toggle(b Button, on bool, state func() Flag) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	// an unknown state counts as off
	if state().IsOn() == on {
		return nil
	}
	return s.press(b)
}

// SetDesiredWaterTempCelsius steps the setpoint to temp, clamped to the
// supported range. Every step is read back from the blinking display, an
// unknown setpoint is first made visible with one extra press.
func (s *Spa) SetDesiredWaterTempCelsius(temp int) error {
	temp = max(WaterTempSetMin, min(temp, WaterTempSetMax))

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	set, ok := s.DesiredWaterTempCelsius()
	if !ok {
		// the first press only starts blinking, the setpoint stays
		if err := s.tapButton(ButtonTempDown); err != nil {
			return err
		}
		set, ok = s.readback(set, false)
		if !ok {
			return fmt.Errorf("%w: setpoint", ErrNoReadback)
		}
	}

	diff := temp - set
	if diff < 0 {
		diff = -diff
	}
	budget := 3 + diff
	budget += budget / 10

	for set != temp {
		if budget == 0 {
			return fmt.Errorf("%w: setpoint %d °C, want %d °C", ErrCommandTimeout, set, temp)
		}
		budget--

		b := ButtonTempUp
		if temp < set {
			b = ButtonTempDown
		}
		if err := s.tapButton(b); err != nil {
			continue
		}

		next, ok := s.readback(set, true)
		if !ok {
			return fmt.Errorf("%w: setpoint", ErrNoReadback)
		}
		set = next
	}
	return nil
}

// SetDisinfectionTime steps the disinfection duration to the nearest supported
// value: 8, 5, 3 or 0 hours
func (s *Spa) SetDisinfectionTime(hours int) error {
	if !s.cfg.Has(FeatureDisinfection) {
		return fmt.Errorf("%w: disinfection", ErrUnsupported)
	}
	switch {
	case hours > 5:
		hours = 8
	case hours > 3:
		hours = 5
	case hours > 0:
		hours = 3
	default:
		hours = 0
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	for i := 0; i < disinfectionTries; i++ {
		current, ok := s.DisinfectionTime()
		if !ok {
			return fmt.Errorf("%w: disinfection time", ErrNoReadback)
		}
		if current == hours {
			return nil
		}
		// a missed beep is caught by the next readback
		_ = s.press(ButtonDisinfection)
		s.waitBuzzerOff()
		s.clock.Sleep(s.timing.BlinkPeriod)
	}
	return fmt.Errorf("%w: disinfection time %d h", ErrCommandTimeout, hours)
}

func (s *Spa) ready() error {
	if !s.PowerOn().IsOn() || s.ErrorCode() != "" {
		return ErrNotReady
	}
	return nil
}

// press holds a toggle button for the full press duration
func (s *Spa) press(b Button) error {
	s.waitBuzzerOff()
	t := s.timing
	return s.hold(b, t.PressCycles, s.tries(t.AckTimeout), 0)
}

// tapButton holds a temperature button just long enough for a single step
func (s *Spa) tapButton(b Button) error {
	s.waitBuzzerOff()
	t := s.timing
	holdTries := s.tries(time.Duration(t.TapCycles) * t.CyclePeriod)
	ackTries := s.tries(time.Duration(t.PressCycles-t.TapCycles) * t.CyclePeriod)
	return s.hold(b, t.TapCycles, holdTries, ackTries)
}

// hold arms a press and polls until the echo counter ran out, then waits for
// the buzzer with the unused and the extra tries. The button is idle again
// when hold returns.
func (s *Spa) hold(b Button, cycles uint32, holdTries, ackTries int) error {
	period := s.timing.AckCheckPeriod
	s.arm(b, cycles)
	for s.pressPending(b) != 0 && holdTries > 0 {
		s.clock.Sleep(period)
		holdTries--
	}
	s.release(b)

	tries := holdTries + ackTries
	for !s.pub.buzzer.Load() && tries > 0 {
		s.clock.Sleep(period)
		tries--
	}
	if !s.pub.buzzer.Load() {
		return fmt.Errorf("%w: %s", ErrCommandTimeout, b)
	}
	return nil
}

// waitBuzzerOff waits for a quiet buzzer and lets the panel settle
func (s *Spa) waitBuzzerOff() bool {
	t := s.timing
	tries := s.tries(t.AckTimeout)
	for s.pub.buzzer.Load() && tries > 0 {
		s.clock.Sleep(t.AckCheckPeriod)
		tries--
	}
	if s.pub.buzzer.Load() {
		return false
	}
	s.clock.Sleep(t.SettleDelay)
	return true
}

// readback polls the setpoint until it is defined and, if changed is set,
// differs from prev. Returns the last defined reading.
func (s *Spa) readback(prev int, changed bool) (int, bool) {
	t := s.timing
	s.waitBuzzerOff()
	s.clock.Sleep(t.BlinkPeriod)

	tries := int(4 * t.BlinkPeriod / t.ReadbackPeriod)
	for {
		set, ok := s.DesiredWaterTempCelsius()
		if ok && (!changed || set != prev) {
			return set, true
		}
		if tries == 0 {
			return set, ok
		}
		tries--
		s.clock.Sleep(t.ReadbackPeriod)
	}
}

func (s *Spa) tries(d time.Duration) int {
	return int(d / s.timing.AckCheckPeriod)
}
