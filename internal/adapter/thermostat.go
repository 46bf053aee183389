// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package adapter

import (
	"fmt"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Mode is the requested thermostat mode
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeOff
	ModeHeat
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	default:
		return "unknown"
	}
}

// Action is what the heater is doing right now
type Action uint8

const (
	ActionUnknown Action = iota
	ActionOff
	ActionIdle
	ActionHeating
)

func (a Action) String() string {
	switch a {
	case ActionOff:
		return "off"
	case ActionIdle:
		return "idle"
	case ActionHeating:
		return "heating"
	default:
		return "unknown"
	}
}

// Thermostat exposes the heater and the water temperatures
type Thermostat struct {
	dev Device
}

func NewThermostat(dev Device) *Thermostat {
	return &Thermostat{dev: dev}
}

// Range of the target temperature in °C
func (t *Thermostat) Range() (lo, hi int) {
	return spabus.WaterTempSetMin, spabus.WaterTempSetMax
}

func (t *Thermostat) Current() (int, bool) {
	return t.dev.ActWaterTempCelsius()
}

func (t *Thermostat) Target() (int, bool) {
	return t.dev.DesiredWaterTempCelsius()
}

func (t *Thermostat) Mode() Mode {
	switch t.dev.HeaterOn() {
	case spabus.FlagOn:
		return ModeHeat
	case spabus.FlagOff:
		return ModeOff
	}
	return ModeUnknown
}

func (t *Thermostat) Action() Action {
	switch t.dev.HeaterOn() {
	case spabus.FlagOff:
		return ActionOff
	case spabus.FlagUndefined:
		return ActionUnknown
	}
	if t.dev.HeaterStandby().IsOn() {
		return ActionIdle
	}
	return ActionHeating
}

// SetTarget steps the setpoint, out of range values are clamped
func (t *Thermostat) SetTarget(temp int) error {
	return t.dev.SetDesiredWaterTempCelsius(temp)
}

func (t *Thermostat) SetMode(m Mode) error {
	switch m {
	case ModeOff:
		return t.dev.SetHeaterOn(false)
	case ModeHeat:
		return t.dev.SetHeaterOn(true)
	}
	return fmt.Errorf("unsupported thermostat mode %s", m)
}

// Timer exposes the disinfection duration
type Timer struct {
	dev Device
}

// NewTimer returns nil on models without disinfection
func NewTimer(dev Device) *Timer {
	if !dev.Model().Has(spabus.FeatureDisinfection) {
		return nil
	}
	return &Timer{dev: dev}
}

// Hours returns the remaining hours, 0 when off
func (t *Timer) Hours() (int, bool) {
	return t.dev.DisinfectionTime()
}

// Set selects the nearest supported duration, 0 switches off
func (t *Timer) Set(hours int) error {
	return t.dev.SetDisinfectionTime(hours)
}
