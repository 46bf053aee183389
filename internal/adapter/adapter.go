// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package adapter maps the spa onto generic home automation capabilities:
// switches, a thermostat and a disinfection timer.
package adapter

import (
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Device is the part of the spa the capabilities need
type Device interface {
	Model() spabus.ModelConfig
	IsOnline() bool

	PowerOn() spabus.Flag
	FilterOn() spabus.Flag
	BubbleOn() spabus.Flag
	HeaterOn() spabus.Flag
	HeaterStandby() spabus.Flag
	JetOn() spabus.Flag
	DisinfectionOn() spabus.Flag

	ActWaterTempCelsius() (int, bool)
	DesiredWaterTempCelsius() (int, bool)
	DisinfectionTime() (int, bool)

	SetPowerOn(on bool) error
	SetFilterOn(on bool) error
	SetBubbleOn(on bool) error
	SetHeaterOn(on bool) error
	SetJetOn(on bool) error
	SetDesiredWaterTempCelsius(temp int) error
	SetDisinfectionTime(hours int) error
}

// Switch is an on/off capability
type Switch struct {
	Name  string
	state func() spabus.Flag
	set   func(on bool) error
}

// State returns the current switch state
func (s Switch) State() spabus.Flag {
	return s.state()
}

// Set switches on or off
func (s Switch) Set(on bool) error {
	return s.set(on)
}

// Switches returns the switches of the device model
func Switches(dev Device) []Switch {
	sw := []Switch{
		{"power", dev.PowerOn, dev.SetPowerOn},
		{"filter", dev.FilterOn, dev.SetFilterOn},
		{"bubble", dev.BubbleOn, dev.SetBubbleOn},
	}
	if dev.Model().Has(spabus.FeatureJet) {
		sw = append(sw, Switch{"jet", dev.JetOn, dev.SetJetOn})
	}
	return sw
}

// SwitchByName looks up a switch, the heater is included
func SwitchByName(dev Device, name string) (Switch, bool) {
	if name == "heater" {
		return Switch{"heater", dev.HeaterOn, dev.SetHeaterOn}, true
	}
	for _, s := range Switches(dev) {
		if s.Name == name {
			return s, true
		}
	}
	return Switch{}, false
}
