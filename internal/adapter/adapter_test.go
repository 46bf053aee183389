// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package adapter

import (
	"testing"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

type fakeDevice struct {
	model   spabus.Model
	flags   map[string]spabus.Flag
	act     int
	set     int
	hours   int
	calls   []string
	lastInt int
}

func newFakeDevice(model spabus.Model) *fakeDevice {
	return &fakeDevice{
		model: model,
		flags: map[string]spabus.Flag{},
		act:   -1,
		set:   -1,
		hours: -1,
	}
}

func (f *fakeDevice) Model() spabus.ModelConfig {
	cfg, _ := spabus.ConfigFor(f.model)
	return cfg
}

func (f *fakeDevice) IsOnline() bool { return true }

func (f *fakeDevice) flag(name string) spabus.Flag {
	if v, ok := f.flags[name]; ok {
		return v
	}
	return spabus.FlagUndefined
}

func (f *fakeDevice) PowerOn() spabus.Flag        { return f.flag("power") }
func (f *fakeDevice) FilterOn() spabus.Flag       { return f.flag("filter") }
func (f *fakeDevice) BubbleOn() spabus.Flag       { return f.flag("bubble") }
func (f *fakeDevice) HeaterOn() spabus.Flag       { return f.flag("heater") }
func (f *fakeDevice) HeaterStandby() spabus.Flag  { return f.flag("standby") }
func (f *fakeDevice) JetOn() spabus.Flag          { return f.flag("jet") }
func (f *fakeDevice) DisinfectionOn() spabus.Flag { return f.flag("disinfection") }

func (f *fakeDevice) ActWaterTempCelsius() (int, bool)     { return f.act, f.act >= 0 }
func (f *fakeDevice) DesiredWaterTempCelsius() (int, bool) { return f.set, f.set >= 0 }
func (f *fakeDevice) DisinfectionTime() (int, bool)        { return f.hours, f.hours >= 0 }

func (f *fakeDevice) record(name string, on bool) error {
	if on {
		f.calls = append(f.calls, name+"=on")
	} else {
		f.calls = append(f.calls, name+"=off")
	}
	return nil
}

func (f *fakeDevice) SetPowerOn(on bool) error  { return f.record("power", on) }
func (f *fakeDevice) SetFilterOn(on bool) error { return f.record("filter", on) }
func (f *fakeDevice) SetBubbleOn(on bool) error { return f.record("bubble", on) }
func (f *fakeDevice) SetHeaterOn(on bool) error { return f.record("heater", on) }
func (f *fakeDevice) SetJetOn(on bool) error    { return f.record("jet", on) }

func (f *fakeDevice) SetDesiredWaterTempCelsius(temp int) error {
	f.calls = append(f.calls, "temp")
	f.lastInt = temp
	return nil
}

func (f *fakeDevice) SetDisinfectionTime(hours int) error {
	f.calls = append(f.calls, "disinfection")
	f.lastInt = hours
	return nil
}

// ============================================================
// Switch Tests
// ============================================================

func TestSwitches_PerModel(t *testing.T) {
	tests := []struct {
		model spabus.Model
		want  []string
	}{
		{spabus.ModelSBH20, []string{"power", "filter", "bubble"}},
		{spabus.ModelSJBHS, []string{"power", "filter", "bubble", "jet"}},
	}

	for _, tt := range tests {
		t.Run(tt.model.String(), func(t *testing.T) {
			sw := Switches(newFakeDevice(tt.model))
			if len(sw) != len(tt.want) {
				t.Fatalf("Switches() returned %d, want %d", len(sw), len(tt.want))
			}
			for i, name := range tt.want {
				if sw[i].Name != name {
					t.Errorf("switch %d = %s, want %s", i, sw[i].Name, name)
				}
			}
		})
	}
}

func TestSwitchByName(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.flags["heater"] = spabus.FlagOn

	sw, ok := SwitchByName(dev, "heater")
	if !ok {
		t.Fatal("heater switch missing")
	}
	if sw.State() != spabus.FlagOn {
		t.Errorf("State() = %v, want on", sw.State())
	}
	if err := sw.Set(false); err != nil {
		t.Fatal(err)
	}
	if len(dev.calls) != 1 || dev.calls[0] != "heater=off" {
		t.Errorf("calls = %v", dev.calls)
	}

	if _, ok := SwitchByName(dev, "jet"); ok {
		t.Error("SB-H20 has no jet switch")
	}
}

// ============================================================
// Thermostat Tests
// ============================================================

func TestThermostat_Action(t *testing.T) {
	tests := []struct {
		heater, standby spabus.Flag
		mode            Mode
		action          Action
	}{
		{spabus.FlagUndefined, spabus.FlagUndefined, ModeUnknown, ActionUnknown},
		{spabus.FlagOff, spabus.FlagOff, ModeOff, ActionOff},
		{spabus.FlagOn, spabus.FlagOff, ModeHeat, ActionHeating},
		{spabus.FlagOn, spabus.FlagOn, ModeHeat, ActionIdle},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			dev := newFakeDevice(spabus.ModelSBH20)
			dev.flags["heater"] = tt.heater
			dev.flags["standby"] = tt.standby
			th := NewThermostat(dev)
			if got := th.Mode(); got != tt.mode {
				t.Errorf("Mode() = %v, want %v", got, tt.mode)
			}
			if got := th.Action(); got != tt.action {
				t.Errorf("Action() = %v, want %v", got, tt.action)
			}
		})
	}
}

func TestThermostat_Commands(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.act, dev.set = 31, 36
	th := NewThermostat(dev)

	if v, ok := th.Current(); !ok || v != 31 {
		t.Errorf("Current() = %d, %v", v, ok)
	}
	if v, ok := th.Target(); !ok || v != 36 {
		t.Errorf("Target() = %d, %v", v, ok)
	}
	if lo, hi := th.Range(); lo != 20 || hi != 40 {
		t.Errorf("Range() = %d..%d", lo, hi)
	}

	if err := th.SetTarget(38); err != nil || dev.lastInt != 38 {
		t.Errorf("SetTarget() err=%v last=%d", err, dev.lastInt)
	}
	if err := th.SetMode(ModeHeat); err != nil {
		t.Fatal(err)
	}
	if err := th.SetMode(ModeUnknown); err == nil {
		t.Error("SetMode(unknown) should fail")
	}
	if last := dev.calls[len(dev.calls)-1]; last != "heater=on" {
		t.Errorf("last call = %s, want heater=on", last)
	}
}

// ============================================================
// Timer Tests
// ============================================================

func TestTimer(t *testing.T) {
	if NewTimer(newFakeDevice(spabus.ModelSBH20)) != nil {
		t.Error("SB-H20 has no disinfection timer")
	}

	dev := newFakeDevice(spabus.ModelSJBHS)
	dev.hours = 5
	timer := NewTimer(dev)
	if timer == nil {
		t.Fatal("SJB-HS timer missing")
	}
	if h, ok := timer.Hours(); !ok || h != 5 {
		t.Errorf("Hours() = %d, %v", h, ok)
	}
	if err := timer.Set(4); err != nil || dev.lastInt != 4 {
		t.Errorf("Set() err=%v last=%d", err, dev.lastInt)
	}
}
