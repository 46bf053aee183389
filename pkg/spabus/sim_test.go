// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// ============================================================
// Simulation Helpers
// ============================================================

type simBench struct {
	spa   *spabus.Spa
	panel *panelsim.Panel
	clock *panelsim.Clock
}

func newSimBench(t *testing.T, model spabus.Model, st panelsim.State, opts panelsim.Options) *simBench {
	t.Helper()
	cfg, err := spabus.ConfigFor(model)
	if err != nil {
		t.Fatalf("ConfigFor() error: %v", err)
	}

	panel := panelsim.New(cfg, opts)
	panel.SetState(st)
	clock := panelsim.NewClock(panel, spabus.DefaultTiming(cfg).CyclePeriod)

	spa, err := spabus.New(model, spabus.WithClock(clock), spabus.WithReplyLine(panel))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	clock.Attach(spa)

	// long enough for the actual temperature to be confirmed
	clock.Sleep(2 * time.Second)
	return &simBench{spa: spa, panel: panel, clock: clock}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestSim_ReadsState(t *testing.T) {
	st := panelsim.State{Power: true, Filter: true, Bubble: true, Actual: 31, Setpoint: 36, Unit: 'C'}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	if !b.spa.CheckLink() {
		t.Fatal("link offline")
	}
	if temp, ok := b.spa.ActWaterTempCelsius(); !ok || temp != 31 {
		t.Errorf("ActWaterTempCelsius() = %d, %v, want 31", temp, ok)
	}
	if _, ok := b.spa.DesiredWaterTempCelsius(); ok {
		t.Error("setpoint known without blinking")
	}
	if !b.spa.PowerOn().IsOn() || !b.spa.FilterOn().IsOn() || !b.spa.BubbleOn().IsOn() {
		t.Errorf("power=%v filter=%v bubble=%v", b.spa.PowerOn(), b.spa.FilterOn(), b.spa.BubbleOn())
	}
	if b.spa.HeaterOn() != spabus.FlagOff || b.spa.BuzzerOn() != spabus.FlagOff {
		t.Errorf("heater=%v buzzer=%v", b.spa.HeaterOn(), b.spa.BuzzerOn())
	}
	if b.spa.DroppedFrames() != 0 {
		t.Errorf("DroppedFrames() = %d", b.spa.DroppedFrames())
	}
}

func TestSim_Fahrenheit(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 100, Setpoint: 104, Unit: 'F'}
	b := newSimBench(t, spabus.ModelSJBHS, st, panelsim.Options{})

	if temp, ok := b.spa.ActWaterTempCelsius(); !ok || temp != 38 {
		t.Errorf("ActWaterTempCelsius() = %d, %v, want 38", temp, ok)
	}
}

func TestSim_ErrorCode(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 30, Setpoint: 35, Unit: 'C', Error: "E90"}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	if code := b.spa.ErrorCode(); code != "E90" {
		t.Fatalf("ErrorCode() = %q, want E90", code)
	}
	if err := b.spa.SetDesiredWaterTempCelsius(30); !errors.Is(err, spabus.ErrNotReady) {
		t.Errorf("SetDesiredWaterTempCelsius() error = %v, want ErrNotReady", err)
	}
}

func TestSim_LinkTimeout(t *testing.T) {
	b := newSimBench(t, spabus.ModelSBH20, panelsim.DefaultState(), panelsim.Options{})
	if !b.spa.CheckLink() {
		t.Fatal("link offline")
	}

	b.clock.Attach(nil)
	b.clock.Sleep(500 * time.Millisecond)
	if !b.spa.CheckLink() {
		t.Error("link offline before the receive timeout")
	}
	b.clock.Sleep(time.Second)
	if b.spa.CheckLink() {
		t.Error("link online without frames")
	}
}

// ============================================================
// Command Tests
// ============================================================

func TestSim_TogglePower(t *testing.T) {
	st := panelsim.DefaultState()
	st.Power = false
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	if err := b.spa.SetPowerOn(true); err != nil {
		t.Fatalf("SetPowerOn(true) error: %v", err)
	}
	if !b.panel.State().Power || b.panel.Presses(spabus.ButtonPower) != 1 {
		t.Fatalf("panel power=%v presses=%d", b.panel.State().Power, b.panel.Presses(spabus.ButtonPower))
	}

	b.clock.Sleep(200 * time.Millisecond)
	if !b.spa.PowerOn().IsOn() {
		t.Errorf("PowerOn() = %v after switching on", b.spa.PowerOn())
	}

	// already on, nothing to press
	if err := b.spa.SetPowerOn(true); err != nil {
		t.Fatalf("SetPowerOn(true) error: %v", err)
	}
	if b.panel.Presses(spabus.ButtonPower) != 1 {
		t.Errorf("pressed again while on")
	}
}

func TestSim_ToggleFunctions(t *testing.T) {
	b := newSimBench(t, spabus.ModelSJBHS, panelsim.DefaultState(), panelsim.Options{})

	steps := []struct {
		name string
		set  func(bool) error
		get  func() spabus.Flag
	}{
		{"filter", b.spa.SetFilterOn, b.spa.FilterOn},
		{"bubble", b.spa.SetBubbleOn, b.spa.BubbleOn},
		{"jet", b.spa.SetJetOn, b.spa.JetOn},
		{"heater", b.spa.SetHeaterOn, b.spa.HeaterOn},
	}

	for _, step := range steps {
		if err := step.set(true); err != nil {
			t.Fatalf("%s on: %v", step.name, err)
		}
		b.clock.Sleep(300 * time.Millisecond)
		if !step.get().IsOn() {
			t.Errorf("%s = %v after switching on", step.name, step.get())
		}
	}

	if err := b.spa.SetHeaterOn(false); err != nil {
		t.Fatalf("heater off: %v", err)
	}
	b.clock.Sleep(300 * time.Millisecond)
	if b.spa.HeaterOn() != spabus.FlagOff {
		t.Errorf("heater = %v after switching off", b.spa.HeaterOn())
	}
}

func TestSim_HeaterStandby(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 38, Setpoint: 36, Unit: 'C'}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	if err := b.spa.SetHeaterOn(true); err != nil {
		t.Fatalf("SetHeaterOn(true) error: %v", err)
	}
	b.clock.Sleep(300 * time.Millisecond)
	if !b.spa.HeaterStandby().IsOn() || !b.spa.HeaterOn().IsOn() {
		t.Errorf("standby=%v heater=%v", b.spa.HeaterStandby(), b.spa.HeaterOn())
	}

	// standby counts as on
	if err := b.spa.SetHeaterOn(true); err != nil {
		t.Fatalf("SetHeaterOn(true) error: %v", err)
	}
	if b.panel.Presses(spabus.ButtonHeater) != 1 {
		t.Errorf("heater pressed %d times, want 1", b.panel.Presses(spabus.ButtonHeater))
	}
}

func TestSim_SilentPanel(t *testing.T) {
	b := newSimBench(t, spabus.ModelSBH20, panelsim.DefaultState(), panelsim.Options{Silent: true})

	err := b.spa.SetFilterOn(true)
	if !errors.Is(err, spabus.ErrCommandTimeout) {
		t.Fatalf("SetFilterOn() error = %v, want ErrCommandTimeout", err)
	}
	if err := b.spa.SetDesiredWaterTempCelsius(30); !errors.Is(err, spabus.ErrCommandTimeout) {
		t.Errorf("SetDesiredWaterTempCelsius() error = %v, want ErrCommandTimeout", err)
	}
}

func TestSim_SetDesiredWaterTemp(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 25, Setpoint: 30, Unit: 'C'}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	// unknown setpoint: one extra press, then three steps up
	if err := b.spa.SetDesiredWaterTempCelsius(33); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(33) error: %v", err)
	}
	if got := b.panel.State().Setpoint; got != 33 {
		t.Fatalf("panel setpoint = %d, want 33", got)
	}
	if temp, ok := b.spa.DesiredWaterTempCelsius(); !ok || temp != 33 {
		t.Errorf("DesiredWaterTempCelsius() = %d, %v, want 33", temp, ok)
	}
	if up, down := b.panel.Presses(spabus.ButtonTempUp), b.panel.Presses(spabus.ButtonTempDown); up != 3 || down != 1 {
		t.Errorf("presses up=%d down=%d, want 3 and 1", up, down)
	}

	// known setpoint, steps down without the extra press
	if err := b.spa.SetDesiredWaterTempCelsius(31); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(31) error: %v", err)
	}
	if got := b.panel.State().Setpoint; got != 31 {
		t.Errorf("panel setpoint = %d, want 31", got)
	}

	// already there
	before := b.panel.Presses(spabus.ButtonTempDown) + b.panel.Presses(spabus.ButtonTempUp)
	if err := b.spa.SetDesiredWaterTempCelsius(31); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(31) error: %v", err)
	}
	if after := b.panel.Presses(spabus.ButtonTempDown) + b.panel.Presses(spabus.ButtonTempUp); after != before {
		t.Errorf("pressed %d times for an unchanged setpoint", after-before)
	}
}

func TestSim_SetDesiredWaterTempFromKnown(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 18, Setpoint: 20, Unit: 'C'}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	// makes the setpoint of 20 °C known without changing it
	if err := b.spa.SetDesiredWaterTempCelsius(20); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(20) error: %v", err)
	}
	if temp, ok := b.spa.DesiredWaterTempCelsius(); !ok || temp != 20 {
		t.Fatalf("DesiredWaterTempCelsius() = %d, %v, want 20", temp, ok)
	}

	up, down := b.panel.Presses(spabus.ButtonTempUp), b.panel.Presses(spabus.ButtonTempDown)
	if err := b.spa.SetDesiredWaterTempCelsius(25); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(25) error: %v", err)
	}
	if got := b.panel.State().Setpoint; got != 25 {
		t.Errorf("panel setpoint = %d, want 25", got)
	}
	if temp, ok := b.spa.DesiredWaterTempCelsius(); !ok || temp != 25 {
		t.Errorf("DesiredWaterTempCelsius() = %d, %v, want 25", temp, ok)
	}
	gotUp := b.panel.Presses(spabus.ButtonTempUp) - up
	gotDown := b.panel.Presses(spabus.ButtonTempDown) - down
	if gotUp != 5 || gotDown != 0 {
		t.Errorf("presses up=%d down=%d, want 5 and 0", gotUp, gotDown)
	}
}

func TestSim_SetDesiredWaterTempClamps(t *testing.T) {
	st := panelsim.State{Power: true, Actual: 25, Setpoint: 37, Unit: 'C'}
	b := newSimBench(t, spabus.ModelSBH20, st, panelsim.Options{})

	if err := b.spa.SetDesiredWaterTempCelsius(55); err != nil {
		t.Fatalf("SetDesiredWaterTempCelsius(55) error: %v", err)
	}
	if got := b.panel.State().Setpoint; got != spabus.WaterTempSetMax {
		t.Errorf("panel setpoint = %d, want %d", got, spabus.WaterTempSetMax)
	}
}

func TestSim_SetDisinfectionTime(t *testing.T) {
	b := newSimBench(t, spabus.ModelSJBHS, panelsim.DefaultState(), panelsim.Options{})

	if err := b.spa.SetDisinfectionTime(4); err != nil {
		t.Fatalf("SetDisinfectionTime(4) error: %v", err)
	}
	if got := b.panel.State().Disinfection; got != 5 {
		t.Fatalf("panel disinfection = %d h, want 5", got)
	}
	if h, ok := b.spa.DisinfectionTime(); !ok || h != 5 {
		t.Errorf("DisinfectionTime() = %d, %v, want 5", h, ok)
	}

	if err := b.spa.SetDisinfectionTime(0); err != nil {
		t.Fatalf("SetDisinfectionTime(0) error: %v", err)
	}
	if got := b.panel.State().Disinfection; got != 0 {
		t.Errorf("panel disinfection = %d h, want 0", got)
	}
	if presses := b.panel.Presses(spabus.ButtonDisinfection); presses != 4 {
		t.Errorf("disinfection pressed %d times, want 4", presses)
	}
}
