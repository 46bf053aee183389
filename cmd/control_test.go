// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

func newSimSpa(t *testing.T, model spabus.Model) (*spabus.Spa, *panelsim.Panel) {
	t.Helper()
	cfg, err := spabus.ConfigFor(model)
	if err != nil {
		t.Fatal(err)
	}
	panel := panelsim.New(cfg, panelsim.Options{})
	clock := panelsim.NewClock(panel, spabus.DefaultTiming(cfg).CyclePeriod)
	spa, err := spabus.New(model, spabus.WithClock(clock), spabus.WithReplyLine(panel))
	if err != nil {
		t.Fatal(err)
	}
	clock.Attach(spa)
	clock.Sleep(2 * time.Second)
	return spa, panel
}

func actionNames(cfg spabus.ModelConfig) []string {
	var names []string
	for _, item := range controlActions(cfg) {
		names = append(names, item.(action).name)
	}
	return names
}

// ============================================================
// Action Tests
// ============================================================

func TestControlActions_PerModel(t *testing.T) {
	sbh20, _ := spabus.ConfigFor(spabus.ModelSBH20)
	sjbhs, _ := spabus.ConfigFor(spabus.ModelSJBHS)

	if got := strings.Join(actionNames(sbh20), ","); got != "power,filter,bubble,heater,setpoint" {
		t.Errorf("SB-H20 actions = %s", got)
	}
	if got := strings.Join(actionNames(sjbhs), ","); got != "power,filter,bubble,heater,jet,setpoint,disinfection" {
		t.Errorf("SJB-HS actions = %s", got)
	}
}

func TestAction_Run(t *testing.T) {
	spa, panel := newSimSpa(t, spabus.ModelSJBHS)

	if err := (action{name: "filter", kind: actionSwitch}).run(spa, 0); err != nil {
		t.Fatalf("run(filter) error: %v", err)
	}
	if !panel.State().Filter {
		t.Error("panel filter still off")
	}

	if err := (action{name: "disinfection", kind: actionTimer}).run(spa, 3); err != nil {
		t.Fatalf("run(disinfection) error: %v", err)
	}
	if got := panel.State().Disinfection; got != 3 {
		t.Errorf("panel disinfection = %d h, want 3", got)
	}

	if err := (action{name: "sauna", kind: actionSwitch}).run(spa, 0); err == nil {
		t.Error("run(sauna) accepted an unknown switch")
	}
}

func TestAction_RunUnsupported(t *testing.T) {
	spa, _ := newSimSpa(t, spabus.ModelSBH20)
	if err := (action{name: "disinfection", kind: actionTimer}).run(spa, 3); !errors.Is(err, spabus.ErrUnsupported) {
		t.Errorf("run(disinfection) error = %v, want ErrUnsupported", err)
	}
}

func TestAction_RunWithoutState(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSBH20)
	panel := panelsim.New(cfg, panelsim.Options{})
	clock := panelsim.NewClock(panel, spabus.DefaultTiming(cfg).CyclePeriod)
	spa, err := spabus.New(spabus.ModelSBH20, spabus.WithClock(clock), spabus.WithReplyLine(panel))
	if err != nil {
		t.Fatal(err)
	}
	clock.Attach(spa)

	// nothing decoded yet, the filter counts as off and is switched on
	if spa.FilterOn().Defined() {
		t.Fatal("filter state known before the first cycle")
	}
	if err := (action{name: "filter", kind: actionSwitch}).run(spa, 0); err != nil {
		t.Fatalf("run(filter) error: %v", err)
	}
	if !panel.State().Filter {
		t.Error("panel filter still off")
	}
}

// ============================================================
// Control Model Tests
// ============================================================

func lastEvent(m controlModel) eventLogEntry {
	if len(m.eventLog) == 0 {
		return eventLogEntry{}
	}
	return m.eventLog[len(m.eventLog)-1]
}

func TestControlModel_InvalidValue(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSBH20)
	m := initialControlModel(nil, "Simulator: SB-H20", cfg)
	m.actions.Select(4) // setpoint

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(controlModel)
	if m.focusedField != focusValueInput {
		t.Fatalf("focus = %d, want the value input", m.focusedField)
	}

	m.valueInput.SetValue("hot")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(controlModel)
	if cmd != nil || m.busy != "" {
		t.Error("an invalid value started a command")
	}
	if e := lastEvent(m); !e.isError || !strings.Contains(e.message, "Invalid setpoint") {
		t.Errorf("last event = %+v", e)
	}
}

func TestControlModel_Busy(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSBH20)
	m := initialControlModel(nil, "", cfg)
	m.busy = "power"

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(controlModel)
	if cmd != nil {
		t.Error("a second command was started")
	}
	if e := lastEvent(m); e.message != "Busy with power" {
		t.Errorf("last event = %q", e.message)
	}

	done := commandDoneMsg{action: action{name: "power", kind: actionSwitch}, err: spabus.ErrCommandTimeout}
	next, _ = m.Update(done)
	m = next.(controlModel)
	if m.busy != "" {
		t.Error("busy not cleared")
	}
	if e := lastEvent(m); !e.isError || !strings.HasSuffix(e.message, "enter retries") {
		t.Errorf("last event = %q", e.message)
	}
}

func TestControlModel_ConnectionLost(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSJBHS)
	m := initialControlModel(nil, "", cfg)

	next, _ := m.Update(connectionLostMsg{err: errors.New("EOF")})
	next, cmd := next.(controlModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(controlModel)
	if cmd != nil {
		t.Error("command started without a connection")
	}

	next, _ = m.Update(reconnectedMsg{connInfo: "Serial: /dev/ttyACM0 @ 921600 baud"})
	m = next.(controlModel)
	if m.connectionLost || m.connInfo != "Serial: /dev/ttyACM0 @ 921600 baud" {
		t.Errorf("after reconnect: lost=%v info=%q", m.connectionLost, m.connInfo)
	}
}
