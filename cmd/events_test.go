// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"reflect"
	"testing"
	"time"

	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// ============================================================
// Snapshot Tests
// ============================================================

func TestSnapshot_Changes(t *testing.T) {
	prev := undefinedState()

	now := prev
	now.online = true
	now.power = spabus.FlagOn
	now.filter = spabus.FlagOff
	now.water = 31
	now.errorCode = "E90"
	now.errorText = "no water flow"

	want := []string{"link online", "power on", "filter off", "water 31 °C", "error E90: no water flow"}
	if got := now.changes(prev); !reflect.DeepEqual(got, want) {
		t.Errorf("changes() = %q, want %q", got, want)
	}

	if got := now.changes(now); len(got) != 0 {
		t.Errorf("changes() of an unchanged state = %q, want none", got)
	}

	back := now
	back.online = false
	back.setpoint = 38
	back.hours = 5
	want = []string{"link offline", "setpoint 38 °C", "disinfection 5 h"}
	if got := back.changes(now); !reflect.DeepEqual(got, want) {
		t.Errorf("changes() = %q, want %q", got, want)
	}
}

func TestTakeSnapshot_SimulatedPanel(t *testing.T) {
	cfg, err := spabus.ConfigFor(spabus.ModelSBH20)
	if err != nil {
		t.Fatal(err)
	}
	panel := panelsim.New(cfg, panelsim.Options{})
	timing := spabus.DefaultTiming(cfg)
	clock := panelsim.NewClock(panel, timing.CyclePeriod)
	spa, err := spabus.New(spabus.ModelSBH20, spabus.WithClock(clock), spabus.WithReplyLine(panel))
	if err != nil {
		t.Fatal(err)
	}
	clock.Attach(spa)

	if got := takeSnapshot(spa); got.online || got.water != -1 || got.power.Defined() {
		t.Errorf("takeSnapshot() before traffic = %+v", got)
	}

	clock.Sleep(2 * time.Second)
	spa.CheckLink()

	got := takeSnapshot(spa)
	if !got.online || got.water != 30 || !got.power.IsOn() || got.errorCode != "" {
		t.Errorf("takeSnapshot() = %+v", got)
	}
}
