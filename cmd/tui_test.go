// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{61 * time.Second, "1m 1s"},
		{3 * time.Hour, "3h 0m 0s"},
		{26*time.Hour + 5*time.Second, "1d 2h 0m 5s"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.in); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Monitor Model Tests
// ============================================================

func TestModel_BusData(t *testing.T) {
	cfg, err := spabus.ConfigFor(spabus.ModelSJBHS)
	if err != nil {
		t.Fatal(err)
	}
	m := initialModel("Simulator: SJB-HS", cfg, 10, false)

	online := undefinedState()
	online.online = true
	msg := busDataMsg{
		frames: []uint16{spabus.FrameCue, 0x1234},
		errors: [][]spabus.ValidationError{
			nil,
			{{Type: spabus.ANOMALY_UNKNOWN_FRAME, Message: "Unknown frame 0x1234"}},
		},
		snapshot: online,
		lost:     3,
	}

	next, _ := m.Update(msg)
	got := next.(model)

	if got.stats.TotalFrames != 2 || got.stats.ValidFrames != 1 || got.stats.UnknownFrames != 1 {
		t.Errorf("stats = %+v", got.stats)
	}
	if got.lostFrames != 3 {
		t.Errorf("lostFrames = %d, want 3", got.lostFrames)
	}

	want := []struct {
		message string
		isError bool
	}{
		{"Unknown frame 0x1234", true},
		{"3 frames lost", true},
		{"link online", false},
	}
	if len(got.eventLog) != len(want) {
		t.Fatalf("eventLog has %d entries, want %d", len(got.eventLog), len(want))
	}
	for i, w := range want {
		if e := got.eventLog[i]; e.message != w.message || e.isError != w.isError {
			t.Errorf("eventLog[%d] = %q (error %v), want %q (error %v)", i, e.message, e.isError, w.message, w.isError)
		}
	}

	if view := got.View(); !strings.Contains(view, "Online") || !strings.Contains(view, "Disinfection:") {
		t.Errorf("View() misses the link state or the disinfection timer")
	}
}

func TestModel_LogLimit(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSBH20)
	m := initialModel("", cfg, 10, false)
	for i := 0; i < m.maxLogEntries+20; i++ {
		m.addLogEntry("event", false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Errorf("eventLog has %d entries, want %d", len(m.eventLog), m.maxLogEntries)
	}
}
