// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// spaSnapshot is the decoded state at one point in time. Numbers are -1 while
// undefined.
type spaSnapshot struct {
	online    bool
	power     spabus.Flag
	filter    spabus.Flag
	bubble    spabus.Flag
	heater    spabus.Flag
	standby   spabus.Flag
	jet       spabus.Flag
	water     int
	setpoint  int
	hours     int
	errorCode string
	errorText string
}

// undefinedState is the state before the first frame
func undefinedState() spaSnapshot {
	return spaSnapshot{water: -1, setpoint: -1, hours: -1}
}

func takeSnapshot(s *spabus.Spa) spaSnapshot {
	snap := spaSnapshot{
		online:    s.IsOnline(),
		power:     s.PowerOn(),
		filter:    s.FilterOn(),
		bubble:    s.BubbleOn(),
		heater:    s.HeaterOn(),
		standby:   s.HeaterStandby(),
		jet:       s.JetOn(),
		water:     valueOr(s.ActWaterTempCelsius()),
		setpoint:  valueOr(s.DesiredWaterTempCelsius()),
		hours:     valueOr(s.DisinfectionTime()),
		errorCode: s.ErrorCode(),
	}
	if snap.errorCode != "" {
		snap.errorText = s.ErrorMessage(snap.errorCode)
	}
	return snap
}

func valueOr(v int, ok bool) int {
	if !ok {
		return -1
	}
	return v
}

func formatValue(v int, unit string) string {
	if v < 0 {
		return "undefined"
	}
	return fmt.Sprintf("%d %s", v, unit)
}

// changes describes what differs from prev, in display order
func (s spaSnapshot) changes(prev spaSnapshot) []string {
	var out []string
	if s.online != prev.online {
		if s.online {
			out = append(out, "link online")
		} else {
			out = append(out, "link offline")
		}
	}

	flags := []struct {
		name      string
		now, then spabus.Flag
	}{
		{"power", s.power, prev.power},
		{"filter", s.filter, prev.filter},
		{"bubble", s.bubble, prev.bubble},
		{"heater", s.heater, prev.heater},
		{"heater standby", s.standby, prev.standby},
		{"jet", s.jet, prev.jet},
	}
	for _, f := range flags {
		if f.now != f.then {
			out = append(out, fmt.Sprintf("%s %s", f.name, f.now))
		}
	}

	if s.water != prev.water {
		out = append(out, "water "+formatValue(s.water, "°C"))
	}
	if s.setpoint != prev.setpoint {
		out = append(out, "setpoint "+formatValue(s.setpoint, "°C"))
	}
	if s.hours != prev.hours {
		out = append(out, "disinfection "+formatValue(s.hours, "h"))
	}
	if s.errorCode != prev.errorCode && s.errorCode != "" {
		out = append(out, fmt.Sprintf("error %s: %s", s.errorCode, s.errorText))
	}
	return out
}
