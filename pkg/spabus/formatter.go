// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a raw frame into a human-readable string
func FormatFrame(cfg ModelConfig, frame uint16) string {
	class := NewClassifier(cfg).Classify(frame)
	result := fmt.Sprintf("%-6s 0x%04X", class, frame)

	switch class {
	case ClassDigit:
		ch, ok := DecodeSegments(frame)
		pos := digitPosition(frame)
		switch {
		case pos == 0:
			result += fmt.Sprintf("  positions=%s", formatPositions(frame))
		case !ok:
			result += fmt.Sprintf("  pos=%d segments=%s (unknown)", pos, formatSegments(frame))
		default:
			result += fmt.Sprintf("  pos=%d '%c'", pos, ch)
		}
		if frame&SegmentDP != 0 {
			result += " dp"
		}

	case ClassLED:
		result += "  " + FormatLED(cfg, frame)

	case ClassButton:
		var names []string
		for _, bm := range cfg.Buttons {
			if frame&bm.Mask != 0 {
				names = append(names, bm.Button.String())
			}
		}
		result += "  " + strings.Join(names, ",")
	}

	return result
}

// FormatLED lists the lamps of an LED frame
func FormatLED(cfg ModelConfig, led uint16) string {
	lamps := []struct {
		name string
		mask uint16
	}{
		{"power", cfg.LED.Power},
		{"filter", cfg.LED.Filter},
		{"bubble", cfg.LED.Bubble},
		{"heater", cfg.LED.HeaterOn},
		{"standby", cfg.LED.HeaterStandby},
		{"jet", cfg.LED.Jet},
		{"disinfection", cfg.LED.Disinfection},
	}

	var on []string
	for _, l := range lamps {
		if l.mask != 0 && led&l.mask != 0 {
			on = append(on, l.name)
		}
	}
	if led&cfg.LED.NoBeep == 0 {
		on = append(on, "BEEP")
	}
	if len(on) == 0 {
		return "(all off)"
	}
	return strings.Join(on, " ")
}

func formatPositions(frame uint16) string {
	var pos []string
	for i, p := range []uint16{DigitPos1, DigitPos2, DigitPos3, DigitPos4} {
		if frame&p != 0 {
			pos = append(pos, fmt.Sprint(i+1))
		}
	}
	return strings.Join(pos, ",")
}

func formatSegments(frame uint16) string {
	var b strings.Builder
	for i, seg := range []uint16{SegmentA, SegmentB, SegmentC, SegmentD, SegmentE, SegmentF, SegmentG} {
		if frame&seg != 0 {
			b.WriteByte("ABCDEFG"[i])
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// FormatState summarizes the decoded state of a spa
func FormatState(s *Spa) string {
	result := fmt.Sprintf("%s (%s)\n", s.ModelName(), linkState(s))

	if temp, ok := s.ActWaterTempCelsius(); ok {
		result += fmt.Sprintf("  Water:     %d °C\n", temp)
	} else {
		result += "  Water:     undefined\n"
	}
	if temp, ok := s.DesiredWaterTempCelsius(); ok {
		result += fmt.Sprintf("  Setpoint:  %d °C\n", temp)
	} else {
		result += "  Setpoint:  undefined\n"
	}

	result += fmt.Sprintf("  Power:     %s\n", s.PowerOn())
	result += fmt.Sprintf("  Filter:    %s\n", s.FilterOn())
	result += fmt.Sprintf("  Bubble:    %s\n", s.BubbleOn())
	result += fmt.Sprintf("  Heater:    %s", s.HeaterOn())
	if s.HeaterStandby().IsOn() {
		result += " (standby)"
	}
	result += "\n"

	if s.Model().Has(FeatureJet) {
		result += fmt.Sprintf("  Jet:       %s\n", s.JetOn())
	}
	if s.Model().Has(FeatureDisinfection) {
		if h, ok := s.DisinfectionTime(); ok {
			result += fmt.Sprintf("  Disinfect: %d h\n", h)
		} else {
			result += "  Disinfect: undefined\n"
		}
	}

	if code := s.ErrorCode(); code != "" {
		result += fmt.Sprintf("  Error:     %s (%s)\n", code, s.ErrorMessage(code))
	}

	c := s.Counters()
	result += fmt.Sprintf("  Frames:    %d total, %d dropped\n", c.Total, c.Dropped)
	return result
}

func linkState(s *Spa) string {
	if s.IsOnline() {
		return "online"
	}
	return "offline"
}

// FormatFrameLog formats a frame for the raw log with a timestamp
func FormatFrameLog(cfg ModelConfig, t time.Time, frame uint16) string {
	return fmt.Sprintf("[%s] %s", t.Format("15:04:05.000"), FormatFrame(cfg, frame))
}
