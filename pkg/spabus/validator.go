// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"math/bits"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	ANOMALY_UNKNOWN_FRAME AnomalyType = iota
	ANOMALY_SEGMENT_PATTERN
	ANOMALY_MULTIPLE_POSITIONS
	ANOMALY_MULTIPLE_BUTTONS
	ANOMALY_LED_RESERVED_BITS
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a frame against the layout of a model.
// Returns a slice of validation errors (empty if the frame is valid)
func ValidateFrame(cfg ModelConfig, frame uint16) []ValidationError {
	errors := []ValidationError{}

	switch NewClassifier(cfg).Classify(frame) {
	case ClassDigit:
		errors = append(errors, validateDigit(frame)...)
	case ClassLED:
		errors = append(errors, validateLED(cfg, frame)...)
	case ClassButton:
		errors = append(errors, validateButton(cfg, frame)...)
	case ClassUnknown:
		errors = append(errors, ValidationError{
			Type:    ANOMALY_UNKNOWN_FRAME,
			Message: fmt.Sprintf("Unknown frame 0x%04X", frame),
			Details: map[string]interface{}{"frame": frame},
		})
	}

	return errors
}

func validateDigit(frame uint16) []ValidationError {
	errors := []ValidationError{}

	if n := bits.OnesCount16(frame & DigitPositions); n > 1 {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_MULTIPLE_POSITIONS,
			Message: fmt.Sprintf("Digit frame selects %d positions (%s)", n, formatPositions(frame)),
			Details: map[string]interface{}{"frame": frame, "positions": n},
		})
	}

	if _, ok := DecodeSegments(frame); !ok {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_SEGMENT_PATTERN,
			Message: fmt.Sprintf("Unknown segment pattern %s", formatSegments(frame)),
			Details: map[string]interface{}{"frame": frame, "segments": frame & Segments},
		})
	}

	return errors
}

func validateLED(cfg ModelConfig, frame uint16) []ValidationError {
	l := cfg.LED
	known := FrameLED | l.Power | l.Filter | l.Bubble | l.HeaterOn | l.HeaterStandby | l.NoBeep | l.Jet | l.Disinfection
	if extra := frame &^ known; extra != 0 {
		return []ValidationError{{
			Type:    ANOMALY_LED_RESERVED_BITS,
			Message: fmt.Sprintf("LED frame sets unknown bits 0x%04X", extra),
			Details: map[string]interface{}{"frame": frame, "bits": extra},
		}}
	}
	return nil
}

func validateButton(cfg ModelConfig, frame uint16) []ValidationError {
	pressed := 0
	for _, bm := range cfg.Buttons {
		if frame&bm.Mask != 0 {
			pressed++
		}
	}
	if pressed > 1 {
		return []ValidationError{{
			Type:    ANOMALY_MULTIPLE_BUTTONS,
			Message: fmt.Sprintf("Button frame 0x%04X selects %d buttons", frame, pressed),
			Details: map[string]interface{}{"frame": frame, "buttons": pressed},
		}}
	}
	return nil
}
