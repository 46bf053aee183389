// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// FrameClass is the type of a received frame
type FrameClass uint8

// Frame classes
const (
	ClassEmpty FrameClass = iota
	ClassCue
	ClassDigit
	ClassLED
	ClassButton
	ClassUnknown
)

func (c FrameClass) String() string {
	switch c {
	case ClassEmpty:
		return "EMPTY"
	case ClassCue:
		return "CUE"
	case ClassDigit:
		return "DIGIT"
	case ClassLED:
		return "LED"
	case ClassButton:
		return "BUTTON"
	default:
		return "UNKNOWN"
	}
}

// Classifier sorts frames by type using the button mask of one model
type Classifier struct {
	button uint16
}

// NewClassifier creates a classifier for a model
func NewClassifier(cfg ModelConfig) Classifier {
	return Classifier{button: cfg.buttonFrameMask()}
}

// Classify returns the class of a frame. The checks run in a fixed order
// because the type markers share bits with other frame types.
func (c Classifier) Classify(frame uint16) FrameClass {
	switch {
	case frame == FrameCue:
		return ClassCue
	case frame&DigitPositions != 0:
		return ClassDigit
	case frame&FrameLED != 0:
		return ClassLED
	case frame&c.button != 0:
		return ClassButton
	case frame != 0:
		return ClassUnknown
	}
	return ClassEmpty
}
