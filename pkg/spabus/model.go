// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"strings"
)

// Model identifies a supported panel variant
type Model uint8

// Supported models
const (
	ModelSBH20 Model = 1 // PureSpa SB-H20, SSP-H-20-1, SimpleSpa SB-B20
	ModelSJBHS Model = 2 // PureSpa SJB-HS
)

func (m Model) String() string {
	switch m {
	case ModelSBH20:
		return "SB-H20"
	case ModelSJBHS:
		return "SJB-HS"
	default:
		return fmt.Sprintf("Model(%d)", uint8(m))
	}
}

// ParseModel accepts the model names with or without the dash, case insensitive
func ParseModel(s string) (Model, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "sbh20":
		return ModelSBH20, nil
	case "sjbhs":
		return ModelSJBHS, nil
	}
	return 0, fmt.Errorf("unknown model %q (use SB-H20 or SJB-HS)", s)
}

// Button is a logical panel button
type Button uint8

// Buttons
const (
	ButtonPower Button = iota
	ButtonFilter
	ButtonHeater
	ButtonBubble
	ButtonTempUp
	ButtonTempDown
	ButtonTempUnit
	ButtonJet
	ButtonDisinfection

	buttonCount
)

var buttonNames = [buttonCount]string{
	ButtonPower:        "power",
	ButtonFilter:       "filter",
	ButtonHeater:       "heater",
	ButtonBubble:       "bubble",
	ButtonTempUp:       "temp-up",
	ButtonTempDown:     "temp-down",
	ButtonTempUnit:     "temp-unit",
	ButtonJet:          "jet",
	ButtonDisinfection: "disinfection",
}

func (b Button) String() string {
	if b < buttonCount {
		return buttonNames[b]
	}
	return fmt.Sprintf("Button(%d)", uint8(b))
}

// Feature flags a model specific function
type Feature uint8

// Model specific features
const (
	FeatureJet Feature = 1 << iota
	FeatureDisinfection
)

// LEDMasks holds the lamp bits of an LED frame
type LEDMasks struct {
	Power         uint16
	Filter        uint16
	Bubble        uint16
	HeaterOn      uint16
	HeaterStandby uint16
	NoBeep        uint16
	Jet           uint16
	Disinfection  uint16
}

// ButtonMask maps a button to its bit in a button frame
type ButtonMask struct {
	Button Button
	Mask   uint16
}

// ModelConfig is the per-model protocol table, selected once at construction
type ModelConfig struct {
	Model Model
	Name  string
	LED   LEDMasks

	// Buttons lists the button frame bits in echo priority order. The first
	// bit found in a button frame decides which button the frame belongs to.
	Buttons []ButtonMask

	Features Feature
}

// maxButtonFrames is the largest button super-frame of all models
const maxButtonFrames = 9

var sbh20 = ModelConfig{
	Model: ModelSBH20,
	Name:  "Intex PureSpa SB-H20",
	LED: LEDMasks{
		Power:         0x0001,
		HeaterOn:      0x0080, // max. 72 h, starts the filter
		NoBeep:        0x0100,
		HeaterStandby: 0x0200,
		Bubble:        0x0400, // max. 30 min
		Filter:        0x1000, // max. 24 h
	},
	Buttons: []ButtonMask{
		{ButtonFilter, 0x0002},
		{ButtonHeater, 0x8000},
		{ButtonBubble, 0x0008},
		{ButtonPower, 0x0400},
		{ButtonTempUp, 0x1000},
		{ButtonTempDown, 0x0080},
		{ButtonTempUnit, 0x2000},
	},
}

var sjbhs = ModelConfig{
	Model: ModelSJBHS,
	Name:  "Intex PureSpa SJB-HS",
	LED: LEDMasks{
		Power:         0x0001,
		Bubble:        0x0002, // max. 30 min
		HeaterOn:      0x0080, // max. 72 h, starts the filter
		NoBeep:        0x0100,
		HeaterStandby: 0x0200,
		Jet:           0x0400,
		Filter:        0x1000, // max. 24 h
		Disinfection:  0x2000, // max. 8 h
	},
	Buttons: []ButtonMask{
		{ButtonFilter, 0x0080},
		{ButtonHeater, 0x8000},
		{ButtonBubble, 0x0002},
		{ButtonPower, 0x0400},
		{ButtonTempUp, 0x1000},
		{ButtonTempDown, 0x0200},
		{ButtonDisinfection, 0x0001},
		{ButtonJet, 0x0008},
		{ButtonTempUnit, 0x2000},
	},
	Features: FeatureJet | FeatureDisinfection,
}

// ConfigFor returns the protocol table of a model
func ConfigFor(m Model) (ModelConfig, error) {
	var cfg ModelConfig
	switch m {
	case ModelSBH20:
		cfg = sbh20
	case ModelSJBHS:
		cfg = sjbhs
	default:
		return ModelConfig{}, fmt.Errorf("unsupported model: %v", m)
	}
	cfg.Buttons = append([]ButtonMask(nil), cfg.Buttons...)
	return cfg, nil
}

// Has reports whether the model supports a feature
func (c ModelConfig) Has(f Feature) bool {
	return c.Features&f == f
}

// ButtonFrames is the number of sub-frames of the button super-frame
func (c ModelConfig) ButtonFrames() int {
	return len(c.Buttons)
}

// ButtonBit returns the frame bit of a button, 0 if the model lacks it
func (c ModelConfig) ButtonBit(b Button) uint16 {
	for _, bm := range c.Buttons {
		if bm.Button == b {
			return bm.Mask
		}
	}
	return 0
}

// buttonFrameMask is the classification mask of a button frame
func (c ModelConfig) buttonFrameMask() uint16 {
	mask := FrameCue
	for _, bm := range c.Buttons {
		mask |= bm.Mask
	}
	return mask
}
