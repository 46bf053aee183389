// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// Flag is a boolean reading that may not be known yet
type Flag uint8

// Flag values
const (
	FlagUndefined Flag = iota
	FlagOff
	FlagOn
)

func flagOf(on bool) Flag {
	if on {
		return FlagOn
	}
	return FlagOff
}

// IsOn reports a defined on state
func (f Flag) IsOn() bool {
	return f == FlagOn
}

// Defined reports whether the reading is known
func (f Flag) Defined() bool {
	return f == FlagOn || f == FlagOff
}

func (f Flag) String() string {
	switch f {
	case FlagOn:
		return "on"
	case FlagOff:
		return "off"
	default:
		return "undefined"
	}
}
