// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import "math"

// Display is the content of the 4-digit display, one character per byte with
// position 1 in the low byte
type Display uint32

// DisplayUndefined marks a display that has not been decoded yet
const DisplayUndefined Display = 0xFFFFFFFF

// MakeDisplay packs the first 4 characters of s, missing characters are blank
func MakeDisplay(s string) Display {
	var d Display
	for i := 0; i < 4; i++ {
		ch := byte(Blank)
		if i < len(s) {
			ch = s[i]
		}
		d |= Display(ch) << (8 * i)
	}
	return d
}

// Char returns the character at index 0..3 (position 1..4)
func (d Display) Char(i int) byte {
	return byte(d >> (8 * i))
}

func (d Display) String() string {
	if d == DisplayUndefined {
		return "????"
	}
	return string([]byte{d.Char(0), d.Char(1), d.Char(2), d.Char(3)})
}

// IsBlank reports a dark display, the unit position is not checked
func (d Display) IsBlank() bool {
	return d.Char(0) == Blank && d.Char(1) == Blank && d.Char(2) == Blank
}

// IsError reports an error code like "E90"
func (d Display) IsError() bool {
	return d.Char(0) == 'E'
}

// IsTemp reports a temperature like "38C" or "100F"
func (d Display) IsTemp() bool {
	unit := d.Char(3)
	return unit == 'C' || unit == 'F'
}

// IsDuration reports a disinfection duration like "  5H"
func (d Display) IsDuration() bool {
	return d.Char(3) == 'H'
}

// errorBits returns the first three characters as a non-zero value
func (d Display) errorBits() uint32 {
	return uint32(d) & 0x00FFFFFF
}

// Number decodes the first three characters as a decimal number. Leading
// blanks count as zero, any other non-digit fails.
func (d Display) Number() (int, bool) {
	n := 0
	digits := 0
	for i := 0; i < 3; i++ {
		ch := d.Char(i)
		switch {
		case ch >= '0' && ch <= '9':
			n = n*10 + int(ch-'0')
			digits++
		case ch == Blank && digits == 0:
		default:
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	return n, true
}

// Celsius decodes a temperature display in °C. Fahrenheit is converted with
// rounding, values outside 0..60 °C are rejected.
func (d Display) Celsius() (int, bool) {
	if d == DisplayUndefined {
		return 0, false
	}
	n, ok := d.Number()
	if !ok {
		return 0, false
	}
	switch d.Char(3) {
	case 'C':
	case 'F':
		n = int(math.Round(float64(n-32) * 5 / 9))
	default:
		return 0, false
	}
	if n < waterTempMin || n > waterTempMax {
		return 0, false
	}
	return n, true
}

// Hours decodes a duration display
func (d Display) Hours() (int, bool) {
	if d == DisplayUndefined || !d.IsDuration() {
		return 0, false
	}
	return d.Number()
}
