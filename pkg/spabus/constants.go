// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package spabus decodes the display bus between an Intex PureSpa mainboard
// and its control panel, and simulates button presses on it.
//
// The bus is a unidirectional link similar to SPI mode 3: 16-bit frames, MSB
// first, data bits inverted, each bit sampled on the rising clock edge and the
// frame delimited by an active-low latch line. The clock runs at 100 kHz.
//
//	       |-------------------------------------------------------------------------------|
//	BIT    | 15 | 14 | 13 | 12 | 11 | 10 |  9 |  8 |  7 |  6 |  5 |  4 |  3 |  2 |  1 |  0 |
//	       |-------------------------------------------------------------------------------|
//	CUE    |  0 |  0 |  0 |  0 |  0 |  0 |  0 |  1 |  0 |  0 |  0 |  0 |  0 |  0 |  0 |  0 |
//	DIGIT  | DP |  x |  A |  B | S3 |  D |  C |  x |  E | S1 | S2 |  G |  F | S4 |  x |  x |
//	LED    |  0 |  1 |  0 |  x |  0 |  x |  x |  x |  x |  0 |  0 |  0 |  0 |  0 |  0 |  x |
//	BUTTON |  x |  0 |  x |  x |  0 |  x |  0 |  1 |  0 |  0 |  0 |  0 |  x |  0 |  0 |  0 |
//	       |-------------------------------------------------------------------------------|
//
// One frame cycle takes about 21 ms: 25 cue frames interleaved with 5 groups of
// the 4 digit positions, 5 LED frames and one button super-frame of 7 (SB-H20)
// or 9 (SJB-HS) sub-frames.
package spabus

// Frame layout
const (
	FrameBits = 16

	// CueFramesPerCycle is the number of cue frames in one frame cycle
	CueFramesPerCycle = 25

	// DisplayGroupsPerCycle is the number of complete digit groups per cycle
	DisplayGroupsPerCycle = 5
)

// Frame type markers
const (
	FrameCue uint16 = 0x0100
	FrameLED uint16 = 0x4000
)

// 7-segment position selectors, digits are numbered from left to right
const (
	DigitPos1 uint16 = 0x0040
	DigitPos2 uint16 = 0x0020
	DigitPos3 uint16 = 0x0800
	DigitPos4 uint16 = 0x0004

	DigitPositions = DigitPos1 | DigitPos2 | DigitPos3 | DigitPos4
)

// 7-segment element bits
//
//	DP .    A
//	      -----
//	     |     |
//	   F |     | B
//	     |     |
//	      --G--
//	     |     |
//	   E |     | C
//	     |     |
//	      -----
//	        D
const (
	SegmentA  uint16 = 0x2000
	SegmentB  uint16 = 0x1000
	SegmentC  uint16 = 0x0200
	SegmentD  uint16 = 0x0400
	SegmentE  uint16 = 0x0080
	SegmentF  uint16 = 0x0008
	SegmentG  uint16 = 0x0010
	SegmentDP uint16 = 0x8000

	Segments = SegmentA | SegmentB | SegmentC | SegmentD | SegmentE | SegmentF | SegmentG
)

// Segment patterns of the characters shown by the panel
const (
	patternOff = 0x0000
	pattern0   = SegmentA | SegmentB | SegmentC | SegmentD | SegmentE | SegmentF
	pattern1   = SegmentB | SegmentC
	pattern2   = SegmentA | SegmentB | SegmentG | SegmentE | SegmentD
	pattern3   = SegmentA | SegmentB | SegmentC | SegmentD | SegmentG
	pattern4   = SegmentF | SegmentG | SegmentB | SegmentC
	pattern5   = SegmentA | SegmentF | SegmentG | SegmentC | SegmentD
	pattern6   = SegmentA | SegmentF | SegmentE | SegmentD | SegmentC | SegmentG
	pattern7   = SegmentA | SegmentB | SegmentC
	pattern8   = SegmentA | SegmentB | SegmentC | SegmentD | SegmentE | SegmentF | SegmentG
	pattern9   = SegmentA | SegmentB | SegmentC | SegmentD | SegmentF | SegmentG
	patternC   = SegmentA | SegmentF | SegmentE | SegmentD
	patternD   = SegmentB | SegmentC | SegmentD | SegmentE | SegmentG
	patternE   = SegmentA | SegmentF | SegmentE | SegmentD | SegmentG
	patternF   = SegmentE | SegmentF | SegmentA | SegmentG
	patternH   = SegmentB | SegmentC | SegmentE | SegmentF | SegmentG
	patternN   = SegmentA | SegmentB | SegmentC | SegmentE | SegmentF
)

// Blank is the character of a dark 7-segment digit
const Blank = ' '

// Water temperature setpoint range [°C]
const (
	WaterTempSetMin = 20
	WaterTempSetMax = 40
)

// Plausible range of a decoded water temperature [°C]
const (
	waterTempMin = 0
	waterTempMax = 60
)
