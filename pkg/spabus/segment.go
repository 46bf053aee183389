// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// DecodeSegments converts the segment bits of a digit frame to a character.
// The decimal point is ignored. Returns false for patterns the panel never
// shows, e.g. a digit caught while the mainboard was switching it.
func DecodeSegments(frame uint16) (byte, bool) {
	switch frame & Segments {
	case patternOff:
		return Blank, true
	case pattern0:
		return '0', true
	case pattern1:
		return '1', true
	case pattern2:
		return '2', true
	case pattern3:
		return '3', true
	case pattern4:
		return '4', true
	case pattern5:
		return '5', true
	case pattern6:
		return '6', true
	case pattern7:
		return '7', true
	case pattern8:
		return '8', true
	case pattern9:
		return '9', true
	case patternC:
		return 'C', true
	case patternD:
		return 'D', true
	case patternE:
		return 'E', true
	case patternF:
		return 'F', true
	case patternH:
		return 'H', true
	case patternN:
		return 'N', true
	}
	return 0, false
}

// EncodeSegments returns the segment bits of a character
func EncodeSegments(ch byte) (uint16, bool) {
	switch ch {
	case Blank:
		return patternOff, true
	case '0':
		return pattern0, true
	case '1':
		return pattern1, true
	case '2':
		return pattern2, true
	case '3':
		return pattern3, true
	case '4':
		return pattern4, true
	case '5':
		return pattern5, true
	case '6':
		return pattern6, true
	case '7':
		return pattern7, true
	case '8':
		return pattern8, true
	case '9':
		return pattern9, true
	case 'C':
		return patternC, true
	case 'D':
		return patternD, true
	case 'E':
		return patternE, true
	case 'F':
		return patternF, true
	case 'H':
		return patternH, true
	case 'N':
		return patternN, true
	}
	return 0, false
}

// DigitFrame builds the frame that shows a character at a position (1..4).
// Characters without a segment pattern are shown blank.
func DigitFrame(pos int, ch byte) uint16 {
	var frame uint16
	switch pos {
	case 1:
		frame = DigitPos1
	case 2:
		frame = DigitPos2
	case 3:
		frame = DigitPos3
	case 4:
		frame = DigitPos4
	default:
		return 0
	}
	seg, _ := EncodeSegments(ch)
	return frame | seg
}

// digitPosition returns the position (1..4) of a digit frame, 0 if the frame
// selects no position or more than one
func digitPosition(frame uint16) int {
	switch frame & DigitPositions {
	case DigitPos1:
		return 1
	case DigitPos2:
		return 2
	case DigitPos3:
		return 3
	case DigitPos4:
		return 4
	}
	return 0
}
