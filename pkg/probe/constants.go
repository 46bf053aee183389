// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package probe implements the byte stream of the bus sampling probe.
//
// The probe samples the data and latch lines at every rising clock edge and
// sends one byte per edge:
//
//	| 7 | 6 | 5 | 4 | 3 | 2 |   1   |   0  |
//	| 1 | 0 | 1 | 0 | 0 | 0 | LATCH | DATA |
//
// Bytes without the 0xA marker in the high nibble are line noise and are
// skipped. In the other direction the host sends ReplyRequest to have the
// probe pull the data line after the next frame it replies to.
package probe

// Sample byte layout
const (
	SampleMarker byte = 0xA0
	SampleMask   byte = 0xFC
	SampleLatch  byte = 0x02
	SampleData   byte = 0x01
)

// ReplyRequest asks the probe for one reply pulse
const ReplyRequest byte = 0x52

// DefaultBaudRate carries a full frame cycle with some headroom
const DefaultBaudRate = 921600

// readBufferSize is the chunk size of a pump read
const readBufferSize = 4096
