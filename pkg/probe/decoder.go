// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Sink receives the decoded clock edges
type Sink interface {
	OnClockRising(data, latch bool)
}

// Decoder converts probe bytes into clock edges
type Decoder struct {
	samples uint64
	invalid uint64
}

// NewDecoder creates a new probe stream decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset clears the counters
func (d *Decoder) Reset() {
	d.samples = 0
	d.invalid = 0
}

// DecodeByte decodes a single sample byte.
// Returns an error for bytes without the sample marker
func (d *Decoder) DecodeByte(b byte) (data, latch bool, err error) {
	if b&SampleMask != SampleMarker {
		d.invalid++
		return false, false, fmt.Errorf("invalid sample byte 0x%02X", b)
	}
	d.samples++
	return b&SampleData != 0, b&SampleLatch != 0, nil
}

// Feed decodes a buffer into sink, invalid bytes are skipped.
// Returns the number of invalid bytes
func (d *Decoder) Feed(buf []byte, sink Sink) int {
	invalid := 0
	for _, b := range buf {
		data, latch, err := d.DecodeByte(b)
		if err != nil {
			invalid++
			continue
		}
		sink.OnClockRising(data, latch)
	}
	return invalid
}

// Samples returns the number of decoded samples
func (d *Decoder) Samples() uint64 {
	return d.samples
}

// InvalidBytes returns the number of skipped bytes
func (d *Decoder) InvalidBytes() uint64 {
	return d.invalid
}

// Pump reads the probe stream from r into sink until ctx is done or r fails.
// onChunk, if not nil, receives every raw chunk before it is decoded.
func (d *Decoder) Pump(ctx context.Context, r io.Reader, sink Sink, onChunk func([]byte)) error {
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if onChunk != nil {
				onChunk(buf[:n])
			}
			d.Feed(buf[:n], sink)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("probe read failed: %w", err)
		}
	}
}
