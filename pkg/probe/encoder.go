// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package probe

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// EncodeSample encodes the line levels of one clock edge
func EncodeSample(data, latch bool) byte {
	b := SampleMarker
	if data {
		b |= SampleData
	}
	if latch {
		b |= SampleLatch
	}
	return b
}

// AppendFrame appends the samples of a complete frame as the probe would see
// it on the bus: MSB first, inverted data, latch rising with the last bit
func AppendFrame(dst []byte, frame uint16) []byte {
	for i := spabus.FrameBits - 1; i >= 0; i-- {
		bit := frame>>uint(i)&1 == 1
		dst = append(dst, EncodeSample(!bit, i == 0))
	}
	return dst
}

// StreamWriter encodes clock edges into a probe stream. Samples are buffered,
// call Flush at the end.
type StreamWriter struct {
	w   io.Writer
	buf []byte
	err error
}

// NewStreamWriter creates a writer on w
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w, buf: make([]byte, 0, readBufferSize)}
}

// OnClockRising encodes one edge
func (s *StreamWriter) OnClockRising(data, latch bool) {
	s.buf = append(s.buf, EncodeSample(data, latch))
	if len(s.buf) >= readBufferSize {
		s.Flush()
	}
}

// Flush writes the buffered samples and returns the first write error
func (s *StreamWriter) Flush() error {
	if len(s.buf) > 0 && s.err == nil {
		_, s.err = s.w.Write(s.buf)
	}
	s.buf = s.buf[:0]
	return s.err
}

// ReplyWriter forwards reply pulses of a decoder to the probe. Pulse never
// blocks, requests are dropped while the writer is congested.
type ReplyWriter struct {
	w       io.Writer
	pending chan struct{}
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewReplyWriter creates a reply writer on w
func NewReplyWriter(w io.Writer) *ReplyWriter {
	return &ReplyWriter{w: w, pending: make(chan struct{}, 64)}
}

// Pulse queues one reply request
func (r *ReplyWriter) Pulse() {
	select {
	case r.pending <- struct{}{}:
	default:
		r.dropped.Add(1)
	}
}

// Run writes queued requests until ctx is done or a write fails
func (r *ReplyWriter) Run(ctx context.Context) error {
	req := []byte{ReplyRequest}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.pending:
			if _, err := r.w.Write(req); err != nil {
				return err
			}
			r.sent.Add(1)
		}
	}
}

// Sent returns the number of requests written
func (r *ReplyWriter) Sent() uint64 {
	return r.sent.Load()
}

// Dropped returns the number of requests lost to congestion
func (r *ReplyWriter) Dropped() uint64 {
	return r.dropped.Load()
}
