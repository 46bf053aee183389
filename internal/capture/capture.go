// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw probe streams to files and plays them back.
//
// A capture file is a CBOR sequence: one Header followed by Records, each
// holding a chunk of probe sample bytes and its offset from the start.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/spalink/pkg/probe"
)

const (
	Magic   = "spalink-capture"
	Version = 1
)

// Header describes a capture
type Header struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint   `cbor:"2,keyasint"`
	Model   string `cbor:"3,keyasint"`
	Source  string `cbor:"4,keyasint,omitempty"`
	Start   int64  `cbor:"5,keyasint"` // unix milliseconds
}

// StartTime returns the start of the capture
func (h Header) StartTime() time.Time {
	return time.UnixMilli(h.Start)
}

// Record is one chunk of probe samples
type Record struct {
	Offset  uint64 `cbor:"1,keyasint"` // microseconds since the start
	Samples []byte `cbor:"2,keyasint"`
}

// At returns the offset as a duration
func (r Record) At() time.Duration {
	return time.Duration(r.Offset) * time.Microsecond
}

// Writer appends records to a capture
type Writer struct {
	enc     *cbor.Encoder
	start   time.Time
	records int
	samples int
}

// NewWriter writes the header of a new capture
func NewWriter(w io.Writer, model, source string, start time.Time) (*Writer, error) {
	enc := cbor.NewEncoder(w)
	hdr := Header{
		Magic:   Magic,
		Version: Version,
		Model:   model,
		Source:  source,
		Start:   start.UnixMilli(),
	}
	if err := enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &Writer{enc: enc, start: time.UnixMilli(hdr.Start)}, nil
}

// Write appends the samples received at t, empty chunks are skipped
func (w *Writer) Write(t time.Time, samples []byte) error {
	if len(samples) == 0 {
		return nil
	}
	offset := t.Sub(w.start)
	if offset < 0 {
		offset = 0
	}
	rec := Record{Offset: uint64(offset / time.Microsecond), Samples: samples}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	w.records++
	w.samples += len(samples)
	return nil
}

// Records returns the number of records written
func (w *Writer) Records() int {
	return w.records
}

// Samples returns the number of sample bytes written
func (w *Writer) Samples() int {
	return w.samples
}

// Reader reads a capture
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header of a capture
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var hdr Header
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if hdr.Magic != Magic {
		return nil, fmt.Errorf("not a capture file (magic %q)", hdr.Magic)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("unsupported capture version %d", hdr.Version)
	}
	return &Reader{dec: dec, header: hdr}, nil
}

// Header returns the capture header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, io.EOF at the end of the capture
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("failed to read capture record: %w", err)
	}
	return rec, nil
}

// Play feeds all records into sink. With sleep set, records are paced by
// their offsets.
func (r *Reader) Play(ctx context.Context, dec *probe.Decoder, sink probe.Sink, sleep func(time.Duration)) (int, error) {
	var played int
	var last time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		rec, err := r.Next()
		if err == io.EOF {
			return played, nil
		}
		if err != nil {
			return played, err
		}
		if sleep != nil && rec.At() > last {
			sleep(rec.At() - last)
			last = rec.At()
		}
		dec.Feed(rec.Samples, sink)
		played++
	}
}
