// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import "sync/atomic"

// tapSize is the capacity of a frame tap, a bit more than 10 frame cycles
const tapSize = 1024

// FrameTap is a lock-free single producer, single consumer queue of raw
// frames. The edge handler never blocks on it: frames are dropped and counted
// when the consumer falls behind.
type FrameTap struct {
	buf      [tapSize]uint16
	head     atomic.Uint32
	tail     atomic.Uint32
	overflow atomic.Uint32
}

// NewFrameTap creates an empty tap
func NewFrameTap() *FrameTap {
	return &FrameTap{}
}

func (t *FrameTap) put(frame uint16) {
	head := t.head.Load()
	if head-t.tail.Load() >= tapSize {
		t.overflow.Add(1)
		return
	}
	t.buf[head%tapSize] = frame
	t.head.Store(head + 1)
}

// Drain appends all queued frames to dst
func (t *FrameTap) Drain(dst []uint16) []uint16 {
	tail := t.tail.Load()
	head := t.head.Load()
	for ; tail != head; tail++ {
		dst = append(dst, t.buf[tail%tapSize])
	}
	t.tail.Store(tail)
	return dst
}

// Len returns the number of queued frames
func (t *FrameTap) Len() int {
	return int(t.head.Load() - t.tail.Load())
}

// Overflows returns the number of frames lost to a full queue
func (t *FrameTap) Overflows() uint32 {
	return t.overflow.Load()
}
