// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import "time"

// Clock is the time source of blocking commands and the link check
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

// ReplyLine pulls the data line low for one reply pulse. Pulse is called by
// the edge handler right after the last bit of a button frame and must return
// before the next clock edge.
type ReplyLine interface {
	Pulse()
}

type noReply struct{}

func (noReply) Pulse() {}
