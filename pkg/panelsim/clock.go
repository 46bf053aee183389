// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package panelsim

import "time"

// Clock is a simulated time source that runs the panel while time passes. It
// lets blocking decoder commands run without real delays: every Sleep sends
// the frame cycles that fall into the slept time.
type Clock struct {
	panel   *Panel
	sink    Sink
	period  time.Duration
	now     time.Time
	pending time.Duration
}

// NewClock creates a clock that sends one cycle of panel every period
func NewClock(panel *Panel, period time.Duration) *Clock {
	return &Clock{
		panel:  panel,
		period: period,
		now:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Attach sets the receiver of the bus, nil disconnects the bus
func (c *Clock) Attach(sink Sink) {
	c.sink = sink
}

// Now returns the simulated time
func (c *Clock) Now() time.Time {
	return c.now
}

// Sleep advances the simulated time and runs the elapsed cycles
func (c *Clock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.pending += d
	for c.pending >= c.period {
		c.pending -= c.period
		if c.sink != nil {
			c.panel.RunCycle(c.sink)
		}
	}
}
