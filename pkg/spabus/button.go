// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

// decodeButton answers the echo of an armed button. The first button bit
// found in priority order owns the frame; its press counter is decremented
// and a reply pulse is sent while the counter is positive and the buzzer is
// quiet.
func (s *Spa) decodeButton(frame uint16) {
	for i := 0; i < s.echoN; i++ {
		e := s.echo[i]
		if frame&e.Mask == 0 {
			continue
		}
		if e.Button == ButtonTempUnit {
			// never pressed, switching units would confuse the decoder
			return
		}

		c := &s.presses[e.Button]
		n := c.Load()
		if n == 0 {
			return
		}
		if s.pub.buzzer.Load() {
			c.Store(0)
			return
		}
		if c.CompareAndSwap(n, n-1) {
			s.pub.replies.Add(1)
			s.reply.Pulse()
		}
		return
	}
}

// arm starts a press of the given number of cycles
func (s *Spa) arm(b Button, cycles uint32) {
	s.presses[b].Store(cycles)
}

// release returns a button to idle
func (s *Spa) release(b Button) {
	s.presses[b].Store(0)
}

// pressPending returns the remaining cycles of a press
func (s *Spa) pressPending(b Button) uint32 {
	return s.presses[b].Load()
}
