// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"context"
	"time"
)

// CheckLink updates the online state. The link is online as soon as an LED
// frame was confirmed since the last check, and goes offline when no frame was
// confirmed for the receive timeout. Call it periodically from the foreground.
func (s *Spa) CheckLink() bool {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	now := s.clock.Now()
	if s.pub.updated.Swap(false) {
		s.lastUpdate = now
		s.pub.online.Store(true)
	} else if now.Sub(s.lastUpdate) > s.timing.ReceiveTimeout {
		s.pub.online.Store(false)
	}
	return s.pub.online.Load()
}

// WatchLink calls CheckLink every period until ctx is done. onChange is called
// with the new state when the link goes on- or offline, it may be nil.
func (s *Spa) WatchLink(ctx context.Context, period time.Duration, onChange func(online bool)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	online := s.IsOnline()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.CheckLink()
			if now != online && onChange != nil {
				onChange(now)
			}
			online = now
		}
	}
}
