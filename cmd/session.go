// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/probe"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// sessionOptions tune a session
type sessionOptions struct {
	spa     []spabus.Option
	tap     bool
	onChunk func([]byte) // raw probe bytes, probe sessions only
}

// session is a decoder attached to a running bus source
type session struct {
	spa   *spabus.Spa
	info  string
	tap   *spabus.FrameTap
	conn  Connection      // nil when simulated
	panel *panelsim.Panel // nil unless simulated
	reply  *probe.ReplyWriter
	dec    *probe.Decoder
	errc    chan error
	stopped chan struct{}
	cancel  context.CancelFunc
}

// startSession opens src and feeds it into a new decoder until ctx is done.
// The first error of the source is delivered on Done.
func startSession(ctx context.Context, src source, model spabus.Model, so sessionOptions) (*session, error) {
	cfg, err := spabus.ConfigFor(model)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{errc: make(chan error, 2), stopped: make(chan struct{}), cancel: cancel}
	opts := append([]spabus.Option{}, so.spa...)
	if so.tap {
		s.tap = spabus.NewFrameTap()
		opts = append(opts, spabus.WithFrameTap(s.tap))
	}

	if src.simulate {
		s.panel = panelsim.New(cfg, panelsim.Options{})
		s.info = fmt.Sprintf("Simulator: %s", cfg.Name)
		if s.spa, err = spabus.New(model, append(opts, spabus.WithReplyLine(s.panel))...); err != nil {
			cancel()
			return nil, err
		}
		period := s.spa.Timing().CyclePeriod
		go func() {
			defer close(s.stopped)
			s.errc <- s.panel.Run(ctx, period, s.spa)
		}()
		log.Debug().Str("model", cfg.Name).Dur("period", period).Msg("panel simulator started")
		return s, nil
	}

	conn, info, err := OpenConnection(ctx, src)
	if err != nil {
		cancel()
		return nil, err
	}
	s.conn, s.info = conn, info
	s.reply = probe.NewReplyWriter(conn)
	if s.spa, err = spabus.New(model, append(opts, spabus.WithReplyLine(s.reply))...); err != nil {
		cancel()
		conn.Close()
		return nil, err
	}
	s.dec = probe.NewDecoder()

	go func() {
		if err := s.reply.Run(ctx); err != nil && ctx.Err() == nil {
			s.errc <- fmt.Errorf("reply request failed: %w", err)
		}
	}()
	go func() {
		defer close(s.stopped)
		s.errc <- s.dec.Pump(ctx, conn, s.spa, so.onChunk)
	}()
	log.Debug().Str("source", info).Msg("probe session started")
	return s, nil
}

// Done delivers the error that ended the source
func (s *session) Done() <-chan error {
	return s.errc
}

// Wait blocks until the source no longer feeds the decoder
func (s *session) Wait() {
	<-s.stopped
}

// Close stops the source and releases the connection, it also unblocks a
// pending read
func (s *session) Close() error {
	s.cancel()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
