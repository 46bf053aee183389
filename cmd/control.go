// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the spa",
	Long: `Control the spa via an interactive terminal UI.

The decoder presses the panel buttons on behalf of the user and reads back the
result from the display and the LEDs.

Features:
  - Live spa state (temperatures, LEDs, disinfection timer, error code)
  - Switches for power, filter, bubble, heater and jet
  - Setpoint and disinfection duration input
  - Frame statistics and event logging
  - Automatic reconnection on connection loss

Tab switches between the action list and the value input. Arrow keys navigate
the action list, enter runs the selected action.

Supports serial, WebSocket and simulated connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// connectionManager handles the session lifecycle and reconnection
type connectionManager struct {
	ctx   context.Context
	src   source
	model spabus.Model
	opts  []spabus.Option

	mu   sync.RWMutex
	sess *session
	p    *tea.Program
}

func (cm *connectionManager) current() *session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.sess
}

func (cm *connectionManager) setSession(sess *session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.sess = sess
}

func (cm *connectionManager) connect() (*session, error) {
	return startSession(cm.ctx, cm.src, cm.model, sessionOptions{spa: cm.opts, tap: true})
}

func runControl(cmd *cobra.Command, args []string) error {
	model, opts, err := spaFlags()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cm := &connectionManager{ctx: ctx, src: flagSource(), model: model, opts: opts}
	sess, err := cm.connect()
	if err != nil {
		return err
	}
	cm.setSession(sess)

	// the TUI owns the terminal, log lines would tear it
	configureLogger(io.Discard, log.Logger.GetLevel())

	m := initialControlModel(cm, sess.info, sess.spa.Model())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	cm.p = p

	go cm.readerLoop()

	_, err = p.Run()
	cancel()
	cm.current().Close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// readerLoop forwards the bus of the current session to the TUI and replaces
// the session when its source fails
func (cm *connectionManager) readerLoop() {
	for {
		sess := cm.current()
		err := watchBus(cm.ctx, sess, func(b busBatch) {
			cm.p.Send(controlBatchMsg(b))
		})
		if err == nil {
			return // shutdown
		}

		cm.p.Send(connectionLostMsg{err: err})
		sess.Close()
		if !cm.reconnect() {
			return
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *connectionManager) reconnect() bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		sess, err := cm.connect()
		if err == nil {
			cm.setSession(sess)
			cm.p.Send(reconnectedMsg{connInfo: sess.info})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// execute runs an action on the current spa. Commands block for up to a few
// seconds while the panel acknowledges the presses.
func (cm *connectionManager) execute(a action, value int) tea.Cmd {
	return func() tea.Msg {
		sess := cm.current()
		start := time.Now()
		err := a.run(sess.spa, value)
		return commandDoneMsg{action: a, value: value, err: err, took: time.Since(start)}
	}
}
