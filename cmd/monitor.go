// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

// drainPeriod is how often the frame tap is emptied, the tap holds about
// ten cycles
const drainPeriod = 20 * time.Millisecond

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the spa state and detect bus anomalies",
	Long: `Track the decoded spa state and anomalous frames with statistics.

Every frame is validated against the layout of the model and checked for:
  - Unknown frames that fit no frame class
  - Digit frames with unknown segment patterns or several positions
  - Button frames selecting more than one button
  - LED frames with unknown bits set

State changes (link, LEDs, temperatures, error codes) are logged as events.
By default, only anomalies are displayed. Use --show-all to display valid frames too.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just anomalies)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	model, opts, err := spaFlags()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := startSession(ctx, flagSource(), model, sessionOptions{spa: opts, tap: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	if useTUI {
		return runTUIMode(ctx, sess)
	}
	return runTextMode(ctx, sess)
}

// busBatch is everything that happened on the bus since the last drain
type busBatch struct {
	frames   []uint16
	errors   [][]spabus.ValidationError // per frame
	snapshot spaSnapshot
	lost     uint32
}

// watchBus drains the tap of sess every drainPeriod and hands the validated
// frames to emit until ctx is done
func watchBus(ctx context.Context, sess *session, emit func(busBatch)) error {
	cfg := sess.spa.Model()
	ticker := time.NewTicker(drainPeriod)
	defer ticker.Stop()

	var lost uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sess.Done():
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection closed: %w", err)
		case <-ticker.C:
		}

		sess.spa.CheckLink()
		batch := busBatch{frames: sess.tap.Drain(nil), snapshot: takeSnapshot(sess.spa)}
		batch.errors = make([][]spabus.ValidationError, len(batch.frames))
		for i, f := range batch.frames {
			batch.errors[i] = spabus.ValidateFrame(cfg, f)
		}
		if n := sess.tap.Overflows(); n != lost {
			batch.lost = n - lost
			lost = n
		}
		emit(batch)
	}
}

// printValidationErrors prints the anomalies of one frame
func printValidationErrors(cfg spabus.ModelConfig, t time.Time, frame uint16, errors []spabus.ValidationError) {
	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %s\n", t.Format("15:04:05.000"), spabus.FormatFrame(cfg, frame))

	for i, err := range errors {
		switch err.Type {
		case spabus.ANOMALY_SEGMENT_PATTERN:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if seg, ok := err.Details["segments"].(uint16); ok {
				fmt.Printf("    segments=0x%04X\n", seg)
			}

		case spabus.ANOMALY_MULTIPLE_POSITIONS:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case spabus.ANOMALY_MULTIPLE_BUTTONS:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if n, ok := err.Details["buttons"].(int); ok {
				fmt.Printf("    %d buttons, a reply would hit all of them\n", n)
			}

		case spabus.ANOMALY_LED_RESERVED_BITS:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if extra, ok := err.Details["bits"].(uint16); ok {
				fmt.Printf("    LED: %s\n", spabus.FormatLED(cfg, frame&^extra))
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}
	fmt.Println()
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(ctx context.Context, sess *session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(sess.info, sess.spa.Model(), statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		err := watchBus(ctx, sess, func(b busBatch) { p.Send(busDataMsg(b)) })
		if err != nil {
			p.Send(connectionLostMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(ctx context.Context, sess *session) error {
	cfg := sess.spa.Model()

	fmt.Printf("Spalink - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", sess.info)
	fmt.Printf("Model: %s\n", cfg.Name)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Anomalies only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := spabus.NewStatistics()
	prev := undefinedState()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	batches := make(chan busBatch, 16)
	errc := make(chan error, 1)
	go func() { errc <- watchBus(ctx, sess, func(b busBatch) { batches <- b }) }()

	for {
		select {
		case err := <-errc:
			return err

		case b := <-batches:
			now := time.Now()
			for i, f := range b.frames {
				stats.Update(b.errors[i])
				if len(b.errors[i]) > 0 {
					printValidationErrors(cfg, now, f, b.errors[i])
				} else if showAll && f != spabus.FrameCue {
					fmt.Println(spabus.FormatFrameLog(cfg, now, f))
				}
			}
			if b.lost > 0 {
				fmt.Printf("[%s] \033[1;31mLOST:\033[0m %d frames\n", now.Format("15:04:05.000"), b.lost)
			}
			for _, change := range b.snapshot.changes(prev) {
				fmt.Printf("[%s] \033[1;32mSTATE:\033[0m %s\n", now.Format("15:04:05.000"), change)
			}
			prev = b.snapshot

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Print(spabus.FormatState(sess.spa))
			fmt.Println()
		}
	}
}
