// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	rawLogCues  bool
	rawLogState bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw bus frames in human-readable format",
	Long: `Continuously decode and display the frames of the display bus.

Every complete frame is printed with a timestamp, its class and the decoded
digit, LED or button content. Cue frames are hidden unless --cues is given,
they make up half of the traffic.

Supports serial, WebSocket and simulated connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogCues, "cues", false, "Also print cue frames")
	rawLogCmd.Flags().BoolVar(&rawLogState, "state", false, "Print the decoded state when it changes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Spalink - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", sess.info)
	fmt.Printf("Model: %s\n", sess.spa.ModelName())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	cfg := sess.spa.Model()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	var frames []uint16
	var overflows uint32
	var lastState string
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

		now := time.Now()
		frames = sess.tap.Drain(frames[:0])
		for _, f := range frames {
			if f == spabus.FrameCue && !rawLogCues {
				continue
			}
			fmt.Println(spabus.FormatFrameLog(cfg, now, f))
		}
		if n := sess.tap.Overflows(); n != overflows {
			fmt.Printf("[WARN] %d frames lost, output too slow\n", n-overflows)
			overflows = n
		}

		if rawLogState {
			sess.spa.CheckLink()
			if st := spabus.FormatState(sess.spa); st != lastState {
				fmt.Print(st)
				lastState = st
			}
		}
	}
}
