// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	linkTestTimeout int
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test the connection by waiting for a confirmed spa state",
	Long: `Wait until the decoder reports the spa online or the timeout expires.

The link is online once an LED frame was confirmed, which takes a few frame
cycles of clean bus traffic. Line noise and incomplete frames are ignored.

Exit codes:
  0 - Spa online before timeout
  1 - Timeout reached without a confirmed state
  2 - Connection error

Useful for testing the probe wiring or the WebSocket bridge.`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestTimeout, "timeout", 10, "Timeout in seconds to wait for the spa")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	model, opts, err := spaFlags()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, err := startSession(ctx, flagSource(), model, sessionOptions{spa: opts})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer sess.Close()

	fmt.Printf("Spalink - Link Test\n")
	fmt.Printf("Connection: %s\n", sess.info)
	fmt.Printf("Timeout: %d seconds\n", linkTestTimeout)
	fmt.Printf("Waiting for %s...\n\n", sess.spa.ModelName())

	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	timeout := time.After(time.Duration(linkTestTimeout) * time.Second)

	for {
		select {
		case <-poll.C:
			if !sess.spa.CheckLink() {
				continue
			}
			c := sess.spa.Counters()
			fmt.Printf("SUCCESS: Spa online\n")
			fmt.Printf("  Frames: %d (%d dropped)\n", c.Total, c.Dropped)
			fmt.Printf("  LED:    %s\n", ledState(sess.spa))
			os.Exit(0)

		case err := <-sess.Done():
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)

		case <-timeout:
			c := sess.spa.Counters()
			fmt.Fprintf(os.Stderr, "TIMEOUT: No confirmed state within %d seconds (%d frames, %d dropped)\n",
				linkTestTimeout, c.Total, c.Dropped)
			os.Exit(1)
		}
	}
}

func ledState(s *spabus.Spa) string {
	led, ok := s.RawLED()
	if !ok {
		return "undefined"
	}
	return spabus.FormatLED(s.Model(), led)
}
