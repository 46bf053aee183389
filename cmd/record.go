// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/internal/capture"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	recordOutput   string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the raw probe stream to a capture file",
	Long: `Write the probe stream to a capture file for later analysis with replay.

The samples are stored as received, including line noise, together with their
arrival time. The decoder runs alongside so the capture can be checked while
recording.

Requires a probe connection, --simulate is not supported.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Capture file (default spalink-<time>.cap)")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "Stop after this long (0 records until Ctrl+C)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if simulate {
		return errors.New("record needs a probe, use simulate --output for synthetic captures")
	}
	model, opts, err := spaFlags()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}

	start := time.Now()
	path := recordOutput
	if path == "" {
		path = fmt.Sprintf("spalink-%s.cap", start.Format("20060102-150405"))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture: %w", err)
	}
	defer f.Close()
	buf := bufio.NewWriter(f)

	src := flagSource()
	w, err := capture.NewWriter(buf, model.String(), sourceName(src), start)
	if err != nil {
		return err
	}

	// runs on the pump goroutine, the writer is not shared
	var writeErr error
	onChunk := func(chunk []byte) {
		if writeErr == nil {
			writeErr = w.Write(time.Now(), chunk)
		}
	}

	sess, err := startSession(ctx, src, model, sessionOptions{spa: opts, onChunk: onChunk})
	if err != nil {
		return err
	}

	fmt.Printf("Spalink - Record\n")
	fmt.Printf("Connection: %s\n", sess.info)
	fmt.Printf("Output: %s\n", path)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	var srcErr error
	select {
	case <-ctx.Done():
	case srcErr = <-sess.Done():
	}
	sess.Close()
	// the pump owns the writer until it returns
	sess.Wait()

	if writeErr != nil {
		return writeErr
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}

	sess.spa.CheckLink()
	c := sess.spa.Counters()
	log.Info().
		Str("file", path).
		Int("records", w.Records()).
		Int("samples", w.Samples()).
		Uint32("frames", c.Total).
		Dur("took", time.Since(start).Round(time.Millisecond)).
		Msg("capture written")
	fmt.Print(spabus.FormatState(sess.spa))

	if srcErr != nil && ctx.Err() == nil {
		return fmt.Errorf("connection closed: %w", srcErr)
	}
	return nil
}

func sourceName(src source) string {
	if src.url != "" {
		return src.url
	}
	return src.port
}
