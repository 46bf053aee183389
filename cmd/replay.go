// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/internal/capture"
	"github.com/Thermoquad/spalink/pkg/probe"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	replayRealtime bool
	replayFrames   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Decode a recorded capture file",
	Long: `Feed a capture file written by record through the decoder.

Prints the anomalous frames, the frame statistics and the decoded state at the
end. The model is taken from the capture unless --model is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Replay at the recorded pace")
	replayCmd.Flags().BoolVar(&replayFrames, "frames", false, "Print every frame, not just anomalies")
}

// drainSink feeds a spa and empties its frame tap before it overflows
type drainSink struct {
	spa   *spabus.Spa
	tap   *spabus.FrameTap
	buf   []uint16
	flush func([]uint16)
}

func (d *drainSink) OnClockRising(data, latch bool) {
	d.spa.OnClockRising(data, latch)
	if latch && d.tap.Len() >= 256 {
		d.drain()
	}
}

func (d *drainSink) drain() {
	d.buf = d.tap.Drain(d.buf[:0])
	if len(d.buf) > 0 {
		d.flush(d.buf)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(bufio.NewReader(f))
	if err != nil {
		return err
	}
	hdr := r.Header()

	name := hdr.Model
	if cmd.Flags().Changed("model") {
		name = modelName
	}
	model, err := spabus.ParseModel(name)
	if err != nil {
		return err
	}
	lang, err := spabus.ParseLanguage(langName)
	if err != nil {
		return err
	}

	tap := spabus.NewFrameTap()
	spa, err := spabus.New(model, spabus.WithLanguage(lang), spabus.WithFrameTap(tap))
	if err != nil {
		return err
	}
	cfg := spa.Model()

	fmt.Printf("Spalink - Replay\n")
	fmt.Printf("Capture: %s (%s, recorded %s)\n", args[0], hdr.Model, hdr.StartTime().Format(time.DateTime))
	if hdr.Source != "" {
		fmt.Printf("Source: %s\n", hdr.Source)
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := spabus.NewStatistics()
	var at time.Duration
	sink := &drainSink{spa: spa, tap: tap, flush: func(frames []uint16) {
		t := hdr.StartTime().Add(at)
		for _, frame := range frames {
			errs := spabus.ValidateFrame(cfg, frame)
			stats.Update(errs)
			if len(errs) > 0 {
				printValidationErrors(cfg, t, frame, errs)
			} else if replayFrames {
				fmt.Println(spabus.FormatFrameLog(cfg, t, frame))
			}
		}
	}}
	sleep := func(d time.Duration) {
		sink.drain()
		at += d
		if replayRealtime {
			time.Sleep(d)
		}
	}

	dec := probe.NewDecoder()
	records, err := r.Play(ctx, dec, sink, sleep)
	sink.drain()
	if err != nil && ctx.Err() == nil {
		return err
	}

	spa.CheckLink()
	fmt.Printf("\n%d records, %d samples, %d invalid bytes, %s of bus traffic\n\n",
		records, dec.Samples(), dec.InvalidBytes(), at.Round(time.Millisecond))
	fmt.Print(stats.String())
	fmt.Println()
	fmt.Print(spabus.FormatState(spa))
	return nil
}
