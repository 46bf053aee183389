// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/internal/capture"
	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/probe"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	simOutput   string
	simDuration time.Duration
	simNoise    float64
	simState    = panelsim.DefaultState()
	simUnit     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a capture of a simulated panel",
	Long: `Run the panel simulator and write its bus traffic as a capture file.

The capture can be decoded with replay, it is useful to reproduce decoder
behaviour without a spa. The panel shows the state given by the flags; line
noise can be mixed into the stream with --noise.

To decode a live simulated panel use --simulate with the other commands.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	f := simulateCmd.Flags()
	f.StringVarP(&simOutput, "output", "o", "simulated.cap", "Capture file")
	f.DurationVarP(&simDuration, "duration", "d", 10*time.Second, "Length of the capture")
	f.Float64Var(&simNoise, "noise", 0, "Probability of a noise byte after each frame cycle (0..1)")

	f.BoolVar(&simState.Power, "power", simState.Power, "Power LED")
	f.BoolVar(&simState.Filter, "filter", simState.Filter, "Filter LED")
	f.BoolVar(&simState.Bubble, "bubble", simState.Bubble, "Bubble LED")
	f.BoolVar(&simState.Heater, "heater", simState.Heater, "Heater on")
	f.BoolVar(&simState.Jet, "jet", simState.Jet, "Jet LED (SJB-HS)")
	f.IntVar(&simState.Disinfection, "disinfection", simState.Disinfection, "Disinfection hours (SJB-HS)")
	f.IntVar(&simState.Actual, "water", simState.Actual, "Water temperature")
	f.IntVar(&simState.Setpoint, "setpoint", simState.Setpoint, "Setpoint")
	f.StringVar(&simUnit, "unit", "C", "Temperature unit (C or F)")
	f.StringVar(&simState.Error, "error", "", "Error code shown instead of the temperature (e.g. E90)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	model, err := spabus.ParseModel(modelName)
	if err != nil {
		return err
	}
	cfg, err := spabus.ConfigFor(model)
	if err != nil {
		return err
	}
	switch simUnit {
	case "C", "F":
		simState.Unit = simUnit[0]
	default:
		return fmt.Errorf("invalid unit %q", simUnit)
	}
	if simNoise < 0 || simNoise > 1 {
		return errors.New("noise must be between 0 and 1")
	}

	panel := panelsim.New(cfg, panelsim.Options{})
	panel.SetState(simState)
	period := spabus.DefaultTiming(cfg).CyclePeriod

	f, err := os.Create(simOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture: %w", err)
	}
	defer f.Close()
	out := bufio.NewWriter(f)

	start := time.Now()
	w, err := newSimulationCapture(out, cfg, start)
	if err != nil {
		return err
	}
	written, err := writeSimulation(w, panel, start, period, int(simDuration/period), simNoise)
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}

	log.Info().
		Str("file", simOutput).
		Str("model", cfg.Name).
		Int("cycles", written).
		Int("records", w.Records()).
		Int("samples", w.Samples()).
		Msg("simulated capture written")
	return nil
}

// newSimulationCapture starts a capture of a simulated panel. The header
// carries the model code so that replay can pick the model.
func newSimulationCapture(w io.Writer, cfg spabus.ModelConfig, start time.Time) (*capture.Writer, error) {
	return capture.NewWriter(w, cfg.Model.String(), "simulator", start)
}

// writeSimulation writes cycles frame cycles of panel, one record per cycle.
// After a cycle a noise byte follows with probability noise.
func writeSimulation(w *capture.Writer, panel *panelsim.Panel, start time.Time, period time.Duration, cycles int, noise float64) (int, error) {
	var chunk bytes.Buffer
	stream := probe.NewStreamWriter(&chunk)

	for i := 0; i < cycles; i++ {
		chunk.Reset()
		panel.RunCycle(stream)
		if err := stream.Flush(); err != nil {
			return i, err
		}
		if noise > 0 && rand.Float64() < noise {
			// no marker nibble, skipped by the decoder
			chunk.WriteByte(byte(rand.Intn(0xA0)))
		}
		if err := w.Write(start.Add(time.Duration(i)*period), chunk.Bytes()); err != nil {
			return i, err
		}
	}
	return cycles, nil
}
