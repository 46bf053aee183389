// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/pkg/probe"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Spa flags
	modelName string
	langName  string
	simulate  bool

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "spalink",
	Short: "Intex PureSpa display bus decoder",
	Long: `Spalink - A CLI tool for decoding and controlling Intex PureSpa whirlpools.

The tool listens to the bus between the mainboard and the control panel of an
SB-H20 or SJB-HS spa through a sampling probe, decodes the display and LED
state and emulates button presses on it.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 921600]
  WebSocket: --url ws://host/path [--username user]
  Simulator: --simulate

For WebSocket authentication, the password is read from the SPALINK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device of the probe")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", probe.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Spa flags
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", spabus.ModelSBH20.String(), "Spa model (SB-H20 or SJB-HS)")
	rootCmd.PersistentFlags().StringVar(&langName, "lang", "en", "Language of error messages (en, de or code)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Decode a simulated panel instead of a probe")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	configureLogger(os.Stderr, level)
	return nil
}

func configureLogger(w io.Writer, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// spaFlags resolves the model and options selected on the command line
func spaFlags() (spabus.Model, []spabus.Option, error) {
	model, err := spabus.ParseModel(modelName)
	if err != nil {
		return 0, nil, err
	}
	lang, err := spabus.ParseLanguage(langName)
	if err != nil {
		return 0, nil, err
	}
	return model, []spabus.Option{spabus.WithLanguage(lang)}, nil
}
