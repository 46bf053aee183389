// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/spalink/internal/config"
	"github.com/Thermoquad/spalink/internal/mqtt"
)

var (
	bridgeConfigPath string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Publish the spa state to an MQTT broker",
	Long: `Run the decoder as a service connected to an MQTT broker.

The spa state is published below pool/ whenever it changes, commands are
received on pool/command/<name>. The link state is published on wifi/state
and republished on the configured schedule.

Everything is read from the configuration file, the connection flags are
ignored. A minimal configuration:

  spa:
    model: SB-H20
  probe:
    port: /dev/ttyACM0
  mqtt:
    broker: tcp://localhost:1883`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVarP(&bridgeConfigPath, "config", "c", "spalink.yaml", "Configuration file")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(bridgeConfigPath)
	if err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	if cfg.Log.Pretty {
		configureLogger(os.Stderr, level)
	} else {
		zerolog.SetGlobalLevel(level)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	model, opts, err := cfg.Spa.SpaOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source{
		port:        cfg.Probe.Port,
		baud:        cfg.Probe.Baud,
		url:         cfg.Probe.URL,
		username:    cfg.Probe.Username,
		password:    cfg.Probe.Password,
		noSSLVerify: cfg.Probe.NoSSLVerify,
		simulate:    cfg.Probe.Simulate,
	}
	sess, err := startSession(ctx, src, model, sessionOptions{spa: opts})
	if err != nil {
		return err
	}
	defer sess.Close()

	log.Info().
		Str("source", sess.info).
		Str("model", sess.spa.ModelName()).
		Msg("decoder started")

	go sess.spa.WatchLink(ctx, cfg.Spa.LinkCheckPeriod(), func(online bool) {
		c := sess.spa.Counters()
		if online {
			log.Info().Uint32("frames", c.Total).Msg("spa online")
		} else {
			log.Warn().Uint32("frames", c.Total).Uint32("dropped", c.Dropped).Msg("spa offline")
		}
	})

	bridge := mqtt.New(sess.spa, mqtt.Options{
		Broker:        cfg.MQTT.Broker,
		ClientID:      cfg.MQTT.ClientID,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
		TopicPrefix:   cfg.MQTT.TopicPrefix,
		Retain:        cfg.MQTT.Retain,
		PollPeriod:    cfg.MQTT.PollPeriod(),
		ForceSchedule: cfg.MQTT.ForceSchedule,
		CommandRate:   cfg.MQTT.CommandRate,
		CommandBurst:  cfg.MQTT.CommandBurst,
		Version:       rootCmd.Version,
	})

	errc := make(chan error, 1)
	go func() { errc <- bridge.Run(ctx) }()

	select {
	case err := <-errc:
		return err
	case err := <-sess.Done():
		if ctx.Err() != nil {
			return <-errc
		}
		stop()
		<-errc
		return fmt.Errorf("probe connection lost: %w", err)
	}
}
