// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is empty")
	}

	// ------------------------------------------------------------
	// SPA
	// ------------------------------------------------------------

	model, err := spabus.ParseModel(cfg.Spa.Model)
	if err != nil {
		return fmt.Errorf("spa.model: %w", err)
	}
	if _, err := spabus.ParseLanguage(cfg.Spa.Language); err != nil {
		return fmt.Errorf("spa.language: %w", err)
	}
	if cfg.Spa.LinkCheckMs < 0 {
		return fmt.Errorf("spa.link_check_ms must not be negative")
	}

	mc, err := spabus.ConfigFor(model)
	if err != nil {
		return fmt.Errorf("spa.model: %w", err)
	}
	if err := cfg.Spa.Timing.ApplyTiming(spabus.DefaultTiming(mc)).Validate(); err != nil {
		return fmt.Errorf("spa.timing: %w", err)
	}

	// ------------------------------------------------------------
	// PROBE (exactly one source)
	// ------------------------------------------------------------

	sources := 0
	if cfg.Probe.Port != "" {
		sources++
	}
	if cfg.Probe.URL != "" {
		sources++
		u, err := url.Parse(cfg.Probe.URL)
		if err != nil {
			return fmt.Errorf("probe.url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("probe.url: scheme must be ws or wss, got %q", u.Scheme)
		}
	}
	if cfg.Probe.Simulate {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("probe: exactly one of port, url or simulate must be set")
	}
	if cfg.Probe.Baud < 0 {
		return fmt.Errorf("probe.baud must not be negative")
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if _, err := url.Parse(cfg.MQTT.Broker); err != nil {
		return fmt.Errorf("mqtt.broker: %w", err)
	}
	if cfg.MQTT.PollMs < 0 {
		return fmt.Errorf("mqtt.poll_ms must not be negative")
	}
	if cfg.MQTT.CommandRate < 0 || cfg.MQTT.CommandBurst < 0 {
		return fmt.Errorf("mqtt.command_rate and mqtt.command_burst must not be negative")
	}
	if cfg.MQTT.ForceSchedule != "" {
		if _, err := cron.ParseStandard(cfg.MQTT.ForceSchedule); err != nil {
			return fmt.Errorf("mqtt.force_schedule: %w", err)
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	return nil
}
