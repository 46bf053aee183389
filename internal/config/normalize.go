// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"strings"

	"github.com/Thermoquad/spalink/pkg/probe"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Defaults
const (
	DefaultLinkCheckMs   = 100
	DefaultPollMs        = 500
	DefaultForceSchedule = "@every 10s"
	DefaultCommandRate   = 1.0
	DefaultCommandBurst  = 2
	DefaultLogLevel      = "info"
)

// Normalize applies defaults after validation.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Spa.Language == "" {
		cfg.Spa.Language = "en"
	}
	if cfg.Spa.LinkCheckMs == 0 {
		cfg.Spa.LinkCheckMs = DefaultLinkCheckMs
	}

	if cfg.Probe.Port != "" && cfg.Probe.Baud == 0 {
		cfg.Probe.Baud = probe.DefaultBaudRate
	}

	if cfg.MQTT.ClientID == "" {
		model, _ := spabus.ParseModel(cfg.Spa.Model)
		cfg.MQTT.ClientID = "spalink-" + strings.ToLower(model.String())
	}
	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.PollMs == 0 {
		cfg.MQTT.PollMs = DefaultPollMs
	}
	if cfg.MQTT.ForceSchedule == "" {
		cfg.MQTT.ForceSchedule = DefaultForceSchedule
	}
	if cfg.MQTT.CommandRate == 0 {
		cfg.MQTT.CommandRate = DefaultCommandRate
	}
	if cfg.MQTT.CommandBurst == 0 {
		cfg.MQTT.CommandBurst = DefaultCommandBurst
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
