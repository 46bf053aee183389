// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the bridge configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

type Config struct {
	Spa   SpaConfig   `yaml:"spa"`
	Probe ProbeConfig `yaml:"probe"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Log   LogConfig   `yaml:"log"`
}

// ---- SPA ----

type SpaConfig struct {
	Model       string       `yaml:"model"`
	Name        string       `yaml:"name"`     // overrides the model name
	Language    string       `yaml:"language"` // code, en or de
	LinkCheckMs int          `yaml:"link_check_ms"`
	Timing      TimingConfig `yaml:"timing"`
}

// TimingConfig overrides single timing constants, unset fields keep the
// model defaults
type TimingConfig struct {
	ConfirmFrames      *uint32 `yaml:"confirm_frames"`
	ConfirmNotBlinking *uint32 `yaml:"confirm_not_blinking"`
	BlinkTempFrames    *uint32 `yaml:"blink_temp_frames"`
	BlinkStoppedFrames *uint32 `yaml:"blink_stopped_frames"`
	PressCycles        *uint32 `yaml:"press_cycles"`
	TapCycles          *uint32 `yaml:"tap_cycles"`
	AckTimeoutMs       *int    `yaml:"ack_timeout_ms"`
	ReceiveTimeoutMs   *int    `yaml:"receive_timeout_ms"`
}

// ---- PROBE ----

type ProbeConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
	Simulate    bool   `yaml:"simulate"` // run against the built-in panel simulator
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker        string  `yaml:"broker"`
	ClientID      string  `yaml:"client_id"`
	Username      string  `yaml:"username"`
	Password      string  `yaml:"password"`
	TopicPrefix   string  `yaml:"topic_prefix"`
	Retain        bool    `yaml:"retain"`
	PollMs        int     `yaml:"poll_ms"`
	ForceSchedule string  `yaml:"force_schedule"` // cron expression of the forced link state republish
	CommandRate   float64 `yaml:"command_rate"`   // commands per second
	CommandBurst  int     `yaml:"command_burst"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads, validates and normalizes a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, validates and normalizes a configuration
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	Normalize(&cfg)
	return &cfg, nil
}

// ApplyTiming returns t with the configured overrides
func (c TimingConfig) ApplyTiming(t spabus.Timing) spabus.Timing {
	setU32 := func(dst *uint32, v *uint32) {
		if v != nil {
			*dst = *v
		}
	}
	setU32(&t.ConfirmFrames, c.ConfirmFrames)
	setU32(&t.ConfirmNotBlinking, c.ConfirmNotBlinking)
	setU32(&t.BlinkTempFrames, c.BlinkTempFrames)
	setU32(&t.BlinkStoppedFrames, c.BlinkStoppedFrames)
	setU32(&t.PressCycles, c.PressCycles)
	setU32(&t.TapCycles, c.TapCycles)
	if c.AckTimeoutMs != nil {
		t.AckTimeout = time.Duration(*c.AckTimeoutMs) * time.Millisecond
	}
	if c.ReceiveTimeoutMs != nil {
		t.ReceiveTimeout = time.Duration(*c.ReceiveTimeoutMs) * time.Millisecond
	}
	return t
}

// SpaOptions builds the decoder options of the configured spa
func (c SpaConfig) SpaOptions() (spabus.Model, []spabus.Option, error) {
	model, err := spabus.ParseModel(c.Model)
	if err != nil {
		return 0, nil, err
	}
	lang, err := spabus.ParseLanguage(c.Language)
	if err != nil {
		return 0, nil, err
	}
	mc, err := spabus.ConfigFor(model)
	if err != nil {
		return 0, nil, err
	}

	opts := []spabus.Option{
		spabus.WithLanguage(lang),
		spabus.WithTiming(c.Timing.ApplyTiming(spabus.DefaultTiming(mc))),
	}
	if c.Name != "" {
		opts = append(opts, spabus.WithName(c.Name))
	}
	return model, opts, nil
}

// LinkCheckPeriod is the interval of the link check
func (c SpaConfig) LinkCheckPeriod() time.Duration {
	return time.Duration(c.LinkCheckMs) * time.Millisecond
}

// PollPeriod is the interval of the state publisher
func (c MQTTConfig) PollPeriod() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}
