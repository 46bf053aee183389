// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/spalink/internal/adapter"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// State topics
const (
	TopicBubble       = "pool/bubble"
	TopicDisinfection = "pool/disinfection"
	TopicError        = "pool/error"
	TopicFilter       = "pool/filter"
	TopicHeater       = "pool/heater"
	TopicJet          = "pool/jet"
	TopicModel        = "pool/model"
	TopicPower        = "pool/power"
	TopicWaterAct     = "pool/water/tempAct"
	TopicWaterSet     = "pool/water/tempSet"
	TopicState        = "wifi/state"
	TopicVersion      = "wifi/version"

	// CommandPrefix precedes the name of a command topic, the state topic of
	// a command is the command topic without "command/"
	CommandPrefix = "pool/command/"
)

// wifi/state payloads
const (
	StateOnline  = "online"
	StateError   = "error"
	StateOffline = "offline"
)

// Device is the spa as seen by the bridge
type Device interface {
	adapter.Device
	ModelName() string
	ErrorCode() string
	ErrorMessage(code string) string
}

// Message is one topic update
type Message struct {
	Topic   string
	Payload string
}

// CommandNames lists the command topics of a model, relative to CommandPrefix
func CommandNames(cfg spabus.ModelConfig) []string {
	names := []string{"bubble", "filter", "heater", "power", "water/tempSet"}
	if cfg.Has(spabus.FeatureJet) {
		names = append(names, "jet")
	}
	if cfg.Has(spabus.FeatureDisinfection) {
		names = append(names, "disinfection")
	}
	return names
}

// StateMessages returns the current state of dev. Undefined values are left
// out, an offline spa only reports its link state.
func StateMessages(dev Device) []Message {
	if !dev.IsOnline() {
		return []Message{{TopicState, StateOffline}}
	}

	var msgs []Message
	onOff := func(topic string, f spabus.Flag) {
		if f.Defined() {
			msgs = append(msgs, Message{topic, f.String()})
		}
	}

	onOff(TopicBubble, dev.BubbleOn())
	onOff(TopicFilter, dev.FilterOn())
	onOff(TopicPower, dev.PowerOn())

	switch dev.HeaterOn() {
	case spabus.FlagOn:
		heater := "on"
		if dev.HeaterStandby().IsOn() {
			heater = "standby"
		}
		msgs = append(msgs, Message{TopicHeater, heater})
	case spabus.FlagOff:
		msgs = append(msgs, Message{TopicHeater, "off"})
	}

	cfg := dev.Model()
	if cfg.Has(spabus.FeatureJet) {
		onOff(TopicJet, dev.JetOn())
	}
	if cfg.Has(spabus.FeatureDisinfection) {
		if h, ok := dev.DisinfectionTime(); ok {
			msgs = append(msgs, Message{TopicDisinfection, strconv.Itoa(h)})
		}
	}

	if v, ok := dev.ActWaterTempCelsius(); ok {
		msgs = append(msgs, Message{TopicWaterAct, strconv.Itoa(v)})
	}
	if v, ok := dev.DesiredWaterTempCelsius(); ok {
		msgs = append(msgs, Message{TopicWaterSet, strconv.Itoa(v)})
	}

	code := dev.ErrorCode()
	state := StateOnline
	if code != "" {
		state = StateError
	}
	msgs = append(msgs,
		Message{TopicState, state},
		Message{TopicError, dev.ErrorMessage(code)},
	)
	return msgs
}

// Command is a decoded command message
type Command struct {
	Name  string // relative to CommandPrefix
	On    bool
	Value int
}

// StateTopic is the state topic answering the command
func (c Command) StateTopic() string {
	return "pool/" + c.Name
}

func (c Command) String() string {
	switch c.Name {
	case "water/tempSet", "disinfection":
		return fmt.Sprintf("%s=%d", c.Name, c.Value)
	}
	if c.On {
		return c.Name + "=on"
	}
	return c.Name + "=off"
}

// ParseCommand decodes the payload of a command topic
func ParseCommand(name, payload string) (Command, error) {
	cmd := Command{Name: name}
	switch name {
	case "water/tempSet", "disinfection":
		v, err := strconv.Atoi(strings.TrimSpace(payload))
		if err != nil {
			return cmd, fmt.Errorf("%s: invalid number %q", name, payload)
		}
		cmd.Value = v
	case "bubble", "filter", "heater", "jet", "power":
		on, err := ParseSwitch(payload)
		if err != nil {
			return cmd, fmt.Errorf("%s: %w", name, err)
		}
		cmd.On = on
	default:
		return cmd, fmt.Errorf("unknown command %q", name)
	}
	return cmd, nil
}

// ParseSwitch decodes an on/off payload
func ParseSwitch(payload string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch payload %q", payload)
}

// Execute runs a command against dev, blocking until it is confirmed
func Execute(dev Device, cmd Command) error {
	switch cmd.Name {
	case "water/tempSet":
		return adapter.NewThermostat(dev).SetTarget(cmd.Value)
	case "disinfection":
		timer := adapter.NewTimer(dev)
		if timer == nil {
			return fmt.Errorf("%w: disinfection", spabus.ErrUnsupported)
		}
		return timer.Set(cmd.Value)
	}

	sw, ok := adapter.SwitchByName(dev, cmd.Name)
	if !ok {
		return fmt.Errorf("%w: %s", spabus.ErrUnsupported, cmd.Name)
	}
	return sw.Set(cmd.On)
}
