// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqtt publishes the spa state to an MQTT broker and executes the
// commands received from it.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	commandQueue   = 8
)

// Options configures a bridge
type Options struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	TopicPrefix   string
	Retain        bool
	PollPeriod    time.Duration
	ForceSchedule string // cron expression, republishes the link state
	CommandRate   float64
	CommandBurst  int
	Version       string
}

// publisher is the part of the paho client the state loop needs
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Bridge connects a spa to a broker
type Bridge struct {
	opts     Options
	dev      Device
	client   paho.Client
	pub      publisher
	sent     *publications
	limiter  *rate.Limiter
	commands chan Command
	force    atomic.Bool
}

// New creates a bridge, Run connects it
func New(dev Device, opts Options) *Bridge {
	opts.TopicPrefix = strings.Trim(opts.TopicPrefix, "/")

	b := &Bridge{
		opts:     opts,
		dev:      dev,
		sent:     newPublications(),
		limiter:  rate.NewLimiter(rate.Limit(opts.CommandRate), opts.CommandBurst),
		commands: make(chan Command, commandQueue),
	}

	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetKeepAlive(10 * time.Second)
	co.SetPingTimeout(5 * time.Second)
	co.SetAutoReconnect(true)
	co.SetMaxReconnectInterval(time.Minute)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetOrderMatters(false)
	co.SetWill(b.topic(TopicState), StateOffline, 0, true)
	co.SetOnConnectHandler(b.onConnect)
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost, reconnecting")
	})

	b.client = paho.NewClient(co)
	b.pub = b.client
	return b
}

// Run publishes the state until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) error {
	log.Info().Str("broker", b.opts.Broker).Str("client_id", b.opts.ClientID).Msg("connecting to mqtt broker")
	token := b.client.Connect()
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return fmt.Errorf("failed to connect to %s: %w", b.opts.Broker, token.Error())
	}

	sched := cron.New()
	if _, err := sched.AddFunc(b.opts.ForceSchedule, func() { b.force.Store(true) }); err != nil {
		return fmt.Errorf("invalid force schedule %q: %w", b.opts.ForceSchedule, err)
	}
	sched.Start()
	defer sched.Stop()

	go b.runCommands(ctx)

	ticker := time.NewTicker(b.opts.PollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		case <-ticker.C:
			b.publishState(b.force.Swap(false))
		}
	}
}

func (b *Bridge) topic(name string) string {
	if b.opts.TopicPrefix == "" {
		return name
	}
	return b.opts.TopicPrefix + "/" + name
}

func (b *Bridge) onConnect(client paho.Client) {
	log.Info().Msg("connected to mqtt broker")

	// a new session gets the complete state
	b.sent.clear()

	cfg := b.dev.Model()
	b.publishRetained(TopicModel, b.dev.ModelName())
	if b.opts.Version != "" {
		b.publishRetained(TopicVersion, b.opts.Version)
	}

	for _, name := range CommandNames(cfg) {
		name := name // per-iteration copy for the handler closure (go 1.21 loop semantics)
		topic := b.topic(CommandPrefix + name)
		handler := func(_ paho.Client, msg paho.Message) {
			b.onCommand(name, string(msg.Payload()))
		}
		if token := client.Subscribe(topic, 1, handler); token.WaitTimeout(publishTimeout) && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
			continue
		}
		log.Debug().Str("topic", topic).Msg("subscribed")
	}
}

// onCommand queues a command, it runs on the paho callback goroutine and must
// not block
func (b *Bridge) onCommand(name, payload string) {
	cmd, err := ParseCommand(name, payload)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring command")
		return
	}

	b.sent.forget(cmd.StateTopic())
	b.sent.forget(TopicState)

	select {
	case b.commands <- cmd:
		log.Debug().Stringer("command", cmd).Msg("command queued")
	default:
		log.Warn().Stringer("command", cmd).Msg("command queue full, dropping command")
	}
}

func (b *Bridge) runCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.commands:
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}
			start := time.Now()
			if err := Execute(b.dev, cmd); err != nil {
				log.Error().Err(err).Stringer("command", cmd).Msg("command failed")
				continue
			}
			log.Info().Stringer("command", cmd).Dur("took", time.Since(start)).Msg("command executed")
		}
	}
}

// publishState publishes the changed topics, force republishes the link state
func (b *Bridge) publishState(force bool) {
	if !b.pub.IsConnected() {
		return
	}
	for _, m := range StateMessages(b.dev) {
		b.publish(m, force && m.Topic == TopicState)
	}
}

func (b *Bridge) publish(m Message, force bool) {
	changed := b.sent.changed(m.Topic, m.Payload)
	if !changed && !force {
		return
	}

	topic := b.topic(m.Topic)
	token := b.pub.Publish(topic, 0, b.opts.Retain, m.Payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
		return
	}
	if changed {
		b.sent.store(m.Topic, m.Payload)
	}
}

func (b *Bridge) publishRetained(name, payload string) {
	topic := b.topic(name)
	token := b.pub.Publish(topic, 0, true, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		log.Warn().Err(token.Error()).Str("topic", topic).Msg("publish failed")
	}
}

func (b *Bridge) shutdown() {
	if !b.client.IsConnected() {
		return
	}
	log.Info().Msg("disconnecting from mqtt broker")
	b.publishRetained(TopicState, StateOffline)
	b.client.Disconnect(250)
}
