// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	"github.com/Thermoquad/spalink/pkg/panelsim"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

// ============================================================
// Test Doubles
// ============================================================

type fakeDevice struct {
	model  spabus.Model
	online bool

	power, filter, bubble spabus.Flag
	heater, standby       spabus.Flag
	jet, disinfect        spabus.Flag

	act, set, hours int
	code            string
	calls           []string
}

func newFakeDevice(model spabus.Model) *fakeDevice {
	return &fakeDevice{model: model, online: true, act: -1, set: -1, hours: -1}
}

func (f *fakeDevice) Model() spabus.ModelConfig {
	cfg, _ := spabus.ConfigFor(f.model)
	return cfg
}

func (f *fakeDevice) IsOnline() bool               { return f.online }
func (f *fakeDevice) ModelName() string            { return f.Model().Name }
func (f *fakeDevice) ErrorCode() string            { return f.code }
func (f *fakeDevice) ErrorMessage(c string) string { return spabus.ErrorMessage(c, spabus.LanguageEN) }

func (f *fakeDevice) PowerOn() spabus.Flag        { return f.power }
func (f *fakeDevice) FilterOn() spabus.Flag       { return f.filter }
func (f *fakeDevice) BubbleOn() spabus.Flag       { return f.bubble }
func (f *fakeDevice) HeaterOn() spabus.Flag       { return f.heater }
func (f *fakeDevice) HeaterStandby() spabus.Flag  { return f.standby }
func (f *fakeDevice) JetOn() spabus.Flag          { return f.jet }
func (f *fakeDevice) DisinfectionOn() spabus.Flag { return f.disinfect }

func (f *fakeDevice) ActWaterTempCelsius() (int, bool)     { return f.act, f.act >= 0 }
func (f *fakeDevice) DesiredWaterTempCelsius() (int, bool) { return f.set, f.set >= 0 }
func (f *fakeDevice) DisinfectionTime() (int, bool)        { return f.hours, f.hours >= 0 }

func (f *fakeDevice) record(call string) error {
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeDevice) SetPowerOn(on bool) error                  { return f.record("power") }
func (f *fakeDevice) SetFilterOn(on bool) error                 { return f.record("filter") }
func (f *fakeDevice) SetBubbleOn(on bool) error                 { return f.record("bubble") }
func (f *fakeDevice) SetHeaterOn(on bool) error                 { return f.record("heater") }
func (f *fakeDevice) SetJetOn(on bool) error                    { return f.record("jet") }
func (f *fakeDevice) SetDesiredWaterTempCelsius(temp int) error { return f.record("temp") }
func (f *fakeDevice) SetDisinfectionTime(hours int) error       { return f.record("disinfection") }

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePublisher struct {
	connected bool
	fail      bool
	sent      []Message
	retained  []bool
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if p.fail {
		return doneToken{err: errors.New("not connected")}
	}
	p.sent = append(p.sent, Message{topic, payload.(string)})
	p.retained = append(p.retained, retained)
	return doneToken{}
}

func (p *fakePublisher) reset() {
	p.sent = nil
	p.retained = nil
}

func (p *fakePublisher) topics() map[string]string {
	m := make(map[string]string)
	for _, msg := range p.sent {
		m[msg.Topic] = msg.Payload
	}
	return m
}

func newTestBridge(dev Device, prefix string) (*Bridge, *fakePublisher) {
	pub := &fakePublisher{connected: true}
	b := &Bridge{
		opts:     Options{TopicPrefix: prefix, Retain: true},
		dev:      dev,
		pub:      pub,
		sent:     newPublications(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
		commands: make(chan Command, commandQueue),
	}
	return b, pub
}

// ============================================================
// State Message Tests
// ============================================================

func TestStateMessages_Offline(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.online = false
	dev.power = spabus.FlagOn

	msgs := StateMessages(dev)
	if len(msgs) != 1 || msgs[0] != (Message{TopicState, StateOffline}) {
		t.Errorf("StateMessages() = %v, want only the offline state", msgs)
	}
}

func TestStateMessages_Online(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.power, dev.filter = spabus.FlagOn, spabus.FlagOff
	dev.heater, dev.standby = spabus.FlagOn, spabus.FlagOn
	dev.act = 33
	dev.code = "E90"

	got := map[string]string{}
	for _, m := range StateMessages(dev) {
		got[m.Topic] = m.Payload
	}

	want := map[string]string{
		TopicPower:    "on",
		TopicFilter:   "off",
		TopicHeater:   "standby",
		TopicWaterAct: "33",
		TopicState:    StateError,
		TopicError:    "no water flow",
	}
	if len(got) != len(want) {
		t.Errorf("StateMessages() = %v", got)
	}
	for topic, payload := range want {
		if got[topic] != payload {
			t.Errorf("%s = %q, want %q", topic, got[topic], payload)
		}
	}
	for _, topic := range []string{TopicBubble, TopicWaterSet, TopicJet, TopicDisinfection} {
		if _, ok := got[topic]; ok {
			t.Errorf("undefined %s published", topic)
		}
	}
}

func TestStateMessages_Features(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSJBHS)
	dev.jet, dev.disinfect = spabus.FlagOff, spabus.FlagOn
	dev.hours = 5
	dev.heater = spabus.FlagOff

	got := map[string]string{}
	for _, m := range StateMessages(dev) {
		got[m.Topic] = m.Payload
	}
	if got[TopicJet] != "off" || got[TopicDisinfection] != "5" || got[TopicHeater] != "off" {
		t.Errorf("jet=%q disinfection=%q heater=%q", got[TopicJet], got[TopicDisinfection], got[TopicHeater])
	}
	if got[TopicState] != StateOnline || got[TopicError] != "" {
		t.Errorf("state=%q error=%q", got[TopicState], got[TopicError])
	}
}

func TestCommandNames(t *testing.T) {
	sbh20, _ := spabus.ConfigFor(spabus.ModelSBH20)
	sjbhs, _ := spabus.ConfigFor(spabus.ModelSJBHS)
	if n := len(CommandNames(sbh20)); n != 5 {
		t.Errorf("SB-H20 has %d commands, want 5", n)
	}
	if n := len(CommandNames(sjbhs)); n != 7 {
		t.Errorf("SJB-HS has %d commands, want 7", n)
	}
}

// ============================================================
// Command Parsing Tests
// ============================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr bool
	}{
		{"power", "on", Command{Name: "power", On: true}, false},
		{"filter", "OFF", Command{Name: "filter"}, false},
		{"bubble", "true", Command{Name: "bubble", On: true}, false},
		{"heater", "0", Command{Name: "heater"}, false},
		{"jet", " 1 ", Command{Name: "jet", On: true}, false},
		{"water/tempSet", "37", Command{Name: "water/tempSet", Value: 37}, false},
		{"disinfection", "3", Command{Name: "disinfection", Value: 3}, false},
		{"power", "maybe", Command{}, true},
		{"water/tempSet", "warm", Command{}, true},
		{"sauna", "on", Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.payload, func(t *testing.T) {
			got, err := ParseCommand(tt.name, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCommand_StateTopic(t *testing.T) {
	if got := (Command{Name: "water/tempSet"}).StateTopic(); got != TopicWaterSet {
		t.Errorf("StateTopic() = %q, want %q", got, TopicWaterSet)
	}
	if got := (Command{Name: "heater", On: true}).String(); got != "heater=on" {
		t.Errorf("String() = %q", got)
	}
}

// ============================================================
// Bridge Tests
// ============================================================

func TestPublishState_OnChange(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.power = spabus.FlagOn
	b, pub := newTestBridge(dev, "home/spa")

	b.publishState(false)
	if pub.topics()["home/spa/pool/power"] != "on" {
		t.Fatalf("sent %v", pub.sent)
	}
	for _, r := range pub.retained {
		if !r {
			t.Error("retain flag not applied")
		}
	}

	pub.reset()
	b.publishState(false)
	if len(pub.sent) != 0 {
		t.Errorf("unchanged state republished: %v", pub.sent)
	}

	dev.power = spabus.FlagOff
	b.publishState(false)
	if len(pub.sent) != 1 || pub.sent[0] != (Message{"home/spa/pool/power", "off"}) {
		t.Errorf("sent %v, want only the power change", pub.sent)
	}
}

func TestPublishState_Forced(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.power = spabus.FlagOn
	b, pub := newTestBridge(dev, "")
	b.publishState(false)

	pub.reset()
	b.publishState(true)
	if len(pub.sent) != 1 || pub.sent[0] != (Message{TopicState, StateOnline}) {
		t.Errorf("forced update sent %v, want only the link state", pub.sent)
	}
}

func TestPublishState_RetriesFailed(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	b, pub := newTestBridge(dev, "")

	pub.fail = true
	b.publishState(false)

	pub.fail = false
	b.publishState(false)
	if pub.topics()[TopicState] != StateOnline {
		t.Errorf("failed publication not retried: %v", pub.sent)
	}

	pub.connected = false
	pub.reset()
	dev.online = false
	b.publishState(false)
	if len(pub.sent) != 0 {
		t.Errorf("published while disconnected: %v", pub.sent)
	}
}

func TestOnCommand(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSBH20)
	dev.filter = spabus.FlagOn
	b, pub := newTestBridge(dev, "")
	b.publishState(false)

	b.onCommand("filter", "bogus")
	if len(b.commands) != 0 {
		t.Fatal("invalid command queued")
	}

	b.onCommand("filter", "off")
	if len(b.commands) != 1 {
		t.Fatalf("queued %d commands, want 1", len(b.commands))
	}

	// the answer to a command is always published
	pub.reset()
	b.publishState(false)
	got := pub.topics()
	if got[TopicFilter] != "on" || got[TopicState] != StateOnline || len(got) != 2 {
		t.Errorf("after command sent %v", pub.sent)
	}

	for i := 0; i < commandQueue+3; i++ {
		b.onCommand("power", "on")
	}
	if len(b.commands) != commandQueue {
		t.Errorf("queue holds %d commands, want %d", len(b.commands), commandQueue)
	}
}

// ============================================================
// Execute Tests
// ============================================================

func TestExecute_Fake(t *testing.T) {
	dev := newFakeDevice(spabus.ModelSJBHS)
	for _, cmd := range []Command{
		{Name: "water/tempSet", Value: 38},
		{Name: "disinfection", Value: 5},
		{Name: "jet", On: true},
		{Name: "heater", On: true},
	} {
		if err := Execute(dev, cmd); err != nil {
			t.Errorf("Execute(%v) error: %v", cmd, err)
		}
	}
	want := []string{"temp", "disinfection", "jet", "heater"}
	for i, call := range want {
		if i >= len(dev.calls) || dev.calls[i] != call {
			t.Fatalf("calls = %v, want %v", dev.calls, want)
		}
	}

	sbh20 := newFakeDevice(spabus.ModelSBH20)
	for _, cmd := range []Command{{Name: "jet", On: true}, {Name: "disinfection", Value: 3}} {
		if err := Execute(sbh20, cmd); !errors.Is(err, spabus.ErrUnsupported) {
			t.Errorf("Execute(%v) error = %v, want ErrUnsupported", cmd, err)
		}
	}
}

func TestExecute_SimulatedPanel(t *testing.T) {
	cfg, _ := spabus.ConfigFor(spabus.ModelSBH20)
	panel := panelsim.New(cfg, panelsim.Options{})
	clock := panelsim.NewClock(panel, spabus.DefaultTiming(cfg).CyclePeriod)
	spa, err := spabus.New(spabus.ModelSBH20, spabus.WithClock(clock), spabus.WithReplyLine(panel))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	clock.Attach(spa)
	clock.Sleep(2 * time.Second)
	spa.CheckLink()

	if err := Execute(spa, Command{Name: "filter", On: true}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	clock.Sleep(time.Second)
	if !panel.State().Filter {
		t.Error("panel filter still off")
	}

	got := map[string]string{}
	for _, m := range StateMessages(spa) {
		got[m.Topic] = m.Payload
	}
	if got[TopicFilter] != "on" || got[TopicPower] != "on" {
		t.Errorf("state after command = %v", got)
	}
}
