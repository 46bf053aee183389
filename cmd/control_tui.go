// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/spalink/internal/adapter"
	"github.com/Thermoquad/spalink/pkg/spabus"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusActionList = iota
	focusValueInput
)

type actionKind int

const (
	actionSwitch actionKind = iota
	actionSetpoint
	actionTimer
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// action is one entry of the action list
type action struct {
	name string
	kind actionKind
	desc string
}

// Implement list.Item interface
func (a action) Title() string       { return a.name }
func (a action) Description() string { return a.desc }
func (a action) FilterValue() string { return a.name }

func (a action) needsValue() bool {
	return a.kind != actionSwitch
}

// run executes the action on dev, value is ignored by switches
func (a action) run(dev adapter.Device, value int) error {
	switch a.kind {
	case actionSwitch:
		sw, ok := adapter.SwitchByName(dev, a.name)
		if !ok {
			return fmt.Errorf("unknown switch %q", a.name)
		}
		return sw.Set(!sw.State().IsOn())

	case actionSetpoint:
		return adapter.NewThermostat(dev).SetTarget(value)

	case actionTimer:
		timer := adapter.NewTimer(dev)
		if timer == nil {
			return spabus.ErrUnsupported
		}
		return timer.Set(value)
	}
	return fmt.Errorf("unknown action %q", a.name)
}

// controlActions lists the actions a model supports
func controlActions(cfg spabus.ModelConfig) []list.Item {
	items := []list.Item{
		action{name: "power", kind: actionSwitch, desc: "toggle power"},
		action{name: "filter", kind: actionSwitch, desc: "toggle filter pump"},
		action{name: "bubble", kind: actionSwitch, desc: "toggle bubbles"},
		action{name: "heater", kind: actionSwitch, desc: "toggle heater"},
	}
	if cfg.Has(spabus.FeatureJet) {
		items = append(items, action{name: "jet", kind: actionSwitch, desc: "toggle jets"})
	}
	lo, hi := spabus.WaterTempSetMin, spabus.WaterTempSetMax
	items = append(items, action{name: "setpoint", kind: actionSetpoint, desc: fmt.Sprintf("%d to %d °C", lo, hi)})
	if cfg.Has(spabus.FeatureDisinfection) {
		items = append(items, action{name: "disinfection", kind: actionTimer, desc: "0, 3, 5 or 8 hours"})
	}
	return items
}

// controlKeys are the bindings shown in the help line
type controlKeys struct {
	Up    key.Binding
	Down  key.Binding
	Tab   key.Binding
	Enter key.Binding
	Quit  key.Binding
}

func (k controlKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Tab, k.Enter, k.Quit}
}

func (k controlKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultControlKeys = controlKeys{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Tab:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	connMgr  *connectionManager
	connInfo string
	cfg      spabus.ModelConfig

	actions    list.Model
	valueInput textinput.Model
	keys       controlKeys
	help       help.Model

	// Monitoring (shared with the monitor)
	stats         *spabus.Statistics
	state         spaSnapshot
	eventLog      []eventLogEntry
	maxLogEntries int

	focusedField int
	busy         string // action in progress

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlBatchMsg busBatch

type reconnectedMsg struct {
	connInfo string
}

type commandDoneMsg struct {
	action action
	value  int
	err    error
	took   time.Duration
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string, cfg spabus.ModelConfig) controlModel {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.CharLimit = 2
	ti.Width = 6

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	actions := list.New(controlActions(cfg), delegate, 30, 16)
	actions.Title = "Actions"
	actions.SetShowStatusBar(false)
	actions.SetShowHelp(false)
	actions.SetFilteringEnabled(false)

	return controlModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		cfg:           cfg,
		actions:       actions,
		valueInput:    ti,
		keys:          defaultControlKeys,
		help:          help.New(),
		stats:         spabus.NewStatistics(),
		state:         undefinedState(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		focusedField:  focusActionList,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case controlTickMsg:
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case controlBatchMsg:
		for i := range msg.frames {
			m.stats.Update(msg.errors[i])
			for _, err := range msg.errors[i] {
				m.addLogEntry(err.Message, true)
			}
		}
		for _, change := range msg.snapshot.changes(m.state) {
			m.addLogEntry(change, false)
		}
		m.state = msg.snapshot

	case commandDoneMsg:
		m.busy = ""
		name := msg.action.name
		if msg.action.needsValue() {
			name = fmt.Sprintf("%s %d", name, msg.value)
		}
		switch {
		case msg.err != nil && isRetryable(msg.err):
			m.addLogEntry(fmt.Sprintf("%s failed: %v, enter retries", name, msg.err), true)
		case msg.err != nil:
			m.addLogEntry(fmt.Sprintf("%s failed: %v", name, msg.err), true)
		default:
			m.addLogEntry(fmt.Sprintf("%s done in %s", name, msg.took.Round(10*time.Millisecond)), false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost (%v), reconnecting...", msg.err), true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.state = undefinedState()
		m.addLogEntry("Reconnected", false)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		return m.toggleFocus(), nil

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()
	}

	var cmd tea.Cmd
	if m.focusedField == focusValueInput {
		m.valueInput, cmd = m.valueInput.Update(msg)
	} else {
		m.actions, cmd = m.actions.Update(msg)
	}
	return m, cmd
}

func (m controlModel) selected() (action, bool) {
	a, ok := m.actions.SelectedItem().(action)
	return a, ok
}

func (m controlModel) toggleFocus() controlModel {
	a, ok := m.selected()
	if m.focusedField == focusActionList && ok && a.needsValue() {
		m.focusedField = focusValueInput
		m.valueInput.Focus()
	} else {
		m.focusedField = focusActionList
		m.valueInput.Blur()
	}
	return m
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	if m.busy != "" {
		m.addLogEntry(fmt.Sprintf("Busy with %s", m.busy), true)
		return m, nil
	}

	a, ok := m.selected()
	if !ok {
		return m, nil
	}
	if a.needsValue() && m.focusedField == focusActionList {
		return m.toggleFocus(), nil
	}

	var value int
	if a.needsValue() {
		v, err := strconv.Atoi(strings.TrimSpace(m.valueInput.Value()))
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid %s value %q", a.name, m.valueInput.Value()), true)
			return m, nil
		}
		value = v
		m.valueInput.SetValue("")
	}

	m.busy = a.name
	m.addLogEntry(fmt.Sprintf("Running %s", a.name), false)
	return m, m.connMgr.execute(a, value)
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("SPALINK CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s", connStatus, m.cfg.Name)))
	s.WriteString("\n\n")

	// Layout: left panel (actions) | right panel (state and input)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusActionList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	actionPanel := listStyle.Render(m.actions.View())

	right := m.renderState(labelStyle, valueStyle, errorStyle, warningStyle) + "\n\n" +
		m.renderInput(labelStyle, headerStyle, warningStyle)
	statePanel := boxStyle.Width(rightWidth).Render(right)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, actionPanel, " ", statePanel))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(labelStyle, headerStyle, errorStyle, warningStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderState(labelStyle, valueStyle, errorStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder
	st := m.state

	if st.online {
		s.WriteString(valueStyle.Render("✓ Online"))
	} else {
		s.WriteString(warningStyle.Render("⏳ Waiting for the spa..."))
	}
	s.WriteString("\n\n")

	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-13s", label+":")), valueStyle.Render(value)))
	}
	row("Water", formatValue(st.water, "°C"))
	row("Setpoint", formatValue(st.setpoint, "°C"))
	row("Power", st.power.String())
	row("Filter", st.filter.String())
	row("Bubble", st.bubble.String())
	row("Heater", heaterText(st))
	if m.cfg.Has(spabus.FeatureJet) {
		row("Jet", st.jet.String())
	}
	if m.cfg.Has(spabus.FeatureDisinfection) {
		row("Disinfection", formatValue(st.hours, "h"))
	}
	if st.errorCode != "" {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error %s: %s", st.errorCode, st.errorText)))
	}

	return strings.TrimRight(s.String(), "\n")
}

func (m controlModel) renderInput(labelStyle, headerStyle, warningStyle lipgloss.Style) string {
	if m.busy != "" {
		return warningStyle.Render(fmt.Sprintf("Running %s...", m.busy))
	}
	a, ok := m.selected()
	if !ok || !a.needsValue() {
		return headerStyle.Render("Enter toggles the selected switch")
	}
	return fmt.Sprintf("%s %s %s", labelStyle.Render(a.name+":"), m.valueInput.View(), headerStyle.Render(a.desc))
}

func (m controlModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	anomalous := m.stats.TotalFrames - m.stats.ValidFrames
	anomalyText := valueStyle.Render("0")
	if anomalous > 0 {
		anomalyText = errorStyle.Render(fmt.Sprintf("%d", anomalous))
	}

	content := fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Anomalous:"), anomalyText,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(labelStyle, headerStyle, errorStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 30
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	var content strings.Builder
	if len(m.eventLog) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.eventLog[startIdx:] {
		timestamp := headerStyle.Render(entry.timestamp.Format("15:04:05"))
		if entry.isError {
			content.WriteString(fmt.Sprintf("%s %s\n", timestamp, errorStyle.Render("✗ "+entry.message)))
		} else {
			content.WriteString(fmt.Sprintf("%s %s\n", timestamp, warningStyle.Render("ℹ "+entry.message)))
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(content.String(), "\n")))
	return s.String()
}

// isRetryable reports whether a failed command may succeed when repeated
func isRetryable(err error) bool {
	return errors.Is(err, spabus.ErrCommandTimeout) || errors.Is(err, spabus.ErrNoReadback)
}
