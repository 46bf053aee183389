// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/spalink/pkg/spabus"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for anomalies, false for state changes
}

// TUI model
type model struct {
	connInfo      string
	cfg           spabus.ModelConfig
	statsInterval int
	showAll       bool
	stats         *spabus.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	state         spaSnapshot
	lostFrames    uint32
	started       time.Time
	lostErr       error
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type busDataMsg busBatch
type connectionLostMsg struct {
	err error
}

// formatUptime formats a duration as a short human readable string
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if h := d / time.Hour; h > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m := (d % time.Hour) / time.Minute; m > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", (d%time.Minute)/time.Second))
	return strings.Join(parts, " ")
}

func initialModel(connInfo string, cfg spabus.ModelConfig, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		cfg:           cfg,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         spabus.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		state:         undefinedState(),
		started:       time.Now(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case connectionLostMsg:
		m.lostErr = msg.err
		m.addLogEntry(fmt.Sprintf("CONNECTION LOST: %v", msg.err), true)

	case busDataMsg:
		for i, f := range msg.frames {
			m.stats.Update(msg.errors[i])
			for _, err := range msg.errors[i] {
				m.addLogEntry(err.Message, true)
			}
			if m.showAll && len(msg.errors[i]) == 0 && f != spabus.FrameCue {
				m.addLogEntry(spabus.FormatFrame(m.cfg, f), false)
			}
		}
		if msg.lost > 0 {
			m.lostFrames += msg.lost
			m.addLogEntry(fmt.Sprintf("%d frames lost", msg.lost), true)
		}
		for _, change := range msg.snapshot.changes(m.state) {
			m.addLogEntry(change, false)
		}
		m.state = msg.snapshot
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	mode := "Anomalies only"
	if m.showAll {
		mode = "All frames"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("SPALINK - BUS MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Mode: %s | 'r' reset, 'q' quit",
		m.connInfo, m.cfg.Name, mode)))
	s.WriteString("\n\n")

	// Link status
	switch {
	case m.lostErr != nil:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	case m.state.online:
		s.WriteString(valueStyle.Render("✓ Online"))
	default:
		s.WriteString(warningStyle.Render("⏳ Waiting for the spa..."))
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf(" (up %s)", formatUptime(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Statistics
	var validPercent float64
	errors := m.stats.TotalFrames - m.stats.ValidFrames
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Total:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		labelStyle.Render("Anomalous:"), errorStyle.Render(fmt.Sprintf("%d", errors)),
	))

	if errors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %d, %s %d, %s %d, %s %d, %s %d\n",
			headerStyle.Render("unknown"), m.stats.UnknownFrames,
			headerStyle.Render("segments"), m.stats.SegmentErrors,
			headerStyle.Render("positions"), m.stats.PositionErrors,
			headerStyle.Render("buttons"), m.stats.ButtonConflicts,
			headerStyle.Render("led bits"), m.stats.LEDReserved,
		))
	}
	if m.lostFrames > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Lost:"), errorStyle.Render(fmt.Sprintf("%d", m.lostFrames))))
	}

	errorRate := valueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		labelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Spa state
	s.WriteString(labelStyle.Render("Spa State:"))
	s.WriteString("\n")
	st := m.state
	stateContent := strings.Builder{}
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		labelStyle.Render("Water:"), valueStyle.Render(formatValue(st.water, "°C")),
		labelStyle.Render("Setpoint:"), valueStyle.Render(formatValue(st.setpoint, "°C")),
	))
	stateContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Power:"), valueStyle.Render(st.power.String()),
		labelStyle.Render("Filter:"), valueStyle.Render(st.filter.String()),
		labelStyle.Render("Bubble:"), valueStyle.Render(st.bubble.String()),
		labelStyle.Render("Heater:"), valueStyle.Render(heaterText(st)),
	))
	if m.cfg.Has(spabus.FeatureJet) {
		stateContent.WriteString(fmt.Sprintf("   %s %s", labelStyle.Render("Jet:"), valueStyle.Render(st.jet.String())))
	}
	if m.cfg.Has(spabus.FeatureDisinfection) {
		stateContent.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render("Disinfection:"), valueStyle.Render(formatValue(st.hours, "h"))))
	}
	if st.errorCode != "" {
		stateContent.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render("Error:"),
			errorStyle.Render(fmt.Sprintf("%s (%s)", st.errorCode, st.errorText))))
	}
	s.WriteString(boxStyle.Render(stateContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 18
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", timestamp, errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", timestamp, warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

// heaterText folds the two heater LEDs into one word
func heaterText(st spaSnapshot) string {
	if st.standby.IsOn() {
		return "standby"
	}
	return st.heater.String()
}
