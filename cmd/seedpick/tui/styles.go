// Package tui provides the interactive terminal interface for seedpick.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI.
var (
	// Primary colors
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	// Status colors
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")

	// Neutral colors
	mutedColor     = lipgloss.Color("#666666")
	subtleColor    = lipgloss.Color("#444444")
	borderColor    = lipgloss.Color("#333333")
	highlightColor = lipgloss.Color("#1A1A2E")
)

// Text styles.
var (
	// titleStyle for the header line.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// mutedTextStyle for less important text.
	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// errorTextStyle for error messages.
	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// statusTextStyle for the transient status line.
	statusTextStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// dividerStyle for horizontal rules.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Row styles.
var (
	// cursorRowStyle for the highlighted row.
	cursorRowStyle = lipgloss.NewStyle().
			Background(highlightColor).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	// normalRowStyle for all other rows.
	normalRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	// wantedStyle for the checked selection box.
	wantedStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// unwantedStyle for the unchecked selection box.
	unwantedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// partialStyle for the mixed selection box.
	partialStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// sizeStyle for the size column.
	sizeStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// progressDoneStyle for complete files.
	progressDoneStyle = lipgloss.NewStyle().
				Foreground(successColor)

	// priorityHighStyle, priorityLowStyle color the priority column.
	priorityHighStyle = lipgloss.NewStyle().
				Foreground(dangerColor)
	priorityLowStyle = lipgloss.NewStyle().
				Foreground(subtleColor)
)

// Key hint styles.
var (
	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	line := make([]rune, width)
	for i := range line {
		line[i] = '─'
	}
	return dividerStyle.Render(string(line))
}

// truncateName truncates a name to fit within maxLen, preserving the start.
func truncateName(name string, maxLen int) string {
	if len(name) <= maxLen {
		return name
	}
	if maxLen <= 3 {
		return name[:maxLen]
	}
	return name[:maxLen-3] + "..."
}
