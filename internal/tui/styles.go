package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FFF87")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#6C6C6C")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)
	errorStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	replyStyle = lipgloss.NewStyle().Foreground(colorGreen)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)
)

// stateStyle colors the state badge.
func stateStyle(s string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case "recording":
		return base.Foreground(colorRed)
	case "processing":
		return base.Foreground(colorYellow)
	case "speaking":
		return base.Foreground(colorGreen)
	case "error":
		return base.Foreground(colorRed).Reverse(true)
	default:
		return base.Foreground(colorGray)
	}
}
