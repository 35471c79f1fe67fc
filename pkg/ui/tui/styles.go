package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan    = lipgloss.Color("36")
	colorGreen   = lipgloss.Color("35")
	colorYellow  = lipgloss.Color("220")
	colorOrange  = lipgloss.Color("208")
	colorRed     = lipgloss.Color("196")
	colorMagenta = lipgloss.Color("170")
	colorDim     = lipgloss.Color("240")
	colorWhite   = lipgloss.Color("252")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	logMessageStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// levelColor maps a log level to its color
func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR", "FATAL":
		return colorRed
	case "WARN":
		return colorOrange
	case "SUCCESS":
		return colorGreen
	case "INFO":
		return colorCyan
	default:
		return colorMagenta
	}
}
