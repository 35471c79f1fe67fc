package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorCyan    = lipgloss.Color("36")
	colorGreen   = lipgloss.Color("35")
	colorYellow  = lipgloss.Color("220")
	colorRed     = lipgloss.Color("196")
	colorMagenta = lipgloss.Color("170")
	colorGray    = lipgloss.Color("245")
	colorDim     = lipgloss.Color("240")
)

// Styles shared by messages and tables
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLabel     = lipgloss.NewStyle().Foreground(colorCyan)
	StyleValue     = lipgloss.NewStyle().Foreground(colorYellow)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorMagenta)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
)

// Output receives everything the Print helpers write
var Output io.Writer = os.Stdout

// Quiet suppresses informational output; errors and warnings still print
var Quiet bool

// Banner is printed at the start of interactive commands
const Banner = "followgraph · keyword accounts → follower graph"

// PrintBanner prints the banner
func PrintBanner() {
	if Quiet {
		return
	}
	fmt.Fprintln(Output, StyleTitle.Render(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(Output, StyleError.Render(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if Quiet {
		return
	}
	fmt.Fprintln(Output, StyleSuccess.Render(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	if Quiet {
		return
	}
	fmt.Fprintf(Output, "%s: %s\n", StyleLabel.Render(label), StyleValue.Render(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(Output, StyleWarning.Render(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if Quiet {
		return
	}
	fmt.Fprintln(Output, StyleHighlight.Render(msg))
}

// Print writes a rendered block such as a table
func Print(block string) {
	if Quiet {
		return
	}
	fmt.Fprintln(Output, block)
}
