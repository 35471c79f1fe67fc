package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m Model) View() string {
	now := time.Now()
	width := m.width
	if width == 0 {
		width = 80
	}

	sections := []string{
		titleStyle.Render("followgraph · follower links"),
		m.renderProgress(now, width),
		m.renderLogs(width),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q stop · ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderProgress(now time.Time, width int) string {
	p := m.progress

	status := m.spinner.View() + " collecting " + valueStyle.Render(display(p))
	switch {
	case m.finished && m.err != nil:
		status = errorStyle.Render("✗ stopped")
	case m.finished:
		status = successStyle.Render("✓ complete")
	case m.Waiting(now):
		status = warningStyle.Render("⏸ rate limited") + " resumes in " +
			valueStyle.Render(formatDuration(m.waitUntil.Sub(now)))
	}

	lines := []string{
		status,
		m.bar.ViewAs(m.Percent()) + fmt.Sprintf(" %d/%d", p.Done, p.Total),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			labelStyle.Render("page"), valueStyle.Render(fmt.Sprint(p.Page)),
			labelStyle.Render("edges"), valueStyle.Render(fmt.Sprint(p.Edges)),
			labelStyle.Render("requests"), valueStyle.Render(fmt.Sprint(p.Requests))),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			labelStyle.Render("elapsed"), valueStyle.Render(formatDuration(now.Sub(m.startTime))),
			labelStyle.Render("eta"), valueStyle.Render(formatDuration(m.ETA(now))),
			labelStyle.Render("waits"), valueStyle.Render(fmt.Sprint(m.waits))),
	}

	return panelStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderLogs(width int) string {
	rows := 8
	if m.height > 20 {
		rows = m.height - 14
	}
	start := len(m.logs) - rows
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, l := range m.logs[start:] {
		msg := l.Message
		if maxLen := width - 24; maxLen > 3 && len(msg) > maxLen {
			msg = msg[:maxLen-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(l.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("%-7s", l.Level)),
			logMessageStyle.Render(msg)))
	}
	if len(lines) == 0 {
		lines = append(lines, helpStyle.Render("no messages yet"))
	}

	return panelStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	return helpStyle.Render(`  q / ctrl+c  stop after saving the checkpoint (resume with --resume)
  ctrl+l      clear messages
  ?           toggle this help`)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
