package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"followgraph/pkg/links"
)

// ProgressMsg carries a collector progress report
type ProgressMsg links.Progress

// RateLimitMsg reports a pause of Wait starting now
type RateLimitMsg struct {
	Wait time.Duration
}

// LogMsg adds a line to the log panel
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg ends the dashboard with the run's error, if any
type DoneMsg struct {
	Err error
}

// TickMsg refreshes countdowns
type TickMsg time.Time

// Update handles all messages and returns the next model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case ProgressMsg:
		prev := m.progress
		m.progress = links.Progress(msg)
		m.waitUntil = time.Time{}
		if m.progress.Done > prev.Done {
			m = m.withLog("SUCCESS", fmt.Sprintf("finished %s", display(prev)))
		}
		return m, nil

	case RateLimitMsg:
		m.waitUntil = time.Now().Add(msg.Wait)
		m.waits++
		m = m.withLog("WARN", fmt.Sprintf("rate limited, waiting %s", msg.Wait.Round(time.Second)))
		return m, nil

	case LogMsg:
		return m.withLog(msg.Level, msg.Message), nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		if msg.Err != nil {
			m = m.withLog("ERROR", msg.Err.Error())
		} else {
			m = m.withLog("SUCCESS", "links collection complete")
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.finished && m.cancel != nil {
			// the collector saves its checkpoint and returns; DoneMsg follows
			m.cancel()
			m = m.withLog("WARN", "stopping after checkpoint")
			return m, nil
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logs = nil
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func display(p links.Progress) string {
	if p.ScreenName != "" {
		return "@" + p.ScreenName
	}
	return p.Current
}
