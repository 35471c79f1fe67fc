package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"followgraph/pkg/links"
)

const maxLogMessages = 50

// Model is the bubbletea model of the links dashboard. It is a value type
// updated only through Update.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	progress  links.Progress
	startTime time.Time
	// waitUntil is set while the collector sleeps on a rate limit
	waitUntil time.Time
	waits     int

	logs []LogMessage

	width    int
	height   int
	showHelp bool

	finished bool
	err      error
	cancel   context.CancelFunc
}

// LogMessage is one line in the log panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a dashboard for total accounts. cancel is called when the
// user quits before the run finishes; it may be nil.
func NewModel(total int, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorCyan)

	return Model{
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		progress:  links.Progress{Total: total},
		startTime: time.Now(),
		cancel:    cancel,
	}
}

// Init starts the spinner and the refresh tick
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Percent is the share of accounts finished
func (m Model) Percent() float64 {
	if m.progress.Total == 0 {
		return 0
	}
	return float64(m.progress.Done) / float64(m.progress.Total)
}

// Waiting reports whether a rate-limit pause is in progress at now
func (m Model) Waiting(now time.Time) bool {
	return now.Before(m.waitUntil)
}

// ETA extrapolates the remaining time from finished accounts
func (m Model) ETA(now time.Time) time.Duration {
	done := m.progress.Done
	if done == 0 || done >= m.progress.Total {
		return 0
	}
	per := now.Sub(m.startTime) / time.Duration(done)
	return per * time.Duration(m.progress.Total-done)
}

// Finished reports whether the run has ended, and its error
func (m Model) Finished() (bool, error) {
	return m.finished, m.err
}

func (m Model) withLog(level, message string) Model {
	logs := append(m.logs, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(logs) > maxLogMessages {
		logs = logs[len(logs)-maxLogMessages:]
	}
	m.logs = logs
	return m
}
