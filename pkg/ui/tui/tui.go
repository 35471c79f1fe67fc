// Package tui is the interactive dashboard shown while follower links are
// collected.
package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"followgraph/pkg/links"
)

// Dashboard runs the bubbletea program and forwards collector events to it
type Dashboard struct {
	program *tea.Program
}

// New creates a dashboard for total accounts; cancel stops the run when the
// user quits.
func New(total int, cancel context.CancelFunc, opts ...tea.ProgramOption) *Dashboard {
	return &Dashboard{program: tea.NewProgram(NewModel(total, cancel), opts...)}
}

// Run blocks until the run finishes or the user quits
func (d *Dashboard) Run() (Model, error) {
	final, err := d.program.Run()
	if err != nil {
		return Model{}, err
	}
	m, _ := final.(Model)
	return m, nil
}

// Progress is a links.Collector OnProgress hook
func (d *Dashboard) Progress(p links.Progress) {
	d.program.Send(ProgressMsg(p))
}

// RateLimited is a links.Collector OnRateLimit hook
func (d *Dashboard) RateLimited(wait time.Duration) {
	d.program.Send(RateLimitMsg{Wait: wait})
}

// Log adds a formatted line to the log panel
func (d *Dashboard) Log(level, format string, args ...interface{}) {
	d.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Done ends the dashboard
func (d *Dashboard) Done(err error) {
	d.program.Send(DoneMsg{Err: err})
}

// Write accepts JSON log records so a logger can write into the log panel
// instead of the terminal the dashboard owns.
func (d *Dashboard) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimSpace(p), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		d.program.Send(parseLogLine(line))
	}
	return len(p), nil
}

func parseLogLine(line []byte) LogMsg {
	var rec map[string]interface{}
	if err := json.Unmarshal(line, &rec); err != nil {
		return LogMsg{Level: "LOG", Message: string(line)}
	}

	level, _ := rec["level"].(string)
	msg, _ := rec["message"].(string)

	var extra []string
	for _, k := range []string{"account", "screen_name", "status", "error", "resume"} {
		if v, ok := rec[k]; ok {
			extra = append(extra, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(extra) > 0 {
		msg += " " + strings.Join(extra, " ")
	}
	return LogMsg{Level: strings.ToUpper(level), Message: msg}
}
