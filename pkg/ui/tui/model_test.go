package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/links"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestProgressUpdates(t *testing.T) {
	m := NewModel(4, nil)
	assert.Equal(t, 0.0, m.Percent())

	m, _ = update(t, m, ProgressMsg(links.Progress{Done: 0, Total: 4, Current: "1", ScreenName: "alice", Page: 1, Edges: 3, Requests: 1}))
	assert.Empty(t, m.logs)

	m, _ = update(t, m, ProgressMsg(links.Progress{Done: 1, Total: 4, Current: "2", ScreenName: "bob", Page: 0, Edges: 3, Requests: 2}))
	assert.Equal(t, 0.25, m.Percent())
	require.Len(t, m.logs, 1)
	assert.Equal(t, "finished @alice", m.logs[0].Message)

	view := m.View()
	assert.Contains(t, view, "1/4")
	assert.Contains(t, view, "@bob")
}

func TestRateLimitCountdown(t *testing.T) {
	m := NewModel(2, nil)
	m, _ = update(t, m, RateLimitMsg{Wait: 15 * time.Minute})

	assert.True(t, m.Waiting(time.Now()))
	assert.Equal(t, 1, m.waits)
	assert.Contains(t, m.View(), "rate limited")

	m, _ = update(t, m, ProgressMsg(links.Progress{Total: 2, Page: 2}))
	assert.False(t, m.Waiting(time.Now()), "progress clears the pause")
}

func TestQuitCancelsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(2, cancel)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd, "waits for the collector to stop")
	assert.Error(t, ctx.Err())

	m, cmd = update(t, m, DoneMsg{Err: context.Canceled})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	done, err := m.Finished()
	assert.True(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, m.View(), "stopped")
}

func TestQuitAfterFinish(t *testing.T) {
	m := NewModel(1, nil)
	m, _ = update(t, m, DoneMsg{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLogRingBuffer(t *testing.T) {
	m := NewModel(1, nil)
	for i := 0; i < maxLogMessages+5; i++ {
		m, _ = update(t, m, LogMsg{Level: "INFO", Message: "line"})
	}
	assert.Len(t, m.logs, maxLogMessages)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logs)
}

func TestETA(t *testing.T) {
	m := NewModel(4, nil)
	m.startTime = time.Now().Add(-10 * time.Minute)
	m.progress.Done = 1

	eta := m.ETA(time.Now())
	assert.InDelta(t, (30 * time.Minute).Seconds(), eta.Seconds(), 1)
}

func TestParseLogLine(t *testing.T) {
	msg := parseLogLine([]byte(`{"level":"warn","message":"account skipped","account":"42","error":"forbidden"}`))
	assert.Equal(t, "WARN", msg.Level)
	assert.Equal(t, "account skipped account=42 error=forbidden", msg.Message)

	msg = parseLogLine([]byte("plain text"))
	assert.Equal(t, "LOG", msg.Level)
	assert.Equal(t, "plain text", msg.Message)

}
