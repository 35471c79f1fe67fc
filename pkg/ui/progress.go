package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"followgraph/pkg/links"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// ProgressLine renders links collection progress on a single terminal line
type ProgressLine struct {
	w         io.Writer
	startTime time.Time
	last      links.Progress
}

// NewProgressLine creates a progress line writing to w
func NewProgressLine(w io.Writer) *ProgressLine {
	return &ProgressLine{w: w, startTime: time.Now()}
}

// Update redraws the line; it is a links.Collector OnProgress hook
func (p *ProgressLine) Update(pr links.Progress) {
	p.last = pr
	fmt.Fprintf(p.w, "\r\033[K%s", p.Render(pr))
}

// Render formats one progress state
func (p *ProgressLine) Render(pr links.Progress) string {
	who := pr.Current
	if pr.ScreenName != "" {
		who = "@" + pr.ScreenName
	}
	return fmt.Sprintf("%s %s %s p%d | %s edges | %s requests",
		StyleHighlight.Render("[LINKS]"),
		Bar(pr.Done, pr.Total),
		who,
		pr.Page,
		StyleValue.Render(fmt.Sprint(pr.Edges)),
		StyleValue.Render(fmt.Sprint(pr.Requests)),
	)
}

// Waiting reports a long rate-limit pause; it is a links.Collector
// OnRateLimit hook
func (p *ProgressLine) Waiting(d time.Duration) {
	until := time.Now().Add(d).Format("15:04:05")
	fmt.Fprintf(p.w, "\r\033[K%s rate limited, waiting %s (until %s)\n",
		StyleWarning.Render("[WAIT]"), d.Round(time.Second), until)
}

// Finish ends the line and prints the elapsed time
func (p *ProgressLine) Finish() {
	fmt.Fprintf(p.w, "\n%s %d/%d accounts in %s\n",
		StyleSuccess.Render("[DONE]"), p.last.Done, p.last.Total,
		time.Since(p.startTime).Round(time.Second))
}

// Bar renders done/total as a fixed-width bar
func Bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, barWidth-filled),
		done, total)
}
