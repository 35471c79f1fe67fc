package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"followgraph/pkg/auth"
	"followgraph/pkg/checkpoint"
	"followgraph/pkg/links"
	"followgraph/pkg/stats"
)

var headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// FrequencyTable renders a frequency table for one category
func FrequencyTable(category string, freqs []stats.Frequency) string {
	t := newTable(category, "n", "%")
	total := 0
	for _, f := range freqs {
		t.Row(f.Value, strconv.Itoa(f.Count), fmt.Sprintf("%.1f", f.Percent))
		total += f.Count
	}
	t.Row(StyleDim.Render("total"), strconv.Itoa(total), "")
	return t.Render()
}

// CrosstabTable renders a cross-tabulation with row and column totals
func CrosstabTable(ct *stats.CrossTab) string {
	headers := append([]string{ct.Row + " \\ " + ct.Column}, ct.Cols...)
	headers = append(headers, "total")
	t := newTable(headers...)

	for r, value := range ct.Rows {
		row := []string{value}
		for _, n := range ct.Counts[r] {
			row = append(row, strconv.Itoa(n))
		}
		row = append(row, strconv.Itoa(ct.RowTotal(r)))
		t.Row(row...)
	}

	totals := []string{StyleDim.Render("total")}
	for c := range ct.Cols {
		totals = append(totals, strconv.Itoa(ct.ColTotal(c)))
	}
	totals = append(totals, strconv.Itoa(ct.Total))
	t.Row(totals...)
	return t.Render()
}

// SummaryTable renders numeric summaries keyed by metric, in the given order
func SummaryTable(metrics []string, summaries map[string]stats.Summary) string {
	t := newTable("metric", "n", "mean", "median", "sd", "min", "max")
	for _, m := range metrics {
		s, ok := summaries[m]
		if !ok {
			continue
		}
		t.Row(summaryRow(m, s)...)
	}
	return t.Render()
}

// GroupedSummaryTable renders one metric summarized per category value
func GroupedSummaryTable(metric, category string, groups []stats.GroupSummary) string {
	t := newTable(category, "n", "mean", "median", "sd", "min", "max")
	for _, g := range groups {
		t.Row(summaryRow(g.Value, g.Summary)...)
	}
	return StyleLabel.Render(metric) + "\n" + t.Render()
}

// GraphTable renders the follower graph summary
func GraphTable(g *stats.GraphSummary) string {
	t := newTable("graph", "value")
	t.Row("nodes", strconv.Itoa(g.Nodes))
	t.Row("edges", strconv.Itoa(g.Edges))
	t.Row("density", fmt.Sprintf("%.4f", g.Density))
	t.Row("isolates", strconv.Itoa(g.Isolates))
	t.Row("in-degree mean / max", fmt.Sprintf("%.2f / %.0f", g.InDegree.Mean, g.InDegree.Max))
	t.Row("out-degree mean / max", fmt.Sprintf("%.2f / %.0f", g.OutDegree.Mean, g.OutDegree.Max))
	return t.Render()
}

// StatusTable renders per-status counts of a links run
func StatusTable(res *links.Result) string {
	counts := make(map[links.Status]int)
	truncated := 0
	for _, s := range res.Statuses {
		counts[s.Status]++
		if s.Truncated {
			truncated++
		}
	}

	t := newTable("status", "accounts")
	for _, s := range []links.Status{
		checkpoint.StatusCollected, checkpoint.StatusSkipped,
		checkpoint.StatusFailed, checkpoint.StatusPending,
	} {
		t.Row(string(s), strconv.Itoa(counts[s]))
	}
	t.Row("truncated", strconv.Itoa(truncated))
	t.Row(StyleDim.Render("edges"), strconv.Itoa(len(res.Edges)))
	t.Row(StyleDim.Render("requests"), strconv.Itoa(res.Requests))
	return t.Render()
}

// CredentialsTable renders stored credentials with masked tokens
func CredentialsTable(creds []*auth.Credentials) string {
	t := newTable("name", "token", "base url", "modified")
	for _, c := range creds {
		s := auth.Sanitize(c)
		modified := "env"
		if !s.LastModified.IsZero() {
			modified = s.LastModified.Format("2006-01-02 15:04")
		}
		t.Row(s.Name, s.BearerToken, s.BaseURL, modified)
	}
	return t.Render()
}

func summaryRow(label string, s stats.Summary) []string {
	return []string{
		label,
		strconv.Itoa(s.N),
		fmt.Sprintf("%.1f", s.Mean),
		fmt.Sprintf("%.1f", s.Median),
		fmt.Sprintf("%.1f", s.StdDev),
		fmt.Sprintf("%.0f", s.Min),
		fmt.Sprintf("%.0f", s.Max),
	}
}
