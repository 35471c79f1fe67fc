package stats

import (
	"fmt"
	"time"

	"followgraph/pkg/annotation"
	"followgraph/pkg/graph"
)

// ReportOptions selects what goes into a Report
type ReportOptions struct {
	// Metrics to summarize; defaults to Metrics
	Metrics []string
	// GroupBy is the category numeric summaries are grouped by. Empty
	// disables grouping.
	GroupBy string
	// Crosstabs lists category pairs to tabulate
	Crosstabs [][2]string
}

// Report is the full set of descriptive statistics written to stats.json
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Accounts    int                       `json:"accounts"`
	Categories  []string                  `json:"categories"`
	Frequencies map[string][]Frequency    `json:"frequencies"`
	Crosstabs   []*CrossTab               `json:"crosstabs,omitempty"`
	Numeric     map[string]Summary        `json:"numeric"`
	GroupBy     string                    `json:"group_by,omitempty"`
	Grouped     map[string][]GroupSummary `json:"grouped,omitempty"`
	Graph       *GraphSummary             `json:"graph,omitempty"`
}

// BuildReport computes frequencies for every codebook category, the
// requested crosstabs and numeric summaries. g may be nil when links have
// not been collected yet.
func BuildReport(accounts []annotation.Annotated, cb *annotation.Codebook, g *graph.Graph, opts ReportOptions) (*Report, error) {
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = Metrics
	}
	if opts.GroupBy != "" && cb.Category(opts.GroupBy) == nil {
		return nil, fmt.Errorf("group by: unknown category %q", opts.GroupBy)
	}

	r := &Report{
		GeneratedAt: time.Now(),
		Accounts:    len(accounts),
		Categories:  cb.Names(),
		Frequencies: make(map[string][]Frequency, len(cb.Categories)),
		Numeric:     make(map[string]Summary, len(metrics)),
		GroupBy:     opts.GroupBy,
	}

	for _, name := range r.Categories {
		r.Frequencies[name] = Frequencies(accounts, name)
	}

	for _, pair := range opts.Crosstabs {
		for _, name := range pair {
			if cb.Category(name) == nil {
				return nil, fmt.Errorf("crosstab: unknown category %q", name)
			}
		}
		r.Crosstabs = append(r.Crosstabs, Crosstab(accounts, pair[0], pair[1]))
	}

	for _, m := range metrics {
		s, err := SummarizeMetric(accounts, m)
		if err != nil {
			return nil, err
		}
		r.Numeric[m] = s

		if opts.GroupBy != "" {
			if r.Grouped == nil {
				r.Grouped = make(map[string][]GroupSummary, len(metrics))
			}
			groups, err := SummarizeBy(accounts, m, opts.GroupBy)
			if err != nil {
				return nil, err
			}
			r.Grouped[m] = groups
		}
	}

	if g != nil {
		gs, err := SummarizeGraph(g)
		if err != nil {
			return nil, fmt.Errorf("graph summary: %w", err)
		}
		r.Graph = gs
	}

	return r, nil
}
