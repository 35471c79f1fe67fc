package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"followgraph/pkg/stats"
	"followgraph/pkg/storage"
	"followgraph/pkg/ui"
)

var (
	statsGroupBy   string
	statsCrosstabs []string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the annotated accounts",
	Long: `Print frequency tables for every codebook category, the requested
cross-tabulations and numeric summaries of the account counters. Once links
have been collected a graph summary is included.

The report is also written to stats.json in the output directory.`,
	Example: `  followgraph stats --group-by actor_type --crosstab relevant:actor_type`,
	RunE:    runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsGroupBy, "group-by", "", "category to group numeric summaries by")
	statsCmd.Flags().StringSliceVar(&statsCrosstabs, "crosstab", nil, "row:column categories to cross-tabulate (repeatable)")
}

func runStats(cmd *cobra.Command, args []string) error {
	p, cfg, err := newPipeline(cmd, map[string]interface{}{
		"group-by": statsGroupBy,
		"crosstab": statsCrosstabs,
	}, false)
	if err != nil {
		return err
	}

	report, err := p.Stats()
	if err != nil {
		return err
	}

	ui.PrintInfo("Accounts", fmt.Sprint(report.Accounts))
	for _, category := range report.Categories {
		ui.Print(ui.FrequencyTable(category, report.Frequencies[category]))
	}
	for _, ct := range report.Crosstabs {
		ui.Print(ui.CrosstabTable(ct))
	}

	metrics := cfg.Stats.Metrics
	if len(metrics) == 0 {
		metrics = stats.Metrics
	}
	ui.Print(ui.SummaryTable(metrics, report.Numeric))
	for _, metric := range metrics {
		if groups, ok := report.Grouped[metric]; ok {
			ui.Print(ui.GroupedSummaryTable(metric, report.GroupBy, groups))
		}
	}

	if report.Graph != nil {
		ui.Print(ui.GraphTable(report.Graph))
	}
	ui.PrintInfo("Written", p.Store().Path(storage.StatsFile))
	return nil
}
