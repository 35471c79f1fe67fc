package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"followgraph/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which artifacts a study directory holds",
	Long: `List the files in the output directory and, when a links run was
interrupted, how far its checkpoint got.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline(cmd, nil, false)
	if err != nil {
		return err
	}

	st, err := p.Status()
	if err != nil {
		return err
	}

	ui.PrintInfo("Output", st.Dir)
	if len(st.Artifacts) == 0 {
		ui.PrintWarning("No artifacts yet, start with: followgraph search")
	} else {
		ui.PrintInfo("Artifacts", strings.Join(st.Artifacts, ", "))
	}

	if st.Checkpoint == nil {
		return nil
	}
	cp := st.Checkpoint
	ui.PrintInfo("Checkpoint", fmt.Sprintf("%v of %v accounts collected, %v skipped, %v failed",
		cp["collected"], cp["total"], cp["skipped"], cp["failed"]))
	ui.PrintInfo("Edges", fmt.Sprint(cp["edges"]))
	if age, ok := cp["age"].(time.Duration); ok {
		ui.PrintInfo("Last update", age.Round(time.Second).String()+" ago")
	}
	if done, _ := cp["completed"].(bool); !done {
		ui.PrintHighlight("Run interrupted, continue with: followgraph links --resume")
	}
	return nil
}
