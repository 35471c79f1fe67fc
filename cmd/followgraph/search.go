package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"followgraph/pkg/storage"
	"followgraph/pkg/ui"
)

var (
	searchKeywords    []string
	searchFilterTerms []string
	searchPages       int
	codebookPath      string
	codedPath         string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search accounts matching the keywords",
	Long: `Search accounts for every keyword, deduplicate them and drop false
positives whose screen name, name and description contain none of the filter
terms. Filter terms default to the keywords without a leading # or @.

The result is written to accounts.json in the output directory.`,
	Example: `  # Search two hashtags, five pages each
  followgraph search --keyword '#openscience' --keyword '#openaccess' --pages 5`,
	RunE: runSearch,
}

var codesheetCmd = &cobra.Command{
	Use:   "codesheet",
	Short: "Write a blank coding sheet for the collected accounts",
	Long: `Write coding_sheet.csv with one row per collected account and an empty
column per codebook category. A starter codebook is created when the
configured one does not exist yet.

Fill in the sheet, save it as the coded file and run 'followgraph merge'.`,
	RunE: runCodesheet,
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the coded sheet onto the collected accounts",
	Long: `Validate the coded sheet against the codebook and join it onto the
accounts by id. Accounts without a row are kept as uncoded, rows whose id
matches no account are reported and ignored, and accounts matching an
exclude rule are dropped.

The result is written to annotated.json in the output directory.`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(searchCmd, codesheetCmd, mergeCmd)

	searchCmd.Flags().StringSliceVarP(&searchKeywords, "keyword", "k", nil, "keyword to search (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchFilterTerms, "filter", nil, "filter term (repeatable, default: the keywords)")
	searchCmd.Flags().IntVar(&searchPages, "pages", 0, "result pages per keyword")

	codesheetCmd.Flags().StringVar(&codebookPath, "codebook", "", "codebook file")

	mergeCmd.Flags().StringVar(&codebookPath, "codebook", "", "codebook file")
	mergeCmd.Flags().StringVar(&codedPath, "coded", "", "coded sheet file")
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"keywords":     searchKeywords,
		"filter-terms": searchFilterTerms,
		"pages":        searchPages,
	}
	p, cfg, err := newPipeline(cmd, flags, true)
	if err != nil {
		return err
	}
	if len(cfg.Search.Keywords) == 0 {
		return fmt.Errorf("no keywords: pass --keyword or set search.keywords")
	}

	ui.PrintInfo("Keywords", strings.Join(cfg.Search.Keywords, ", "))
	ui.PrintInfo("Filter terms", strings.Join(cfg.EffectiveFilterTerms(), ", "))

	ctx, stop := signalContext()
	defer stop()

	res, err := p.Search(ctx)
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Collected %d accounts (%d rejected as false positives)", len(res.Accounts), len(res.Rejected)))
	ui.PrintInfo("Written", p.Store().Path(storage.AccountsFile))
	ui.NewNotifier(cfg.Notifications).Complete("search", fmt.Sprintf("%d accounts collected", len(res.Accounts)))
	return nil
}

func runCodesheet(cmd *cobra.Command, args []string) error {
	p, cfg, err := newPipeline(cmd, map[string]interface{}{"codebook": codebookPath}, false)
	if err != nil {
		return err
	}

	sheet, created, err := p.CodeSheet()
	if err != nil {
		return err
	}
	if created {
		ui.PrintWarning("Created starter codebook", cfg.Annotation.Codebook)
	}
	ui.PrintSuccess("Coding sheet written")
	ui.PrintInfo("Sheet", sheet)
	ui.PrintInfo("Next", fmt.Sprintf("code it, save as %s and run 'followgraph merge'", cfg.Annotation.CodedFile))
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline(cmd, map[string]interface{}{"codebook": codebookPath, "coded": codedPath}, false)
	if err != nil {
		return err
	}

	merged, err := p.Merge()
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Merged %d accounts", len(merged.Accounts)))
	if n := len(merged.Uncoded); n > 0 {
		ui.PrintWarning(fmt.Sprintf("%d accounts have no coded row", n), strings.Join(merged.Uncoded, ", "))
	}
	if n := len(merged.UnknownIDs); n > 0 {
		ui.PrintWarning(fmt.Sprintf("%d coded rows match no account", n), strings.Join(merged.UnknownIDs, ", "))
	}
	if n := len(merged.Excluded); n > 0 {
		ui.PrintInfo("Excluded", fmt.Sprint(n))
	}
	ui.PrintInfo("Written", p.Store().Path(storage.AnnotatedFile))
	return nil
}
