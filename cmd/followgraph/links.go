package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"followgraph/internal/pipeline"
	"followgraph/pkg/config"
	"followgraph/pkg/links"
	"followgraph/pkg/logger"
	"followgraph/pkg/storage"
	"followgraph/pkg/ui"
	"followgraph/pkg/ui/tui"
)

var (
	linksResume       bool
	linksForceRestart bool
	linksRetryFailed  bool
	linksKeepExternal bool
	linksMaxPages     int
	linksMaxRetries   int
	linksPreflight    bool
	linksTUI          bool
)

// Waits shorter than this are not worth a desktop notification
const notifyWaitThreshold = time.Minute

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Collect follower edges between the annotated accounts",
	Long: `Page through the followers of every annotated account and record an
edge follower -> account whenever the follower is itself in the account set.

Requests are paced to the follower endpoint's rate limit. A rate-limited
request waits for the window to reset; transient failures are retried with
backoff; protected, suspended and missing accounts are skipped.

Progress is checkpointed after every page. Interrupt with Ctrl+C and pick up
later with --resume. While a checkpoint exists a plain run refuses to start;
--force-restart backs it up and starts over.`,
	Example: `  # Start collecting
  followgraph links

  # Continue an interrupted run and retry accounts that failed
  followgraph links --resume --retry-failed

  # Discard the checkpoint and start over with the dashboard
  followgraph links --force-restart --tui`,
	RunE: runLinks,
}

func init() {
	rootCmd.AddCommand(linksCmd)

	linksCmd.Flags().BoolVar(&linksResume, "resume", false, "resume from the last checkpoint")
	linksCmd.Flags().BoolVar(&linksForceRestart, "force-restart", false, "back up and discard an existing checkpoint")
	linksCmd.Flags().BoolVar(&linksRetryFailed, "retry-failed", false, "on resume, retry accounts that failed")
	linksCmd.Flags().BoolVar(&linksKeepExternal, "keep-external", false, "also keep edges from followers outside the account set")
	linksCmd.Flags().IntVar(&linksMaxPages, "max-pages", -1, "follower pages per account (0 = unlimited)")
	linksCmd.Flags().IntVar(&linksMaxRetries, "max-retries", -1, "retries for transient failures")
	linksCmd.Flags().BoolVar(&linksPreflight, "preflight", true, "query the remaining quota before starting")
	linksCmd.Flags().BoolVar(&linksTUI, "tui", false, "use the interactive dashboard")
}

func runLinks(cmd *cobra.Command, args []string) error {
	if linksResume && linksForceRestart {
		return errors.New("--resume and --force-restart are mutually exclusive")
	}

	flags := map[string]interface{}{
		"max-pages":   linksMaxPages,
		"max-retries": linksMaxRetries,
	}
	if cmd.Flags().Changed("keep-external") {
		flags["keep-external"] = linksKeepExternal
	}
	if cmd.Flags().Changed("retry-failed") {
		flags["retry-failed"] = linksRetryFailed
	}

	p, cfg, err := newPipeline(cmd, flags, true)
	if err != nil {
		return err
	}
	merged, err := p.Annotated()
	if err != nil {
		return err
	}

	if !linksResume && !linksForceRestart && p.Store().Exists(storage.CheckpointFile) {
		ui.PrintWarning("Previous links run found in", p.Store().Path(storage.CheckpointFile))
		return pipeline.ErrCheckpointExists
	}

	run := pipeline.LinksRun{
		Resume:       linksResume,
		ForceRestart: linksForceRestart,
		Preflight:    linksPreflight,
	}
	notifier := ui.NewNotifier(cfg.Notifications)

	var res *links.Result
	if linksTUI {
		res, err = linksWithDashboard(p, cfg, run, len(merged.Accounts), notifier)
	} else {
		res, err = linksWithProgressLine(p, run, len(merged.Accounts), notifier)
	}

	if res != nil {
		ui.Print(ui.StatusTable(res))
		ui.PrintInfo("Edges", fmt.Sprint(len(res.Edges)))
		ui.PrintInfo("Written", p.Store().Path(storage.LinksFile))
	}
	if err != nil {
		notifier.Failed("links", err)
		if res != nil && !res.Complete {
			ui.PrintWarning("Run stopped early; continue with", "followgraph links --resume")
		}
		return err
	}

	notifier.Complete("links", fmt.Sprintf("%d edges collected", len(res.Edges)))
	ui.PrintSuccess("Link collection complete")
	return nil
}

func linksWithProgressLine(p *pipeline.Pipeline, run pipeline.LinksRun, total int, notifier *ui.Notifier) (*links.Result, error) {
	ctx, stop := signalContext()
	defer stop()

	ui.PrintInfo("Accounts", fmt.Sprint(total))
	if ui.Quiet {
		return p.Links(ctx, run)
	}

	line := ui.NewProgressLine(os.Stderr)
	run.OnProgress = line.Update
	run.OnRateLimit = func(d time.Duration) {
		line.Waiting(d)
		if d >= notifyWaitThreshold {
			notifier.RateLimited(d)
		}
	}

	res, err := p.Links(ctx, run)
	line.Finish()
	return res, err
}

// linksWithDashboard runs the collector in the background while the
// dashboard owns the terminal. Log records go to the dashboard's log panel.
func linksWithDashboard(p *pipeline.Pipeline, cfg *config.Config, run pipeline.LinksRun, total int, notifier *ui.Notifier) (*links.Result, error) {
	ctx, stop := signalContext()
	defer stop()

	dash := tui.New(total, stop, tea.WithAltScreen())

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	run.Logger = logger.NewWithWriter(dash, level)
	// stray global log lines would tear the alt screen
	prev := logger.GetLogger()
	logger.SetLogger(run.Logger)
	defer logger.SetLogger(prev)
	run.OnProgress = dash.Progress
	run.OnRateLimit = func(d time.Duration) {
		dash.RateLimited(d)
		if d >= notifyWaitThreshold {
			notifier.RateLimited(d)
		}
	}

	type outcome struct {
		res *links.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.Links(ctx, run)
		dash.Done(err)
		done <- outcome{res, err}
	}()

	if _, err := dash.Run(); err != nil {
		stop()
		<-done
		return nil, fmt.Errorf("dashboard failed: %w", err)
	}
	out := <-done
	return out.res, out.err
}
