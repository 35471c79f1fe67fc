// Package pipeline wires the stages of a follower graph study together. Each
// stage reads the artifacts of earlier stages from the output directory and
// writes its own, so stages can be run and re-run independently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"followgraph/pkg/annotation"
	"followgraph/pkg/checkpoint"
	"followgraph/pkg/collector"
	"followgraph/pkg/config"
	"followgraph/pkg/gexf"
	"followgraph/pkg/graph"
	"followgraph/pkg/links"
	"followgraph/pkg/logger"
	"followgraph/pkg/ratelimit"
	"followgraph/pkg/retry"
	"followgraph/pkg/stats"
	"followgraph/pkg/storage"
	"followgraph/pkg/twitter"
)

// Pipeline runs stages against one output directory
type Pipeline struct {
	cfg    *config.Config
	store  *storage.Manager
	client *twitter.Client
	logger logger.Logger
}

// New creates a pipeline for cfg, creating the output directory
func New(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}
	log = logger.OrDefault(log)

	return &Pipeline{
		cfg:    cfg,
		store:  store,
		client: twitter.NewClient(cfg.API, log),
		logger: log,
	}, nil
}

// Store returns the artifact store
func (p *Pipeline) Store() *storage.Manager {
	return p.store
}

// Search runs the keyword searches and writes accounts.json
func (p *Pipeline) Search(ctx context.Context) (*collector.Result, error) {
	rl := p.cfg.RateLimit
	endpoint := ratelimit.NewEndpoint("search", rl.SearchRequests, rl.SearchWindow, rl.MinInterval)
	retrier := retry.FromConfig(rl, rl.SearchWindow, p.logger)

	c := collector.New(p.client, collector.OptionsFromConfig(p.cfg), endpoint, retrier, p.logger)
	res, err := c.Run(ctx)
	if err != nil {
		return res, err
	}

	if err := p.store.SaveJSON(storage.AccountsFile, res); err != nil {
		return res, err
	}
	return res, nil
}

// Accounts loads the search result
func (p *Pipeline) Accounts() (*collector.Result, error) {
	var res collector.Result
	if err := p.store.LoadJSON(storage.AccountsFile, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Codebook loads the configured codebook. When it does not exist and create
// is set, the default codebook is written there and returned.
func (p *Pipeline) Codebook(create bool) (cb *annotation.Codebook, created bool, err error) {
	path := p.inputPath(p.cfg.Annotation.Codebook)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if !create {
			return nil, false, fmt.Errorf("%w: %s", storage.ErrMissingArtifact, path)
		}
		cb = annotation.DefaultCodebook()
		if err := cb.Save(path); err != nil {
			return nil, false, err
		}
		p.logger.WithField("path", path).Info("Wrote starter codebook")
		return cb, true, nil
	}

	cb, err = annotation.LoadCodebook(path)
	return cb, false, err
}

// CodeSheet writes the coding sheet for the collected accounts. It returns
// the sheet path and whether a starter codebook was created.
func (p *Pipeline) CodeSheet() (string, bool, error) {
	res, err := p.Accounts()
	if err != nil {
		return "", false, err
	}
	cb, created, err := p.Codebook(true)
	if err != nil {
		return "", false, err
	}

	err = p.store.Write(storage.SheetFile, func(w io.Writer) error {
		return annotation.WriteSheet(w, res.AccountList(), cb)
	})
	if err != nil {
		return "", created, err
	}
	return p.store.Path(storage.SheetFile), created, nil
}

// Merge joins the coded sheet onto the accounts and writes annotated.json
func (p *Pipeline) Merge() (*annotation.MergeResult, error) {
	res, err := p.Accounts()
	if err != nil {
		return nil, err
	}
	cb, _, err := p.Codebook(false)
	if err != nil {
		return nil, err
	}

	path := p.inputPath(p.cfg.Annotation.CodedFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("failed to open coded sheet: %w", err)
	}
	defer f.Close()

	labels, err := annotation.ReadLabels(f, cb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	merged := annotation.Merge(res.AccountList(), labels, cb)
	if err := p.store.SaveJSON(storage.AnnotatedFile, merged); err != nil {
		return nil, err
	}

	p.logger.InfoWithFields("Merged annotations", map[string]interface{}{
		"accounts":    len(merged.Accounts),
		"uncoded":     len(merged.Uncoded),
		"unknown_ids": len(merged.UnknownIDs),
		"excluded":    len(merged.Excluded),
	})
	return merged, nil
}

// Annotated loads the merged accounts
func (p *Pipeline) Annotated() (*annotation.MergeResult, error) {
	var res annotation.MergeResult
	if err := p.store.LoadJSON(storage.AnnotatedFile, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LinksResult loads links.json
func (p *Pipeline) LinksResult() (*links.Result, error) {
	var res links.Result
	if err := p.store.LoadJSON(storage.LinksFile, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats computes descriptive statistics and writes stats.json. The graph
// summary is included once links.json exists.
func (p *Pipeline) Stats() (*stats.Report, error) {
	merged, err := p.Annotated()
	if err != nil {
		return nil, err
	}
	cb, _, err := p.Codebook(false)
	if err != nil {
		return nil, err
	}

	var g *graph.Graph
	linkRes, err := p.LinksResult()
	switch {
	case err == nil:
		g, _, err = graph.Build(merged.Accounts, linkRes, graph.BuildOptions{})
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, storage.ErrMissingArtifact):
		return nil, err
	}

	pairs, err := p.cfg.Stats.CrosstabPairs()
	if err != nil {
		return nil, err
	}

	report, err := stats.BuildReport(merged.Accounts, cb, g, stats.ReportOptions{
		Metrics:   p.cfg.Stats.Metrics,
		GroupBy:   p.cfg.Stats.GroupBy,
		Crosstabs: pairs,
	})
	if err != nil {
		return nil, err
	}

	if err := p.store.SaveJSON(storage.StatsFile, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ErrCheckpointExists is returned when a links checkpoint is present and the
// run asked neither to resume nor to restart
var ErrCheckpointExists = errors.New("checkpoint exists - use --resume to continue or --force-restart to start fresh")

// LinksRun controls one links stage invocation
type LinksRun struct {
	// Resume continues from the checkpoint in the output directory
	Resume bool
	// ForceRestart backs up and discards an existing checkpoint
	ForceRestart bool
	// Preflight seeds the follower limiter from the rate limit status endpoint
	Preflight bool

	OnProgress  func(links.Progress)
	OnRateLimit func(time.Duration)
	// Logger overrides the pipeline logger for the collector, for example
	// to route records into a dashboard
	Logger logger.Logger
}

// Links collects follower edges between the annotated accounts and writes
// links.json. A partial result is written when the run stops early. An
// existing checkpoint is never replaced unless ForceRestart is set.
func (p *Pipeline) Links(ctx context.Context, run LinksRun) (*links.Result, error) {
	merged, err := p.Annotated()
	if err != nil {
		return nil, err
	}
	accounts := make([]twitter.Account, len(merged.Accounts))
	for i, a := range merged.Accounts {
		accounts[i] = a.Account
	}

	log := p.logger
	if run.Logger != nil {
		log = run.Logger
	}

	checkpoints, err := checkpoint.NewManagerAt(p.store.Path(storage.CheckpointFile), log)
	if err != nil {
		return nil, err
	}
	switch {
	case !checkpoints.Exists() || run.Resume:
	case run.ForceRestart:
		if err := checkpoints.BackupCheckpoint(); err != nil {
			return nil, err
		}
		if err := checkpoints.Delete(); err != nil {
			return nil, err
		}
	default:
		if info, _ := checkpoints.GetCheckpointInfo(); info != nil {
			log.WarnWithFields("Previous links run found", map[string]interface{}{
				"collected": info["collected"],
				"total":     info["total"],
				"edges":     info["edges"],
			})
		}
		return nil, ErrCheckpointExists
	}

	rl := p.cfg.RateLimit
	endpoint := ratelimit.NewEndpoint("followers", rl.FollowerRequests, rl.FollowerWindow, rl.MinInterval)
	if run.Preflight {
		p.preflight(ctx, endpoint, log)
	}
	retrier := retry.FromConfig(rl, rl.FollowerWindow, log)

	opts := links.OptionsFromConfig(p.cfg.Links)
	opts.Resume = run.Resume
	c := links.New(p.client, opts, endpoint, retrier, checkpoints, log)
	c.OnProgress = run.OnProgress
	c.OnRateLimit = run.OnRateLimit

	res, runErr := c.Run(ctx, accounts)
	if res != nil {
		if err := p.store.SaveJSON(storage.LinksFile, res); err != nil && runErr == nil {
			runErr = err
		}
	}
	return res, runErr
}

// preflight asks the API for the remaining follower quota. Failures are
// logged and ignored; the limiter then learns from the first response.
func (p *Pipeline) preflight(ctx context.Context, endpoint *ratelimit.Endpoint, log logger.Logger) {
	status, err := p.client.RateLimitStatus(ctx, "followers")
	if err != nil {
		log.WithError(err).Warn("Rate limit preflight failed")
		return
	}
	entry, ok := status.Resources["followers"]["/followers/ids"]
	if !ok {
		return
	}
	endpoint.Observe(entry.Remaining, time.Unix(entry.Reset, 0))
	log.InfoWithFields("Follower quota", map[string]interface{}{
		"remaining": entry.Remaining,
		"limit":     entry.Limit,
		"reset":     time.Unix(entry.Reset, 0).Format(time.TimeOnly),
	})
}

// ExportResult lists what Export wrote
type ExportResult struct {
	GEXF    string
	DOT     string
	SVG     string
	Nodes   int
	Edges   int
	Dropped int
	Dynamic bool
}

// Export builds the graph and writes GEXF, plus DOT and SVG when configured.
// Without links.json the graph has nodes only.
func (p *Pipeline) Export(ctx context.Context) (*ExportResult, error) {
	merged, err := p.Annotated()
	if err != nil {
		return nil, err
	}

	linkRes, err := p.LinksResult()
	if err != nil {
		if !errors.Is(err, storage.ErrMissingArtifact) {
			return nil, err
		}
		p.logger.Warn("No links collected yet, exporting nodes only")
		linkRes = nil
	}

	ec := p.cfg.Export
	g, dropped, err := graph.Build(merged.Accounts, linkRes, graph.BuildOptions{
		Dynamic:         ec.Dynamic,
		IncludeExternal: ec.IncludeExternal,
	})
	if err != nil {
		return nil, err
	}

	out := &ExportResult{
		GEXF:    p.store.Path(ec.File),
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Dropped: dropped,
		Dynamic: g.Dynamic(),
	}

	err = p.store.Write(ec.File, func(w io.Writer) error {
		return gexf.Write(w, g, gexf.Options{
			Creator:     "followgraph",
			Description: description(p.cfg.Search.Keywords),
		})
	})
	if err != nil {
		return nil, err
	}

	if !ec.DOT && !ec.SVG {
		return out, nil
	}

	dot := graph.ToDOT(g, graph.DOTOptions{ColorBy: ec.ColorBy})
	base := strings.TrimSuffix(ec.File, filepath.Ext(ec.File))
	if ec.DOT {
		if err := p.store.Write(base+".dot", writeString(dot)); err != nil {
			return nil, err
		}
		out.DOT = p.store.Path(base + ".dot")
	}
	if ec.SVG {
		svg, err := graph.RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		if err := p.store.Write(base+".svg", writeString(string(svg))); err != nil {
			return nil, err
		}
		out.SVG = p.store.Path(base + ".svg")
	}
	return out, nil
}

// Status describes what a study directory currently holds
type Status struct {
	Dir        string
	Artifacts  []string
	Checkpoint map[string]interface{}
}

// Status lists the artifacts on disk and summarizes any links checkpoint
func (p *Pipeline) Status() (*Status, error) {
	names, err := p.store.Artifacts()
	if err != nil {
		return nil, err
	}

	checkpoints, err := checkpoint.NewManagerAt(p.store.Path(storage.CheckpointFile), p.logger)
	if err != nil {
		return nil, err
	}
	info, err := checkpoints.GetCheckpointInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return &Status{
		Dir:        p.cfg.Output.BaseDirectory,
		Artifacts:  names,
		Checkpoint: info,
	}, nil
}

// inputPath resolves a user-supplied file: as given when it exists,
// otherwise inside the output directory.
func (p *Pipeline) inputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return p.store.Path(name)
}

func description(keywords []string) string {
	if len(keywords) == 0 {
		return "follower graph"
	}
	return "follower graph of accounts matching " + strings.Join(keywords, ", ")
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}
