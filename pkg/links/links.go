package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	"followgraph/pkg/checkpoint"
	"followgraph/pkg/config"
	errs "followgraph/pkg/errors"
	"followgraph/pkg/logger"
	"followgraph/pkg/ratelimit"
	"followgraph/pkg/retry"
	"followgraph/pkg/twitter"
)

// Edge is a directed follower link: Source follows Target
type Edge = checkpoint.Edge

// Status is the collection state of one account
type Status = checkpoint.Status

// FollowerSource is the follower ID API
type FollowerSource interface {
	FollowerIDs(ctx context.Context, userID, cursor string) (*twitter.IDPage, *twitter.RateInfo, error)
}

// Options controls a links run
type Options struct {
	// MaxPages caps follower pages per account; 0 means unlimited
	MaxPages int
	// KeepExternal keeps edges from followers outside the account set
	KeepExternal bool
	// RetryFailed re-attempts accounts a resumed run marked failed
	RetryFailed bool
	// Resume continues from an existing checkpoint
	Resume bool
	// LongWait is the pause length that triggers OnRateLimit
	LongWait time.Duration
}

// OptionsFromConfig derives run options from the configuration
func OptionsFromConfig(cfg config.LinksConfig) Options {
	return Options{
		MaxPages:     cfg.MaxPages,
		KeepExternal: cfg.KeepExternal,
		RetryFailed:  cfg.RetryFailed,
	}
}

// Progress is reported after every page and every finished account
type Progress struct {
	Done       int
	Total      int
	Current    string
	ScreenName string
	Page       int
	Edges      int
	Requests   int
}

// AccountResult is the final state of one account
type AccountResult struct {
	ID         string `json:"id"`
	ScreenName string `json:"screen_name"`
	checkpoint.AccountState
}

// Result is the outcome of a links run
type Result struct {
	RunID      string          `json:"run_id"`
	Edges      []Edge          `json:"edges"`
	Statuses   []AccountResult `json:"statuses"`
	External   []string        `json:"external"`
	Requests   int             `json:"requests"`
	Complete   bool            `json:"complete"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// StatusOf returns the status of id, or "" if unknown
func (r *Result) StatusOf(id string) Status {
	for _, s := range r.Statuses {
		if s.ID == id {
			return s.Status
		}
	}
	return ""
}

// Collector runs follower link collection
type Collector struct {
	client      FollowerSource
	endpoint    *ratelimit.Endpoint
	retrier     *retry.Retrier
	checkpoints *checkpoint.Manager
	opts        Options
	logger      logger.Logger

	// OnProgress is called after every page and finished account
	OnProgress func(Progress)
	// OnRateLimit is called before pauses of at least Options.LongWait
	OnRateLimit func(wait time.Duration)
}

// New creates a collector. checkpoints may be nil to run without resumption;
// endpoint and retrier may be nil for unpaced, single-attempt requests.
func New(client FollowerSource, opts Options, endpoint *ratelimit.Endpoint, retrier *retry.Retrier, checkpoints *checkpoint.Manager, log logger.Logger) *Collector {
	if endpoint == nil {
		endpoint = ratelimit.NewEndpoint("followers", 0, 0, 0)
	}
	if retrier == nil {
		retrier = retry.NewRetrier(&retry.Config{MaxAttempts: 1})
	}
	if opts.LongWait <= 0 {
		opts.LongWait = time.Minute
	}

	return &Collector{
		client:      client,
		endpoint:    endpoint,
		retrier:     retrier,
		checkpoints: checkpoints,
		opts:        opts,
		logger:      logger.OrDefault(log).WithField("component", "links"),
	}
}

// run holds the mutable state of one Run call
type run struct {
	cp       *checkpoint.Checkpoint
	inSet    map[string]bool
	edges    map[Edge]bool
	external map[string]bool
}

// Run collects follower edges for accounts. When ctx is cancelled the
// checkpoint is saved and the partial result is returned with ctx's error.
func (c *Collector) Run(ctx context.Context, accounts []twitter.Account) (*Result, error) {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	r, err := c.prepare(ids)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	logger.LogComponentStart(c.logger, "links", map[string]interface{}{
		"run_id":        r.cp.RunID,
		"accounts":      len(accounts),
		"done":          r.cp.Done(),
		"max_pages":     c.opts.MaxPages,
		"keep_external": c.opts.KeepExternal,
	})

	var runErr error
	for _, a := range accounts {
		if err := c.collectAccount(ctx, r, a); err != nil {
			runErr = err
			break
		}
	}

	if runErr == nil {
		r.cp.Completed = true
		r.cp.Current, r.cp.Cursor = "", ""
	}
	if err := c.save(r.cp); err != nil && runErr == nil {
		runErr = err
	}

	result := c.result(r, accounts, startedAt)
	if runErr != nil {
		logger.LogComponentStop(c.logger, "links", runErr.Error())
		return result, runErr
	}

	counts := r.cp.Counts()
	c.logger.InfoWithFields("links collected", map[string]interface{}{
		"edges":     len(result.Edges),
		"collected": counts[checkpoint.StatusCollected],
		"skipped":   counts[checkpoint.StatusSkipped],
		"failed":    counts[checkpoint.StatusFailed],
		"requests":  r.cp.Requests,
	})
	return result, nil
}

// prepare loads or creates the checkpoint and rebuilds lookup sets from it
func (c *Collector) prepare(ids []string) (*run, error) {
	var cp *checkpoint.Checkpoint
	if c.opts.Resume && c.checkpoints != nil {
		loaded, err := c.checkpoints.LoadFor(ids)
		if err != nil {
			return nil, err
		}
		cp = loaded
	}
	if cp == nil {
		cp = checkpoint.New(ids)
	} else if c.opts.RetryFailed {
		for _, st := range cp.Accounts {
			if st.Status == checkpoint.StatusFailed {
				st.Status = checkpoint.StatusPending
				st.Error = ""
			}
		}
	}
	cp.Completed = false

	r := &run{
		cp:       cp,
		inSet:    make(map[string]bool, len(ids)),
		edges:    make(map[Edge]bool, len(cp.Edges)),
		external: make(map[string]bool, len(cp.External)),
	}
	for _, id := range ids {
		r.inSet[id] = true
	}
	for _, e := range cp.Edges {
		r.edges[e] = true
	}
	for _, id := range cp.External {
		r.external[id] = true
	}
	return r, nil
}

// collectAccount pages through one account's followers. It returns an error
// only when the whole run must stop.
func (c *Collector) collectAccount(ctx context.Context, r *run, a twitter.Account) error {
	st := r.cp.State(a.ID)
	if st.Status != checkpoint.StatusPending {
		return nil
	}
	log := c.logger.WithFields(map[string]interface{}{
		"account":     a.ID,
		"screen_name": a.ScreenName,
	})

	if a.Protected {
		st.Status = checkpoint.StatusSkipped
		st.Error = "protected account"
		log.Info("skipping protected account")
		return c.finishAccount(r, a)
	}

	cursor := twitter.StartCursor
	if r.cp.Current == a.ID && r.cp.Cursor != "" {
		cursor = r.cp.Cursor
		log.InfoWithFields("resuming account", map[string]interface{}{"cursor": cursor, "pages": st.Pages})
	} else {
		// A fresh start must not double count earlier partial attempts
		st.Pages, st.Followers, st.InSet, st.Truncated = 0, 0, 0, false
	}
	r.cp.Current = a.ID
	st.Attempts++

	for {
		if c.opts.MaxPages > 0 && st.Pages >= c.opts.MaxPages {
			st.Truncated = true
			st.Status = checkpoint.StatusCollected
			log.InfoWithFields("page cap reached", map[string]interface{}{"pages": st.Pages})
			break
		}

		page, err := c.fetch(ctx, r, a.ID, cursor)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				// Keep the cursor so the next run repeats only this page
				r.cp.Cursor = cursor
				if saveErr := c.save(r.cp); saveErr != nil {
					log.WithError(saveErr).Error("failed to save checkpoint")
				}
				return ctxErr
			}
			if errors.Is(err, errFatal) {
				return err
			}

			st.Error = err.Error()
			if errs.IsPermanent(err) {
				st.Status = checkpoint.StatusSkipped
				log.WarnWithFields("account skipped", map[string]interface{}{"error": st.Error})
			} else {
				st.Status = checkpoint.StatusFailed
				log.ErrorWithFields("account failed", map[string]interface{}{"error": st.Error})
			}
			break
		}

		c.addFollowers(r, st, a.ID, page.IDs)
		st.Pages++

		if page.Last() {
			st.Status = checkpoint.StatusCollected
			break
		}
		cursor = page.NextCursor
		r.cp.Cursor = cursor

		if err := c.save(r.cp); err != nil {
			return err
		}
		c.report(r, a, st.Pages)
	}

	return c.finishAccount(r, a)
}

// errFatal marks errors that stop the run instead of failing one account
var errFatal = errors.New("fatal")

// fetch requests one page through the limiter and retry policy
func (c *Collector) fetch(ctx context.Context, r *run, id, cursor string) (*twitter.IDPage, error) {
	retrier := c.retrier.WithContext(ctx).WithOnWait(func(err error, d time.Duration) {
		c.endpoint.Exhausted(time.Now().Add(d))
		c.rateLimited(d)
	})

	var page *twitter.IDPage
	err := retrier.Do(func() error {
		if d := c.endpoint.Delay(); d > time.Second {
			c.rateLimited(d)
		}
		if err := c.endpoint.Wait(ctx); err != nil {
			return err
		}

		r.cp.Requests++
		p, rate, err := c.client.FollowerIDs(ctx, id, cursor)
		if rate != nil {
			c.endpoint.Observe(rate.Remaining, rate.Reset)
		}
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: empty response for %s", errFatal, id)
	}
	return page, nil
}

func (c *Collector) rateLimited(d time.Duration) {
	logger.LogRateLimit(c.logger, c.endpoint.Name, d)
	if d >= c.opts.LongWait && c.OnRateLimit != nil {
		c.OnRateLimit(d)
	}
}

// addFollowers records edges follower -> target, dropping self-loops and
// duplicates
func (c *Collector) addFollowers(r *run, st *checkpoint.AccountState, target string, followers []string) {
	for _, f := range followers {
		st.Followers++
		if f == target || f == "" {
			continue
		}

		if r.inSet[f] {
			st.InSet++
		} else {
			if !c.opts.KeepExternal {
				continue
			}
			if !r.external[f] {
				r.external[f] = true
				r.cp.External = append(r.cp.External, f)
			}
		}

		e := Edge{Source: f, Target: target}
		if r.edges[e] {
			continue
		}
		r.edges[e] = true
		r.cp.Edges = append(r.cp.Edges, e)
	}
}

func (c *Collector) finishAccount(r *run, a twitter.Account) error {
	st := r.cp.State(a.ID)
	r.cp.Current, r.cp.Cursor = "", ""

	c.logger.InfoWithFields("account finished", map[string]interface{}{
		"account":     a.ID,
		"screen_name": a.ScreenName,
		"status":      string(st.Status),
		"pages":       st.Pages,
		"followers":   st.Followers,
		"in_set":      st.InSet,
	})

	if err := c.save(r.cp); err != nil {
		return err
	}
	c.report(r, a, st.Pages)
	logger.LogProgress(c.logger, "links", r.cp.Done(), len(r.inSet))
	return nil
}

func (c *Collector) report(r *run, a twitter.Account, page int) {
	if c.OnProgress == nil {
		return
	}
	c.OnProgress(Progress{
		Done:       r.cp.Done(),
		Total:      len(r.inSet),
		Current:    a.ID,
		ScreenName: a.ScreenName,
		Page:       page,
		Edges:      len(r.cp.Edges),
		Requests:   r.cp.Requests,
	})
}

func (c *Collector) save(cp *checkpoint.Checkpoint) error {
	if c.checkpoints == nil {
		return nil
	}
	if err := c.checkpoints.Save(cp); err != nil {
		return fmt.Errorf("%w: %v", errFatal, err)
	}
	return nil
}

func (c *Collector) result(r *run, accounts []twitter.Account, startedAt time.Time) *Result {
	res := &Result{
		RunID:      r.cp.RunID,
		Edges:      append([]Edge(nil), r.cp.Edges...),
		External:   append([]string(nil), r.cp.External...),
		Requests:   r.cp.Requests,
		Complete:   r.cp.Completed,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Statuses:   make([]AccountResult, 0, len(accounts)),
	}
	for _, a := range accounts {
		res.Statuses = append(res.Statuses, AccountResult{
			ID:           a.ID,
			ScreenName:   a.ScreenName,
			AccountState: *r.cp.State(a.ID),
		})
	}
	return res
}
