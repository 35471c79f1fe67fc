package links

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/checkpoint"
	"followgraph/pkg/config"
	"followgraph/pkg/errors"
	"followgraph/pkg/logger"
	"followgraph/pkg/ratelimit"
	"followgraph/pkg/retry"
	"followgraph/pkg/twitter"
)

type key struct{ id, cursor string }

// fakeSource serves scripted follower pages. Errors queued for a key are
// returned before the page.
type fakeSource struct {
	pages map[key]*twitter.IDPage
	errs  map[key][]error
	calls []key
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[key]*twitter.IDPage{}, errs: map[key][]error{}}
}

// followers scripts the pages of id; each argument is one page
func (f *fakeSource) followers(id string, pages ...[]string) {
	cursor := twitter.StartCursor
	for i, ids := range pages {
		next := twitter.EndCursor
		if i < len(pages)-1 {
			next = id + "-p" + string(rune('1'+i))
		}
		f.pages[key{id, cursor}] = &twitter.IDPage{IDs: ids, NextCursor: next}
		cursor = next
	}
}

func (f *fakeSource) fail(id, cursor string, errs ...error) {
	f.errs[key{id, cursor}] = append(f.errs[key{id, cursor}], errs...)
}

func (f *fakeSource) FollowerIDs(ctx context.Context, id, cursor string) (*twitter.IDPage, *twitter.RateInfo, error) {
	k := key{id, cursor}
	f.calls = append(f.calls, k)
	if queue := f.errs[k]; len(queue) > 0 {
		f.errs[k] = queue[1:]
		return nil, nil, queue[0]
	}
	page, ok := f.pages[k]
	if !ok {
		return &twitter.IDPage{NextCursor: twitter.EndCursor}, nil, nil
	}
	return page, &twitter.RateInfo{Limit: 15, Remaining: 14, Reset: time.Now().Add(15 * time.Minute)}, nil
}

func (f *fakeSource) callsFor(id string) int {
	n := 0
	for _, c := range f.calls {
		if c.id == id {
			n++
		}
	}
	return n
}

func accounts(ids ...string) []twitter.Account {
	out := make([]twitter.Account, len(ids))
	for i, id := range ids {
		out[i] = twitter.Account{ID: id, ScreenName: "user" + id}
	}
	return out
}

func fastRetrier(maxAttempts int) *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
		WaitIf:      retry.RateLimitWait(10 * time.Millisecond),
	})
}

func rateLimited(resetIn time.Duration) error {
	e := errors.FromStatusCode(429, "Rate limit exceeded")
	e.ResetAt = time.Now().Add(resetIn)
	return e
}

func newManager(t *testing.T) *checkpoint.Manager {
	t.Helper()
	m, err := checkpoint.NewManagerAt(filepath.Join(t.TempDir(), "links.checkpoint.json"), logger.NewTestLogger())
	require.NoError(t, err)
	return m
}

func TestRunCollectsInSetEdges(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B", "X", "A"}, []string{"C", "B"})
	src.followers("B", []string{"A", "Y"})
	src.followers("C")

	c := New(src, Options{}, nil, nil, nil, logger.NewTestLogger())
	res, err := c.Run(context.Background(), accounts("A", "B", "C"))
	require.NoError(t, err)

	assert.Equal(t, []Edge{
		{Source: "B", Target: "A"},
		{Source: "C", Target: "A"},
		{Source: "A", Target: "B"},
	}, res.Edges, "self-loop, duplicates and externals dropped")
	assert.Empty(t, res.External)
	assert.True(t, res.Complete)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Statuses, 3)
	a := res.Statuses[0]
	assert.Equal(t, checkpoint.StatusCollected, a.Status)
	assert.Equal(t, 2, a.Pages)
	assert.Equal(t, 5, a.Followers)
	assert.Equal(t, 3, a.InSet)
	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("C"))
	assert.Equal(t, 4, res.Requests)
}

func TestRunKeepExternal(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"X", "B", "X"})
	src.followers("B", []string{"X", "Y"})

	c := New(src, Options{KeepExternal: true}, nil, nil, nil, nil)
	res, err := c.Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)

	assert.Len(t, res.Edges, 4)
	assert.Equal(t, []string{"X", "Y"}, res.External)
}

func TestRateLimitDoesNotConsumeAttempts(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B"})
	src.fail("A", twitter.StartCursor, rateLimited(-time.Second), rateLimited(-time.Second), rateLimited(-time.Second))

	c := New(src, Options{}, nil, fastRetrier(1), nil, logger.NewTestLogger())
	res, err := c.Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)

	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("A"))
	assert.Equal(t, 4, src.callsFor("A"), "same page retried after each pause")
	assert.Equal(t, []Edge{{Source: "B", Target: "A"}}, res.Edges)
}

func TestRateLimitWaitsForReset(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B"})
	src.fail("A", twitter.StartCursor, rateLimited(60*time.Millisecond))

	var waits []time.Duration
	c := New(src, Options{LongWait: 20 * time.Millisecond}, ratelimit.NewEndpoint("followers", 15, time.Minute, 0), fastRetrier(1), nil, logger.NewTestLogger())
	c.OnRateLimit = func(d time.Duration) { waits = append(waits, d) }

	start := time.Now()
	res, err := c.Run(context.Background(), accounts("A"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("A"))
	assert.NotEmpty(t, waits)
}

func TestTransientErrorsMarkFailed(t *testing.T) {
	src := newFakeSource()
	src.fail("A", twitter.StartCursor,
		errors.FromStatusCode(503, "over capacity"),
		errors.FromStatusCode(503, "over capacity"),
		errors.FromStatusCode(503, "over capacity"))
	src.followers("B", []string{"A"})

	tl := logger.NewTestLogger()
	c := New(src, Options{}, nil, fastRetrier(3), nil, tl)
	res, err := c.Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)

	assert.Equal(t, 3, src.callsFor("A"))
	assert.Equal(t, checkpoint.StatusFailed, res.StatusOf("A"))
	assert.Contains(t, res.Statuses[0].Error, "over capacity")
	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("B"), "run moves on")
	assert.True(t, tl.HasMessage("account failed"))
}

func TestPermanentErrorsMarkSkipped(t *testing.T) {
	src := newFakeSource()
	src.fail("A", twitter.StartCursor, errors.FromStatusCode(401, "Not authorized."))
	src.fail("B", twitter.StartCursor, errors.FromStatusCode(404, "gone"))

	c := New(src, Options{}, nil, fastRetrier(3), nil, nil)
	res, err := c.Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)

	assert.Equal(t, 1, src.callsFor("A"), "no retry for protected accounts")
	assert.Equal(t, checkpoint.StatusSkipped, res.StatusOf("A"))
	assert.Equal(t, checkpoint.StatusSkipped, res.StatusOf("B"))
}

func TestProtectedAccountsSkippedWithoutRequest(t *testing.T) {
	src := newFakeSource()
	accts := accounts("A")
	accts[0].Protected = true

	res, err := New(src, Options{}, nil, nil, nil, nil).Run(context.Background(), accts)
	require.NoError(t, err)
	assert.Empty(t, src.calls)
	assert.Equal(t, checkpoint.StatusSkipped, res.StatusOf("A"))
	assert.Equal(t, "protected account", res.Statuses[0].Error)
}

func TestMaxPages(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B"}, []string{"C"}, []string{"D"})

	c := New(src, Options{MaxPages: 2}, nil, nil, nil, nil)
	res, err := c.Run(context.Background(), accounts("A", "B", "C", "D"))
	require.NoError(t, err)

	assert.Equal(t, 2, src.callsFor("A"))
	assert.True(t, res.Statuses[0].Truncated)
	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("A"))
	assert.Len(t, res.Edges, 2)
}

func TestResumeAfterCancel(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B"}, []string{"C"})
	src.followers("B", []string{"A"})
	src.followers("C", []string{"A", "B"})
	mgr := newManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(src, Options{}, nil, nil, mgr, logger.NewTestLogger())
	c.OnProgress = func(p Progress) {
		// stop after the first page of A has been checkpointed
		if p.Current == "A" && p.Page == 1 {
			cancel()
		}
	}

	res, err := c.Run(ctx, accounts("A", "B", "C"))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Complete)
	assert.Equal(t, []Edge{{Source: "B", Target: "A"}}, res.Edges)

	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, "A", cp.Current)
	assert.Equal(t, "A-p1", cp.Cursor)

	src.calls = nil
	resumed := New(src, Options{Resume: true}, nil, nil, mgr, logger.NewTestLogger())
	res, err = resumed.Run(context.Background(), accounts("A", "B", "C"))
	require.NoError(t, err)

	assert.Equal(t, key{"A", "A-p1"}, src.calls[0], "resumes at the saved cursor")
	assert.Equal(t, 1, src.callsFor("A"))
	assert.Equal(t, cp.RunID, res.RunID)
	assert.True(t, res.Complete)
	assert.Equal(t, 2, res.Statuses[0].Pages)
	assert.Len(t, res.Edges, 5)
}

func TestResumeSkipsFinishedAndRetriesFailed(t *testing.T) {
	src := newFakeSource()
	src.fail("A", twitter.StartCursor, errors.FromStatusCode(500, "boom"))
	src.followers("A", []string{"B"})
	src.followers("B", []string{"A"})
	mgr := newManager(t)

	res, err := New(src, Options{}, nil, nil, mgr, nil).Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)
	require.Equal(t, checkpoint.StatusFailed, res.StatusOf("A"))

	src.calls = nil
	res, err = New(src, Options{Resume: true}, nil, nil, mgr, nil).Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)
	assert.Empty(t, src.calls, "nothing pending without retry_failed")
	assert.Equal(t, checkpoint.StatusFailed, res.StatusOf("A"))

	res, err = New(src, Options{Resume: true, RetryFailed: true}, nil, nil, mgr, nil).Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, []key{{"A", twitter.StartCursor}}, src.calls)
	assert.Equal(t, checkpoint.StatusCollected, res.StatusOf("A"))
	assert.Equal(t, 2, res.Statuses[0].Attempts)
	assert.Len(t, res.Edges, 2)
}

func TestResumeRejectsDifferentAccounts(t *testing.T) {
	src := newFakeSource()
	mgr := newManager(t)
	_, err := New(src, Options{}, nil, nil, mgr, nil).Run(context.Background(), accounts("A"))
	require.NoError(t, err)

	_, err = New(src, Options{Resume: true}, nil, nil, mgr, nil).Run(context.Background(), accounts("A", "B"))
	assert.ErrorIs(t, err, checkpoint.ErrFingerprintMismatch)
}

func TestProgressReported(t *testing.T) {
	src := newFakeSource()
	src.followers("A", []string{"B"}, []string{"B"})
	src.followers("B")

	var seen []Progress
	c := New(src, Options{}, nil, nil, nil, nil)
	c.OnProgress = func(p Progress) { seen = append(seen, p) }

	_, err := c.Run(context.Background(), accounts("A", "B"))
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	assert.Equal(t, 2, last.Done)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, 1, last.Edges)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.LinksConfig{MaxPages: 3, KeepExternal: true, RetryFailed: true})
	assert.Equal(t, 3, opts.MaxPages)
	assert.True(t, opts.KeepExternal)
	assert.True(t, opts.RetryFailed)
	assert.False(t, opts.Resume)
}
