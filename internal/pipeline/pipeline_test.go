package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/checkpoint"
	"followgraph/pkg/config"
	"followgraph/pkg/links"
	"followgraph/pkg/logger"
	"followgraph/pkg/storage"
	"followgraph/pkg/twitter"
)

const searchPage = `[
	{"id_str": "1", "screen_name": "alice", "name": "Alice", "description": "openscience advocate", "followers_count": 10, "friends_count": 5, "statuses_count": 100, "created_at": "Wed Oct 10 20:19:24 +0000 2018"},
	{"id_str": "2", "screen_name": "bob", "name": "Bob", "description": "OpenScience lab", "followers_count": 30, "friends_count": 7, "statuses_count": 50, "created_at": "Thu Jan 03 10:00:00 +0000 2019"},
	{"id_str": "3", "screen_name": "carol", "name": "Carol", "description": "openscience memes", "followers_count": 2, "friends_count": 1, "statuses_count": 3, "created_at": "Fri Mar 01 08:00:00 +0000 2019"},
	{"id_str": "4", "screen_name": "dave", "name": "Dave", "description": "gardening", "followers_count": 1, "friends_count": 1, "statuses_count": 1, "created_at": "Fri Mar 01 08:00:00 +0000 2019"}
]`

// mockAPI serves search, follower and rate limit status endpoints
type mockAPI struct {
	server        *httptest.Server
	followerCalls atomic.Int32
	statusCalls   atomic.Int32
}

func newMockAPI(t *testing.T) *mockAPI {
	t.Helper()
	api := &mockAPI{}
	followers := map[string]string{
		"1": `{"ids": ["2", "99"], "next_cursor_str": "0"}`,
		"2": `{"ids": ["1"], "next_cursor_str": "0"}`,
	}

	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-limit", "15")
		w.Header().Set("x-rate-limit-remaining", "14")
		w.Header().Set("x-rate-limit-reset", fmt.Sprint(time.Now().Add(15*time.Minute).Unix()))

		switch r.URL.Path {
		case twitter.SearchUsersEndpoint:
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, searchPage)
				return
			}
			fmt.Fprint(w, `[]`)
		case twitter.FollowerIDsEndpoint:
			api.followerCalls.Add(1)
			body, ok := followers[r.URL.Query().Get("user_id")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"errors": [{"code": 34, "message": "Sorry, that page does not exist."}]}`)
				return
			}
			fmt.Fprint(w, body)
		case twitter.RateLimitStatusEndpoint:
			api.statusCalls.Add(1)
			fmt.Fprintf(w, `{"resources": {"followers": {"/followers/ids": {"limit": 15, "remaining": 15, "reset": %d}}}}`,
				time.Now().Add(15*time.Minute).Unix())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.server.Close)
	return api
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.BearerToken = "test-token"
	cfg.API.Timeout = 5 * time.Second
	cfg.Search.Keywords = []string{"#openscience"}
	cfg.Search.Pages = 3
	cfg.RateLimit.MinInterval = 0
	cfg.RateLimit.RetryDelay = time.Millisecond
	cfg.RateLimit.MaxRetryDelay = 5 * time.Millisecond
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Annotation.Codebook = filepath.Join(cfg.Output.BaseDirectory, "codebook.yaml")
	cfg.Annotation.CodedFile = filepath.Join(cfg.Output.BaseDirectory, "coded.csv")
	cfg.Export.Dynamic = true
	return cfg
}

func writeCoded(t *testing.T, cfg *config.Config) {
	t.Helper()
	coded := strings.Join([]string{
		"id,screen_name,relevant,actor_type",
		"1,alice,yes,individual",
		"2,bob,Yes,organization",
		"3,carol,no,other",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(cfg.Annotation.CodedFile, []byte(coded), 0644))
}

func newPipeline(t *testing.T) (*Pipeline, *config.Config, *mockAPI) {
	t.Helper()
	api := newMockAPI(t)
	cfg := testConfig(t, api.server.URL)
	p, err := New(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	return p, cfg, api
}

func TestPipelineEndToEnd(t *testing.T) {
	p, cfg, api := newPipeline(t)
	ctx := context.Background()

	res, err := p.Search(ctx)
	require.NoError(t, err)
	require.Len(t, res.Accounts, 3)
	assert.Len(t, res.Rejected, 1)
	assert.True(t, p.Store().Exists(storage.AccountsFile))

	sheet, created, err := p.CodeSheet()
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, sheet)
	assert.FileExists(t, cfg.Annotation.Codebook)

	writeCoded(t, cfg)
	merged, err := p.Merge()
	require.NoError(t, err)
	require.Len(t, merged.Accounts, 2)
	require.Len(t, merged.Excluded, 1)
	assert.Equal(t, "3", merged.Excluded[0].ID)
	assert.Equal(t, "organization", merged.Accounts[1].Codes["actor_type"])

	var progress []links.Progress
	linkRes, err := p.Links(ctx, LinksRun{
		Preflight:  true,
		OnProgress: func(pr links.Progress) { progress = append(progress, pr) },
	})
	require.NoError(t, err)
	assert.True(t, linkRes.Complete)
	assert.Len(t, linkRes.Edges, 2)
	assert.EqualValues(t, 2, api.followerCalls.Load())
	assert.EqualValues(t, 1, api.statusCalls.Load())
	assert.NotEmpty(t, progress)
	for _, s := range linkRes.Statuses {
		assert.Equal(t, checkpoint.StatusCollected, s.Status, s.ScreenName)
	}

	report, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Accounts)
	require.NotNil(t, report.Graph)
	assert.Equal(t, 2, report.Graph.Nodes)
	assert.Equal(t, 2, report.Graph.Edges)
	assert.True(t, p.Store().Exists(storage.StatsFile))

	out, err := p.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Nodes)
	assert.Equal(t, 2, out.Edges)
	assert.True(t, out.Dynamic)
	assert.Empty(t, out.DOT)

	data, err := os.ReadFile(out.GEXF)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `mode="dynamic"`)
	assert.Contains(t, doc, `start="2018-10-10"`)
	assert.Contains(t, doc, "<creator>followgraph</creator>")
	assert.Contains(t, doc, "#openscience")
}

func TestStageMissingInput(t *testing.T) {
	p, _, _ := newPipeline(t)

	_, _, err := p.CodeSheet()
	assert.ErrorIs(t, err, storage.ErrMissingArtifact)

	_, err = p.Stats()
	assert.ErrorIs(t, err, storage.ErrMissingArtifact)

	_, err = p.Links(context.Background(), LinksRun{})
	assert.ErrorIs(t, err, storage.ErrMissingArtifact)
}

func TestMergeRequiresCodebook(t *testing.T) {
	p, _, _ := newPipeline(t)
	_, err := p.Search(context.Background())
	require.NoError(t, err)

	_, err = p.Merge()
	assert.ErrorIs(t, err, storage.ErrMissingArtifact)
}

func TestStatsWithoutLinks(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	_, err := p.Search(context.Background())
	require.NoError(t, err)
	_, _, err = p.CodeSheet()
	require.NoError(t, err)
	writeCoded(t, cfg)
	_, err = p.Merge()
	require.NoError(t, err)

	cfg.Stats.Crosstabs = []string{"relevant:actor_type"}
	report, err := p.Stats()
	require.NoError(t, err)
	assert.Nil(t, report.Graph)
	assert.Len(t, report.Crosstabs, 1)
	assert.Contains(t, report.Frequencies, "actor_type")
}

func TestExportNodesOnlyWithDOT(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	_, err := p.Search(context.Background())
	require.NoError(t, err)
	_, _, err = p.CodeSheet()
	require.NoError(t, err)
	writeCoded(t, cfg)
	_, err = p.Merge()
	require.NoError(t, err)

	cfg.Export.DOT = true
	out, err := p.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Nodes)
	assert.Zero(t, out.Edges)
	assert.Equal(t, p.Store().Path("graph.dot"), out.DOT)

	dot, err := os.ReadFile(out.DOT)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph")
}

func TestLinksForceRestartBacksUpCheckpoint(t *testing.T) {
	p, cfg, api := newPipeline(t)
	ctx := context.Background()
	_, err := p.Search(ctx)
	require.NoError(t, err)
	_, _, err = p.CodeSheet()
	require.NoError(t, err)
	writeCoded(t, cfg)
	_, err = p.Merge()
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	_, err = p.Links(cancelled, LinksRun{
		OnProgress: func(links.Progress) { cancel() },
	})
	require.Error(t, err)
	require.True(t, p.Store().Exists(storage.CheckpointFile))
	assert.True(t, p.Store().Exists(storage.LinksFile))

	calls := api.followerCalls.Load()
	res, err := p.Links(ctx, LinksRun{ForceRestart: true})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.EqualValues(t, calls+2, api.followerCalls.Load())

	backups, err := filepath.Glob(p.Store().Path(storage.CheckpointFile) + ".*")
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
}

func TestLinksRefusesToReplaceCheckpoint(t *testing.T) {
	p, cfg, api := newPipeline(t)
	ctx := context.Background()
	_, err := p.Search(ctx)
	require.NoError(t, err)
	_, _, err = p.CodeSheet()
	require.NoError(t, err)
	writeCoded(t, cfg)
	_, err = p.Merge()
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	_, err = p.Links(cancelled, LinksRun{
		OnProgress: func(links.Progress) { cancel() },
	})
	require.Error(t, err)

	path := p.Store().Path(storage.CheckpointFile)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	calls := api.followerCalls.Load()

	_, err = p.Links(ctx, LinksRun{})
	require.ErrorIs(t, err, ErrCheckpointExists)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "checkpoint untouched")
	assert.Equal(t, calls, api.followerCalls.Load(), "no requests sent")

	res, err := p.Links(ctx, LinksRun{Resume: true})
	require.NoError(t, err)
	assert.True(t, res.Complete)
}

func TestStatus(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	ctx := context.Background()

	st, err := p.Status()
	require.NoError(t, err)
	assert.Empty(t, st.Artifacts)
	assert.Nil(t, st.Checkpoint)

	_, err = p.Search(ctx)
	require.NoError(t, err)
	_, _, err = p.CodeSheet()
	require.NoError(t, err)
	writeCoded(t, cfg)
	_, err = p.Merge()
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	_, err = p.Links(cancelled, LinksRun{
		OnProgress: func(links.Progress) { cancel() },
	})
	require.Error(t, err)

	st, err = p.Status()
	require.NoError(t, err)
	assert.Contains(t, st.Artifacts, storage.AccountsFile)
	assert.Contains(t, st.Artifacts, storage.CheckpointFile)
	require.NotNil(t, st.Checkpoint)
	assert.Equal(t, 2, st.Checkpoint["total"])
	assert.Equal(t, false, st.Checkpoint["completed"])
}

func TestInputPathPrefersExistingFile(t *testing.T) {
	p, _, _ := newPipeline(t)

	assert.Equal(t, p.Store().Path("missing.csv"), p.inputPath("missing.csv"))

	abs := filepath.Join(t.TempDir(), "x.yaml")
	assert.Equal(t, abs, p.inputPath(abs))
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "follower graph", description(nil))
	assert.Equal(t, "follower graph of accounts matching a, b", description([]string{"a", "b"}))
}
