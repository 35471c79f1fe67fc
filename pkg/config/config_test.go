package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.twitter.com", cfg.API.BaseURL)
	assert.Equal(t, 15, cfg.RateLimit.FollowerRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.FollowerWindow)
	assert.Equal(t, 20, cfg.Search.PerPage)
	assert.Equal(t, []string{"screen_name", "name", "description"}, cfg.Search.MatchFields)
	assert.Equal(t, "graph.gexf", cfg.Export.File)
	assert.True(t, cfg.Export.Dynamic)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLLOWGRAPH_BEARER_TOKEN", "token-123")
	t.Setenv("FOLLOWGRAPH_KEYWORDS", "#opendata, open data ,opendata")
	t.Setenv("FOLLOWGRAPH_FOLLOWER_REQUESTS", "30")
	t.Setenv("FOLLOWGRAPH_FOLLOWER_WINDOW", "5m")
	t.Setenv("FOLLOWGRAPH_OUTPUT_DIR", "/tmp/followgraph")
	t.Setenv("FOLLOWGRAPH_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "token-123", cfg.API.BearerToken)
	assert.Equal(t, []string{"#opendata", "open data", "opendata"}, cfg.Search.Keywords)
	assert.Equal(t, 30, cfg.RateLimit.FollowerRequests)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.FollowerWindow)
	assert.Equal(t, "/tmp/followgraph", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("FOLLOWGRAPH_FOLLOWER_REQUESTS", "many")
	t.Setenv("FOLLOWGRAPH_FOLLOWER_WINDOW", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOLLOWGRAPH_FOLLOWER_REQUESTS")
	assert.Contains(t, err.Error(), "FOLLOWGRAPH_FOLLOWER_WINDOW")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		content := `
search:
  keywords: ["#climate", "climate action"]
  pages: 3
rate_limit:
  follower_window: 1m
links:
  keep_external: true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(path))

		assert.Equal(t, []string{"#climate", "climate action"}, cfg.Search.Keywords)
		assert.Equal(t, 3, cfg.Search.Pages)
		assert.Equal(t, time.Minute, cfg.RateLimit.FollowerWindow)
		assert.True(t, cfg.Links.KeepExternal)
		// Untouched values keep their defaults
		assert.Equal(t, 20, cfg.Search.PerPage)
	})

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(dir, "config.toml")
		content := `
[search]
keywords = ["#climate"]
per_page = 10

[export]
dynamic = false
file = "climate.gexf"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(path))

		assert.Equal(t, []string{"#climate"}, cfg.Search.Keywords)
		assert.Equal(t, 10, cfg.Search.PerPage)
		assert.False(t, cfg.Export.Dynamic)
		assert.Equal(t, "climate.gexf", cfg.Export.File)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Error(t, cfg.LoadFromFile(filepath.Join(dir, "nope.yaml")))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0644))

		cfg := DefaultConfig()
		assert.Error(t, cfg.LoadFromFile(path))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"per page too large", func(c *Config) { c.Search.PerPage = 50 }, "per_page"},
		{"unknown match field", func(c *Config) { c.Search.MatchFields = []string{"bio"} }, "unknown match field"},
		{"zero window", func(c *Config) { c.RateLimit.FollowerWindow = 0 }, "windows must be positive"},
		{"negative retries", func(c *Config) { c.RateLimit.MaxRetries = -1 }, "max retries"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"no output", func(c *Config) { c.Output.BaseDirectory = "" }, "output directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Pages = 0
	cfg.Export.File = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search pages")
	assert.Contains(t, err.Error(), "export file")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"keywords":      []string{"#rust"},
		"output":        "./out",
		"max-pages":     2,
		"keep-external": true,
		"dynamic":       false,
		"log-level":     "warn",
	})

	assert.Equal(t, []string{"#rust"}, cfg.Search.Keywords)
	assert.Equal(t, "./out", cfg.Output.BaseDirectory)
	assert.Equal(t, 2, cfg.Links.MaxPages)
	assert.True(t, cfg.Links.KeepExternal)
	assert.False(t, cfg.Export.Dynamic)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEffectiveFilterTerms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Keywords = []string{"#OpenData", "@opendata_org", " ", "open data"}
	assert.Equal(t, []string{"OpenData", "opendata_org", "open data"}, cfg.EffectiveFilterTerms())

	cfg.Search.FilterTerms = []string{"civic"}
	assert.Equal(t, []string{"civic"}, cfg.EffectiveFilterTerms())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Search.Keywords = []string{"#maps"}
	cfg.Links.MaxPages = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"#maps"}, loaded.Search.Keywords)
	assert.Equal(t, 4, loaded.Links.MaxPages)
}

func TestCrosstabPairs(t *testing.T) {
	s := StatsConfig{Crosstabs: []string{"relevant:actor_type", " lang : relevant "}}
	pairs, err := s.CrosstabPairs()
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"relevant", "actor_type"}, {"lang", "relevant"}}, pairs)

	cfg := DefaultConfig()
	cfg.Stats.Crosstabs = []string{"relevant"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row:column")
}
