package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/config"
)

func TestExampleConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "followgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0644))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"#openscience"}, cfg.Search.Keywords)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.FollowerWindow)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "graph.gexf", cfg.Export.File)
	assert.True(t, cfg.Export.Dynamic)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "codesheet", "merge", "stats", "links", "export", "auth", "config", "status", "version"} {
		assert.True(t, names[want], want)
	}
}
