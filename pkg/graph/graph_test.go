package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/annotation"
	"followgraph/pkg/checkpoint"
	"followgraph/pkg/links"
	"followgraph/pkg/twitter"
)

func TestAddNodeAndEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "a"}))
	require.NoError(t, g.AddNode(Node{ID: "b", Label: "Bee"}))

	assert.Equal(t, "a", g.Node("a").Label, "label defaults to id")
	assert.True(t, errors.Is(g.AddNode(Node{ID: "a"}), ErrDuplicateNode))
	assert.ErrorIs(t, g.AddNode(Node{}), ErrEmptyID)

	require.NoError(t, g.AddEdge("a", "b", 0))
	require.NoError(t, g.AddEdge("a", "b", 2))
	assert.ErrorIs(t, g.AddEdge("a", "zzz", 1), ErrUnknownNode)

	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 3.0, g.Edges()[0].Weight, "duplicate edges sum weights")
	assert.Equal(t, 1, g.OutDegree("a"))
	assert.Equal(t, 1, g.InDegree("b"))
	assert.Equal(t, 0, g.InDegree("a"))
	assert.Equal(t, 0.5, g.Density())
}

func TestDynamic(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "a"}))
	assert.False(t, g.Dynamic())

	require.NoError(t, g.AddNode(Node{ID: "b", End: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}))
	assert.True(t, g.Dynamic())
}

func annotated(id, screen, created string, codes annotation.Codes) annotation.Annotated {
	return annotation.Annotated{
		Account: twitter.Account{ID: id, ScreenName: screen, CreatedAt: created, FollowersCount: 5},
		Codes:   codes,
	}
}

func TestBuild(t *testing.T) {
	accts := []annotation.Annotated{
		annotated("1", "alice", "Wed Oct 10 20:19:24 +0000 2018", annotation.Codes{"relevant": "yes"}),
		annotated("2", "bob", "not a date", annotation.Codes{"relevant": "yes"}),
	}
	res := &links.Result{
		Edges: []links.Edge{
			{Source: "2", Target: "1"},
			{Source: "X", Target: "1"},
			{Source: "9", Target: "2"},
		},
		External: []string{"X"},
		Statuses: []links.AccountResult{
			{ID: "1", AccountState: checkpoint.AccountState{Status: checkpoint.StatusCollected}},
		},
	}

	g, dropped, err := Build(accts, res, BuildOptions{Dynamic: true})
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, dropped)

	alice := g.Node("1")
	assert.Equal(t, "alice", alice.Label)
	assert.Equal(t, "yes", alice.Attributes["relevant"])
	assert.Equal(t, 5, alice.Attributes["followers_count"])
	assert.Equal(t, "collected", alice.Attributes["link_status"])
	assert.Equal(t, 2018, alice.Start.Year())
	assert.True(t, g.Node("2").Start.IsZero(), "unparseable date leaves start open")

	g, dropped, err = Build(accts, res, BuildOptions{IncludeExternal: true})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 1, dropped)
	assert.Equal(t, true, g.Node("X").Attributes["external"])
	assert.False(t, g.Dynamic())
}

func TestBuildWithoutLinks(t *testing.T) {
	g, dropped, err := Build([]annotation.Annotated{annotated("1", "a", "", nil)}, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount())
	assert.Zero(t, dropped)
}

func TestToDOT(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "1", Label: "alice", Attributes: map[string]interface{}{"type": "media"}}))
	require.NoError(t, g.AddNode(Node{ID: "2", Label: "bob", Attributes: map[string]interface{}{"type": "individual", "external": true}}))
	require.NoError(t, g.AddEdge("2", "1", 1))
	require.NoError(t, g.AddEdge("1", "2", 3))

	dot := ToDOT(g, DOTOptions{ColorBy: "type"})
	assert.True(t, strings.HasPrefix(dot, "digraph followers {"))
	assert.Contains(t, dot, `"1" [label="alice", fillcolor="#f28e2b"]`)
	assert.Contains(t, dot, `"2" [label="bob", fillcolor="#4e79a7", style="filled,dashed"]`)
	assert.Contains(t, dot, `"2" -> "1";`)
	assert.Contains(t, dot, `"1" -> "2" [penwidth=3];`)
}

func TestRenderSVG(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "1", Label: "alice"}))
	require.NoError(t, g.AddNode(Node{ID: "2", Label: "bob"}))
	require.NoError(t, g.AddEdge("2", "1", 1))

	svg, err := RenderSVG(context.Background(), ToDOT(g, DOTOptions{}))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "alice")
}
