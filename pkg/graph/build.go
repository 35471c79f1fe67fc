package graph

import (
	"fmt"

	"followgraph/pkg/annotation"
	"followgraph/pkg/links"
)

// BuildOptions controls how accounts and links become a graph
type BuildOptions struct {
	// Dynamic sets each node's start to the account creation date
	Dynamic bool
	// IncludeExternal adds follower nodes outside the account set
	IncludeExternal bool
}

// Build assembles the follower graph. Every annotated account becomes a node
// carrying its profile counts, its codes and its link collection status;
// each collected edge follower -> account becomes a directed edge. Edges
// whose endpoints are not nodes are dropped and counted.
func Build(accounts []annotation.Annotated, res *links.Result, opts BuildOptions) (*Graph, int, error) {
	g := New()

	statuses := make(map[string]string)
	if res != nil {
		for _, s := range res.Statuses {
			statuses[s.ID] = string(s.Status)
		}
	}

	for _, a := range accounts {
		n := Node{
			ID:    a.ID,
			Label: a.ScreenName,
			Attributes: map[string]interface{}{
				"name":            a.Name,
				"followers_count": a.FollowersCount,
				"friends_count":   a.FriendsCount,
				"statuses_count":  a.StatusesCount,
				"verified":        a.Verified,
				"external":        false,
			},
		}
		for category, value := range a.Codes {
			n.Attributes[category] = value
		}
		if s, ok := statuses[a.ID]; ok {
			n.Attributes["link_status"] = s
		}
		if opts.Dynamic {
			if created, err := a.Created(); err == nil {
				n.Start = created.UTC()
			}
		}
		if err := g.AddNode(n); err != nil {
			return nil, 0, fmt.Errorf("failed to add account node: %w", err)
		}
	}

	if res == nil {
		return g, 0, nil
	}

	if opts.IncludeExternal {
		for _, id := range res.External {
			if g.Node(id) != nil {
				continue
			}
			if err := g.AddNode(Node{ID: id, Attributes: map[string]interface{}{"external": true}}); err != nil {
				return nil, 0, fmt.Errorf("failed to add external node: %w", err)
			}
		}
	}

	dropped := 0
	for _, e := range res.Edges {
		if g.Node(e.Source) == nil || g.Node(e.Target) == nil {
			dropped++
			continue
		}
		if err := g.AddEdge(e.Source, e.Target, 1); err != nil {
			return nil, 0, err
		}
	}
	return g, dropped, nil
}
