package stats

import (
	"followgraph/pkg/graph"
)

// GraphSummary describes the follower graph
type GraphSummary struct {
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	Density   float64 `json:"density"`
	InDegree  Summary `json:"in_degree"`
	OutDegree Summary `json:"out_degree"`
	// Isolates counts nodes with neither incoming nor outgoing edges
	Isolates int `json:"isolates"`
}

// SummarizeGraph computes node, edge and degree statistics
func SummarizeGraph(g *graph.Graph) (*GraphSummary, error) {
	nodes := g.Nodes()
	in := make([]float64, 0, len(nodes))
	out := make([]float64, 0, len(nodes))

	s := &GraphSummary{
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Density: g.Density(),
	}
	for _, n := range nodes {
		i, o := g.InDegree(n.ID), g.OutDegree(n.ID)
		if i == 0 && o == 0 {
			s.Isolates++
		}
		in = append(in, float64(i))
		out = append(out, float64(o))
	}

	var err error
	if s.InDegree, err = Summarize(in); err != nil {
		return nil, err
	}
	if s.OutDegree, err = Summarize(out); err != nil {
		return nil, err
	}
	return s, nil
}
