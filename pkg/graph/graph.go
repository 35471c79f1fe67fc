// Package graph holds the directed follower graph that is exported for
// visualization. It deliberately offers only what export and descriptive
// statistics need: nodes with typed attributes and optional time ranges,
// weighted edges, and degree counts.
package graph

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateNode = errors.New("duplicate node")
	ErrUnknownNode   = errors.New("unknown node")
	ErrEmptyID       = errors.New("empty node id")
)

// Node is a vertex. Attribute values are string, int, float64 or bool.
type Node struct {
	ID         string
	Label      string
	Attributes map[string]interface{}
	// Start and End bound when the node exists; zero values mean open.
	Start time.Time
	End   time.Time
}

// HasTime reports whether the node carries any time bound
func (n *Node) HasTime() bool {
	return !n.Start.IsZero() || !n.End.IsZero()
}

// Edge is a directed, weighted link
type Edge struct {
	Source string
	Target string
	Weight float64
}

// Graph is a directed graph with insertion-ordered nodes and edges
type Graph struct {
	nodes     map[string]*Node
	order     []string
	edges     []Edge
	edgeIndex map[[2]string]int
	in        map[string]int
	out       map[string]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		edgeIndex: make(map[[2]string]int),
		in:        make(map[string]int),
		out:       make(map[string]int),
	}
}

// AddNode adds n. Node IDs must be unique.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	if n.Label == "" {
		n.Label = n.ID
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]interface{})
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between existing nodes. A repeated edge adds
// its weight to the existing one; non-positive weights count as 1.
func (g *Graph) AddEdge(source, target string, weight float64) error {
	if _, ok := g.nodes[source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, source)
	}
	if _, ok := g.nodes[target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, target)
	}
	if weight <= 0 {
		weight = 1
	}

	k := [2]string{source, target}
	if i, ok := g.edgeIndex[k]; ok {
		g.edges[i].Weight += weight
		return nil
	}
	g.edgeIndex[k] = len(g.edges)
	g.edges = append(g.edges, Edge{Source: source, Target: target, Weight: weight})
	g.out[source]++
	g.in[target]++
	return nil
}

// Node returns the node with id, or nil
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns nodes in insertion order
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns edges in insertion order
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of distinct edges
func (g *Graph) EdgeCount() int { return len(g.edges) }

// InDegree returns the number of distinct edges into id
func (g *Graph) InDegree(id string) int { return g.in[id] }

// OutDegree returns the number of distinct edges out of id
func (g *Graph) OutDegree(id string) int { return g.out[id] }

// Dynamic reports whether any node carries a time range
func (g *Graph) Dynamic() bool {
	for _, n := range g.nodes {
		if n.HasTime() {
			return true
		}
	}
	return false
}

// Density is edges divided by the possible directed edges without self-loops
func (g *Graph) Density() float64 {
	n := float64(len(g.order))
	if n < 2 {
		return 0
	}
	return float64(len(g.edges)) / (n * (n - 1))
}
