package graph

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures DOT output
type DOTOptions struct {
	// ColorBy names a string attribute whose values get distinct fill colors
	ColorBy string
}

// palette is cycled through for ColorBy values in sorted order
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// ToDOT converts the graph to Graphviz DOT text
func ToDOT(g *Graph, opts DOTOptions) string {
	colors := colorMap(g, opts.ColorBy)

	var buf bytes.Buffer
	buf.WriteString("digraph followers {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.5, color=\"#00000066\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", n.Label)}
		if c, ok := colors[fmt.Sprint(n.Attributes[opts.ColorBy])]; ok && opts.ColorBy != "" {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
		}
		if ext, _ := n.Attributes["external"].(bool); ext {
			attrs = append(attrs, "style=\"filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Weight != 1 {
			fmt.Fprintf(&buf, "  %q -> %q [penwidth=%g];\n", e.Source, e.Target, e.Weight)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func colorMap(g *Graph, attr string) map[string]string {
	if attr == "" {
		return nil
	}
	seen := make(map[string]bool)
	var values []string
	for _, n := range g.Nodes() {
		v, ok := n.Attributes[attr]
		if !ok {
			continue
		}
		s := fmt.Sprint(v)
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	sort.Strings(values)

	colors := make(map[string]string, len(values))
	for i, v := range values {
		colors[v] = palette[i%len(palette)]
	}
	return colors
}

// RenderSVG lays out DOT text with Graphviz and returns the SVG
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
