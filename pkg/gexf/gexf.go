// Package gexf writes graphs in the GEXF 1.3 interchange format read by
// Gephi and similar tools.
//
// A graph whose nodes carry no time range is written in static mode. As soon
// as one node has a start or end date the whole file switches to dynamic
// mode with timeformat="date", and each node gets start/end attributes.
package gexf

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"followgraph/pkg/graph"
)

const (
	Namespace = "http://gexf.net/1.3"
	Version   = "1.3"

	dateLayout = "2006-01-02"
)

// Attribute types used in <attribute type="...">
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeDouble  = "double"
	TypeBoolean = "boolean"
)

// Options configures the document header
type Options struct {
	Creator     string
	Description string
	// LastModified defaults to the current date
	LastModified time.Time
}

type document struct {
	XMLName xml.Name `xml:"gexf"`
	XMLNS   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`
	Meta    meta     `xml:"meta"`
	Graph   xmlGraph `xml:"graph"`
}

type meta struct {
	LastModified string `xml:"lastmodifieddate,attr"`
	Creator      string `xml:"creator,omitempty"`
	Description  string `xml:"description,omitempty"`
}

type xmlGraph struct {
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Mode            string         `xml:"mode,attr"`
	TimeFormat      string         `xml:"timeformat,attr,omitempty"`
	Attributes      *xmlAttributes `xml:"attributes,omitempty"`
	Nodes           xmlNodes       `xml:"nodes"`
	Edges           xmlEdges       `xml:"edges"`
}

type xmlAttributes struct {
	Class      string         `xml:"class,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type xmlNodes struct {
	Count int       `xml:"count,attr"`
	Nodes []xmlNode `xml:"node"`
}

type xmlNode struct {
	ID        string        `xml:"id,attr"`
	Label     string        `xml:"label,attr"`
	Start     string        `xml:"start,attr,omitempty"`
	End       string        `xml:"end,attr,omitempty"`
	AttValues *xmlAttValues `xml:"attvalues,omitempty"`
}

type xmlAttValues struct {
	Values []xmlAttValue `xml:"attvalue"`
}

type xmlAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type xmlEdges struct {
	Count int       `xml:"count,attr"`
	Edges []xmlEdge `xml:"edge"`
}

type xmlEdge struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
	Weight string `xml:"weight,attr,omitempty"`
}

// Write serializes g as GEXF to w
func Write(w io.Writer, g *graph.Graph, opts Options) error {
	doc, err := build(g, opts)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write GEXF header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GEXF: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush GEXF: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func build(g *graph.Graph, opts Options) (*document, error) {
	modified := opts.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}

	decls, err := declarations(g)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(decls))
	for _, d := range decls {
		ids[d.Title] = d.ID
	}

	doc := &document{
		XMLNS:   Namespace,
		Version: Version,
		Meta: meta{
			LastModified: modified.Format(dateLayout),
			Creator:      opts.Creator,
			Description:  opts.Description,
		},
		Graph: xmlGraph{
			DefaultEdgeType: "directed",
			Mode:            "static",
		},
	}

	dynamic := g.Dynamic()
	if dynamic {
		doc.Graph.Mode = "dynamic"
		doc.Graph.TimeFormat = "date"
	}
	if len(decls) > 0 {
		doc.Graph.Attributes = &xmlAttributes{Class: "node", Attributes: decls}
	}

	for _, n := range g.Nodes() {
		xn := xmlNode{ID: n.ID, Label: n.Label}
		if dynamic {
			xn.Start = formatDate(n.Start)
			xn.End = formatDate(n.End)
		}

		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var values []xmlAttValue
		for _, k := range keys {
			values = append(values, xmlAttValue{For: ids[k], Value: formatValue(n.Attributes[k])})
		}
		if len(values) > 0 {
			xn.AttValues = &xmlAttValues{Values: values}
		}
		doc.Graph.Nodes.Nodes = append(doc.Graph.Nodes.Nodes, xn)
	}
	doc.Graph.Nodes.Count = len(doc.Graph.Nodes.Nodes)

	for i, e := range g.Edges() {
		xe := xmlEdge{ID: strconv.Itoa(i), Source: e.Source, Target: e.Target}
		if e.Weight != 1 {
			xe.Weight = strconv.FormatFloat(e.Weight, 'f', -1, 64)
		}
		doc.Graph.Edges.Edges = append(doc.Graph.Edges.Edges, xe)
	}
	doc.Graph.Edges.Count = len(doc.Graph.Edges.Edges)

	return doc, nil
}

// declarations derives one attribute declaration per attribute name across
// all nodes, sorted by name. Integers mixed with doubles widen to double; any
// other mix of types is an error.
func declarations(g *graph.Graph) ([]xmlAttribute, error) {
	types := make(map[string]string)
	for _, n := range g.Nodes() {
		for k, v := range n.Attributes {
			t, err := typeOf(v)
			if err != nil {
				return nil, fmt.Errorf("node %s attribute %q: %w", n.ID, k, err)
			}
			prev, ok := types[k]
			switch {
			case !ok || prev == t:
				types[k] = t
			case isNumeric(prev) && isNumeric(t):
				types[k] = TypeDouble
			default:
				return nil, fmt.Errorf("attribute %q has mixed types %s and %s", k, prev, t)
			}
		}
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)

	decls := make([]xmlAttribute, len(names))
	for i, name := range names {
		decls[i] = xmlAttribute{ID: strconv.Itoa(i), Title: name, Type: types[name]}
	}
	return decls, nil
}

func typeOf(v interface{}) (string, error) {
	switch v.(type) {
	case string:
		return TypeString, nil
	case int, int32, int64:
		return TypeInteger, nil
	case float32, float64:
		return TypeDouble, nil
	case bool:
		return TypeBoolean, nil
	default:
		return "", fmt.Errorf("unsupported attribute type %T", v)
	}
}

func isNumeric(t string) bool {
	return t == TypeInteger || t == TypeDouble
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
