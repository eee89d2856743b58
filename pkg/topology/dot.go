package topology

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT renders the condensed skeleton graph in Graphviz DOT format.
// Junctions draw as filled circles, endpoints as open circles, and edges
// carry their traced pixel length as label.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("graph skeleton {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  node [shape=circle, fontsize=10, width=0.3, fixedsize=true];\n")
	buf.WriteString("\n")

	for i, n := range g.Nodes {
		style := "filled"
		fill := "lightgrey"
		if n.Degree == 1 {
			style = "solid"
			fill = "white"
		}
		fmt.Fprintf(&buf, "  n%d [label=\"%d\", style=%q, fillcolor=%q, pos=\"%d,%d!\"];\n",
			i, n.Degree, style, fill, n.Pos.X, -n.Pos.Y)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  n%d -- n%d [label=\"%d\"];\n", e.A, e.B, e.Length)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders the skeleton graph to SVG using Graphviz.
func (g *Graph) RenderSVG(ctx context.Context) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(g.ToDOT()))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
