package graph

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/chazu/cassette/pkg/component"
)

var kindStyle = map[component.Kind]string{
	component.KindPanel: `shape=box, style="rounded,filled", fillcolor="#f2e8cf"`,
	component.KindBeam:  `shape=box, style=filled, fillcolor="#a7c957"`,
	component.KindPlate: `shape=box, style=filled, fillcolor="#6a994e", fontcolor=white`,
	component.KindDowel: `shape=ellipse, style=filled, fillcolor="#bc4749", fontcolor=white`,
	component.KindJoint: `shape=diamond, style=filled, fillcolor="#386641", fontcolor=white`,
}

// ToDOT converts the graph to Graphviz DOT. Edges point from a component
// to the components it was derived from. Panels are clustered with their
// parts.
func ToDOT(g *ComponentGraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph cassette {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	byPanel := make(map[string][]*Node)
	var loose []*Node
	for _, id := range g.IDs() {
		n := g.Nodes[id]
		if n.Kind == component.KindJoint {
			loose = append(loose, n)
			continue
		}
		byPanel[n.Panel] = append(byPanel[n.Panel], n)
	}

	i := 0
	for _, root := range sortedRoots(g) {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", string(root))
		for _, n := range byPanel[string(root)] {
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, kindStyle[n.Kind])
		}
		buf.WriteString("  }\n")
		delete(byPanel, string(root))
		i++
	}
	orphans := make([]string, 0, len(byPanel))
	for panel := range byPanel {
		orphans = append(orphans, panel)
	}
	sort.Strings(orphans)
	for _, panel := range orphans {
		loose = append(loose, byPanel[panel]...)
	}
	for _, n := range loose {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, kindStyle[n.Kind])
	}

	buf.WriteString("\n")
	for _, id := range g.IDs() {
		for _, dep := range g.Nodes[id].Deps {
			fmt.Fprintf(&buf, "  %q -> %q;\n", id, dep)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func sortedRoots(g *ComponentGraph) []NodeID {
	roots := append([]NodeID(nil), g.Roots...)
	sortIDs(roots)
	return roots
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
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

// Summary returns one line per kind with its node count.
func Summary(g *ComponentGraph) string {
	var parts []string
	for _, k := range component.Kinds {
		if n := len(g.OfKind(k)); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return strings.Join(parts, " ")
}
