// Package treeviz renders the location hierarchy as a Graphviz diagram.
// Each location becomes a node labeled with its name and item count;
// parent-child edges follow the nesting.
package treeviz

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/shelfmap/shelfmap/pkg/inventory"
)

// Options configures tree rendering.
type Options struct {
	// Detailed includes descriptions and region counts in node labels.
	Detailed bool
}

/// Tree is the data treeviz draws: locations plus per-location counts.
type Tree struct {
	Locations []inventory.Location
	// ItemCount and RegionCount are keyed by location id; missing keys
	// render as zero.
	ItemCount   map[string]int
	RegionCount map[string]int
}

// ToDOT converts the location tree to Graphviz DOT format. The output can
// be rendered with [RenderSVG] or [RenderPNG], or fed to the dot tool
// directly.
func ToDOT(t Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph shelfmap {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ordered := make([]inventory.Location, len(t.Locations))
	copy(ordered, t.Locations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	known := map[string]bool{}
	for _, loc := range ordered {
		known[loc.ID] = true
	}
	for _, loc := range ordered {
		label := fmtLabel(loc, t, opts.Detailed)
		attrs := fmtAttrs(loc, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", loc.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, loc := range ordered {
		if loc.ParentID != "" && known[loc.ParentID] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", loc.ParentID, loc.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(loc inventory.Location, t Tree, detailed bool) string {
	items := t.ItemCount[loc.ID]
	parts := []string{loc.Name}
	if items == 1 {
		parts = append(parts, "1 item")
	} else {
		parts = append(parts, fmt.Sprintf("%d items", items))
	}
	if detailed {
		if n := t.RegionCount[loc.ID]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d regions", n))
		}
		if loc.Description != "" {
			parts = append(parts, loc.Description)
		}
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(loc inventory.Location, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if loc.ImagePath == "" {
		// Locations without an image cannot host the region editor yet.
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
