package aggregate

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures hierarchy diagram rendering.
type DOTOptions struct {
	// Detailed includes value sums and record counts in node labels.
	// When false, only the node key is shown.
	Detailed bool
}

// ToDOT converts a group hierarchy to Graphviz DOT format. Case enclosures
// are rendered with grey fill to distinguish them from leaves; the root
// carries the group key. The resulting DOT string can be rendered with
// [RenderSVG].
func ToDOT(h *Hierarchy, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	writeNode(&buf, "root", h.Root, "style=\"rounded,filled,bold\"", opts)
	for i, child := range h.Root.Children {
		childID := fmt.Sprintf("c%d", i)
		if child.IsLeaf() {
			writeNode(&buf, childID, child, "", opts)
		} else {
			writeNode(&buf, childID, child, "fillcolor=lightgrey", opts)
		}
		for j, leaf := range child.Children {
			writeNode(&buf, fmt.Sprintf("c%d_%d", i, j), leaf, "", opts)
		}
	}

	buf.WriteString("\n")
	for i, child := range h.Root.Children {
		childID := fmt.Sprintf("c%d", i)
		fmt.Fprintf(&buf, "  %q -> %q;\n", "root", childID)
		for j := range child.Children {
			fmt.Fprintf(&buf, "  %q -> %q;\n", childID, fmt.Sprintf("c%d_%d", i, j))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, id string, n *Node, extra string, opts DOTOptions) {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	if extra != "" {
		attrs = append(attrs, extra)
	}
	fmt.Fprintf(buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
}

func fmtLabel(n *Node, detailed bool) string {
	key := n.Key
	if key == "" {
		key = "(none)"
	}
	if !detailed {
		return key
	}
	return fmt.Sprintf("%s\nvalue: %v\nrecords: %d", key, n.Value, n.Count)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
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
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so the viewBox starts at
// the origin and the pixel size matches it. Graphviz emits pt-based sizes
// that render inconsistently across viewers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
