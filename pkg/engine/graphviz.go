// Package engine adapts Graphviz as a layout engine: it turns a layout's
// nodes and edges into DOT, runs the Graphviz algorithm matching the
// requested strategy, and reads the computed positions back out of the
// xdot output.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/refine"
)

// pointsPerInch converts Graphviz size attributes (inches) to the point
// coordinates used in pos attributes and in our layouts.
const pointsPerInch = 72.0

// GraphvizEngine computes node positions with an in-process Graphviz. It
// is stateless; each call builds a fresh graph.
type GraphvizEngine struct{}

var _ refine.Engine = (*GraphvizEngine)(nil)

// New returns a Graphviz-backed layout engine.
func New() *GraphvizEngine {
	return &GraphvizEngine{}
}

// algorithms maps each layout strategy to the Graphviz algorithm that
// realizes it. Swimlane reuses the ranked algorithm with a horizontal
// rank direction; matrix uses the array packer.
var algorithms = map[layout.LayoutStrategy]string{
	layout.StrategyHierarchical:  "dot",
	layout.StrategySwimlane:      "dot",
	layout.StrategyForceDirected: "fdp",
	layout.StrategyRadial:        "twopi",
	layout.StrategyMatrix:        "osage",
}

// ComputeLayout runs Graphviz and returns a new layout with updated node
// positions. Node sizes, labels, and edges are preserved from the input.
func (e *GraphvizEngine) ComputeLayout(ctx context.Context, l *layout.Layout, strategy layout.LayoutStrategy, params refine.EngineParams) (*layout.Layout, error) {
	algo, ok := algorithms[strategy]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownStrategy, "unknown layout strategy %q", strategy)
	}
	if err := layout.Validate(l); err != nil {
		return nil, err
	}

	dot := buildDOT(l, strategy, params)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngine, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(algo))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngine, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngine, err, "run %s", algo)
	}

	positions := parseXDOT(buf.String())

	out := l.Clone()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		geom, ok := positions[n.ID]
		if !ok {
			return nil, errors.New(errors.ErrCodeEngine, "no position for node %q in %s output", n.ID, algo)
		}
		// pos is the node center in points; our coordinates are top-left.
		n.X = geom.cx - n.Width/2
		n.Y = geom.cy - n.Height/2
	}
	return out, nil
}

// buildDOT renders the layout as a DOT graph with fixed node sizes, so
// Graphviz positions our boxes instead of resizing them around labels.
func buildDOT(l *layout.Layout, strategy layout.LayoutStrategy, params refine.EngineParams) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if strategy == layout.StrategySwimlane {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  node [shape=box, fixedsize=true];\n")
	if params.NodeSpacing > 0 {
		fmt.Fprintf(&buf, "  nodesep=%.4f;\n", params.NodeSpacing/pointsPerInch)
	}
	if params.RankSpacing > 0 {
		fmt.Fprintf(&buf, "  ranksep=%.4f;\n", params.RankSpacing/pointsPerInch)
	}
	if params.Iterations > 0 {
		fmt.Fprintf(&buf, "  maxiter=%d;\n", params.Iterations)
	}
	if params.Seed != 0 {
		fmt.Fprintf(&buf, "  start=%d;\n", params.Seed)
	}
	buf.WriteString("\n")

	for i := range l.Nodes {
		n := &l.Nodes[i]
		w, h := n.Width/pointsPerInch, n.Height/pointsPerInch
		fmt.Fprintf(&buf, "  %q [label=%q, width=%.4f, height=%.4f];\n", n.ID, n.DisplayLabel(), w, h)
	}

	buf.WriteString("\n")
	for i := range l.Edges {
		e := &l.Edges[i]
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeGeom is a node center position in points, as read from xdot output.
type nodeGeom struct {
	cx, cy float64
}

var (
	// A node statement: an optionally quoted name followed by a bracketed
	// attribute list. Edge statements contain "->" and never match the
	// name group alone.
	nodeStmtRe = regexp.MustCompile(`(?ms)^\s*("(?:[^"\\]|\\.)*"|[A-Za-z0-9_.]+)\s*\[(.*?)\];?$`)
	posRe      = regexp.MustCompile(`\bpos="(-?[0-9.]+),(-?[0-9.]+)"`)
)

// parseXDOT extracts node center positions from Graphviz xdot output.
// Graph-level and default-attribute statements are skipped.
func parseXDOT(xdot string) map[string]nodeGeom {
	out := make(map[string]nodeGeom)
	for _, m := range nodeStmtRe.FindAllStringSubmatch(xdot, -1) {
		name := unquote(m[1])
		if name == "graph" || name == "node" || name == "edge" {
			continue
		}
		pos := posRe.FindStringSubmatch(m[2])
		if pos == nil {
			continue
		}
		cx, err1 := strconv.ParseFloat(pos[1], 64)
		cy, err2 := strconv.ParseFloat(pos[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out[name] = nodeGeom{cx: cx, cy: cy}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
	}
	return s
}
