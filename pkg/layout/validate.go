package layout

import (
	"strings"

	"github.com/archlens/archlens/pkg/errors"
)

// Validate checks a layout for structural problems: duplicate node IDs,
// edges referencing missing nodes, and negative node sizes. It collects
// every problem rather than stopping at the first, so callers can render a
// complete user-facing message.
//
// Returns nil for a valid layout, otherwise an INVALID_LAYOUT error whose
// message lists each problem on its own line.
func Validate(l *Layout) error {
	problems := collectProblems(l)
	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidLayout, "%s", strings.Join(problems, "; "))
}

// Problems returns every structural problem found in the layout as
// human-readable strings. An empty slice means the layout is valid.
func Problems(l *Layout) []string {
	return collectProblems(l)
}

func collectProblems(l *Layout) []string {
	var problems []string

	seen := make(map[string]bool, len(l.Nodes))
	for i := range l.Nodes {
		n := &l.Nodes[i]
		if n.ID == "" {
			problems = append(problems, "node with empty id")
			continue
		}
		if seen[n.ID] {
			problems = append(problems, "duplicate node id "+n.ID)
		}
		seen[n.ID] = true

		if n.Width < 0 || n.Height < 0 {
			problems = append(problems, "node "+n.ID+" has negative size")
		}
	}

	for i := range l.Edges {
		e := &l.Edges[i]
		if !seen[e.Source] {
			problems = append(problems, "edge "+edgeName(e)+" references missing source "+e.Source)
		}
		if !seen[e.Target] {
			problems = append(problems, "edge "+edgeName(e)+" references missing target "+e.Target)
		}
	}

	return problems
}

func edgeName(e *Edge) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "->" + e.Target
}
