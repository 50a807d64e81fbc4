// Package refine drives the interactive layout refinement loop: it asks an
// external layout engine for adjusted node positions, rescores each result,
// and records every pass in an append-only iteration history that supports
// approve, reject, revert, and stop transitions.
package refine

import (
	"context"

	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/score"
)

// EngineParams are the tunables handed to a layout engine for one pass.
// The loop treats them as opaque: it stores and forwards them but never
// interprets their meaning.
type EngineParams struct {
	NodeSpacing float64 `json:"node_spacing,omitempty"`
	RankSpacing float64 `json:"rank_spacing,omitempty"`
	Iterations  int     `json:"iterations,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

// Engine computes node positions for a layout. Implementations may be slow
// and should honor context cancellation. An engine error ends the current
// iteration; the loop never retries on its own.
type Engine interface {
	ComputeLayout(ctx context.Context, l *layout.Layout, strategy layout.LayoutStrategy, params EngineParams) (*layout.Layout, error)
}

// Scorer evaluates a layout's quality. *score.Scorer satisfies this; tests
// substitute fixed-score stubs.
type Scorer interface {
	ScoreLayout(l *layout.Layout, strategy layout.LayoutStrategy, category layout.DiagramCategory) (*score.CombinedQualityScore, error)
}
