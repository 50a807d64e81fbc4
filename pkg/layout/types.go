// Package layout defines the data model for diagram layouts: positioned
// nodes, edges, and the closed diagram-category and layout-strategy
// enumerations used as dimension keys throughout the quality core.
//
// A [Layout] is produced by an external layout engine and consumed read-only
// by the metrics calculator; nothing in this module ever mutates a layout
// after construction.
package layout

import (
	"fmt"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/geometry"
)

// =============================================================================
// Diagram Categories
// =============================================================================

// DiagramCategory identifies the kind of diagram being evaluated. The set is
// closed: it selects a metric weight vector, and an unrecognized category is
// a configuration error, never a silent fallback.
type DiagramCategory string

// The supported diagram categories.
const (
	CategoryMotivation  DiagramCategory = "motivation"
	CategoryBusiness    DiagramCategory = "business"
	CategoryApplication DiagramCategory = "application"
	CategoryTechnology  DiagramCategory = "technology"
	CategoryComponent   DiagramCategory = "component"
)

// Categories lists all valid diagram categories in stable order.
func Categories() []DiagramCategory {
	return []DiagramCategory{
		CategoryMotivation,
		CategoryBusiness,
		CategoryApplication,
		CategoryTechnology,
		CategoryComponent,
	}
}

// ParseCategory converts a string to a DiagramCategory.
// Returns an UNKNOWN_CATEGORY error for unrecognized values.
func ParseCategory(s string) (DiagramCategory, error) {
	c := DiagramCategory(s)
	switch c {
	case CategoryMotivation, CategoryBusiness, CategoryApplication,
		CategoryTechnology, CategoryComponent:
		return c, nil
	}
	return "", errors.New(errors.ErrCodeUnknownCategory, "unknown diagram category %q", s)
}

// Valid reports whether c is a recognized category.
func (c DiagramCategory) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// =============================================================================
// Layout Strategies
// =============================================================================

// LayoutStrategy identifies which layout algorithm produced the node
// positions. It is a history dimension key only; the metrics themselves
// never interpret it.
type LayoutStrategy string

// The supported layout strategies.
const (
	StrategyHierarchical  LayoutStrategy = "hierarchical"
	StrategyForceDirected LayoutStrategy = "force_directed"
	StrategySwimlane      LayoutStrategy = "swimlane"
	StrategyMatrix        LayoutStrategy = "matrix"
	StrategyRadial        LayoutStrategy = "radial"
)

// Strategies lists all valid layout strategies in stable order.
func Strategies() []LayoutStrategy {
	return []LayoutStrategy{
		StrategyHierarchical,
		StrategyForceDirected,
		StrategySwimlane,
		StrategyMatrix,
		StrategyRadial,
	}
}

// ParseStrategy converts a string to a LayoutStrategy.
// Returns an UNKNOWN_STRATEGY error for unrecognized values.
func ParseStrategy(s string) (LayoutStrategy, error) {
	st := LayoutStrategy(s)
	switch st {
	case StrategyHierarchical, StrategyForceDirected, StrategySwimlane,
		StrategyMatrix, StrategyRadial:
		return st, nil
	}
	return "", errors.New(errors.ErrCodeUnknownStrategy, "unknown layout strategy %q", s)
}

// Valid reports whether s is a recognized strategy.
func (s LayoutStrategy) Valid() bool {
	_, err := ParseStrategy(string(s))
	return err == nil
}

// =============================================================================
// Nodes and Edges
// =============================================================================

// Node is a positioned diagram element. Position is the top-left corner of
// the node's bounding box. Kind is a free-form display tag (e.g. "actor",
// "service") that never influences scoring.
type Node struct {
	ID     string  `json:"id" bson:"id"`
	Label  string  `json:"label,omitempty" bson:"label,omitempty"`
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
	Kind   string  `json:"kind,omitempty" bson:"kind,omitempty"`
}

// Bounds returns the node's bounding box.
func (n *Node) Bounds() geometry.Rect {
	return geometry.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Center returns the node's center point, the anchor used for edge geometry.
func (n *Node) Center() geometry.Point {
	return geometry.Point{X: n.X + n.Width/2, Y: n.Y + n.Height/2}
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed connection between two nodes, identified by endpoint
// node IDs.
type Edge struct {
	ID     string `json:"id,omitempty" bson:"id,omitempty"`
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Label  string `json:"label,omitempty" bson:"label,omitempty"`
}

// SharesEndpoint reports whether e and o have a node in common. Edges that
// share an endpoint are expected to meet there and are excluded from
// crossing detection.
func (e *Edge) SharesEndpoint(o *Edge) bool {
	return e.Source == o.Source || e.Source == o.Target ||
		e.Target == o.Source || e.Target == o.Target
}

// =============================================================================
// Layout
// =============================================================================

// Layout is an immutable snapshot of node positions and edges as produced by
// a layout engine.
type Layout struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// NodeByID returns the node with the given ID, or nil.
func (l *Layout) NodeByID(id string) *Node {
	for i := range l.Nodes {
		if l.Nodes[i].ID == id {
			return &l.Nodes[i]
		}
	}
	return nil
}

// BoundingBox returns the smallest rectangle containing every node.
func (l *Layout) BoundingBox() geometry.Rect {
	rects := make([]geometry.Rect, len(l.Nodes))
	for i := range l.Nodes {
		rects[i] = l.Nodes[i].Bounds()
	}
	return geometry.BoundingBox(rects)
}

// Clone returns a deep copy. Callers crossing an engine or session
// boundary clone first so downstream code never mutates shared slices.
func (l *Layout) Clone() *Layout {
	c := &Layout{
		Nodes: make([]Node, len(l.Nodes)),
		Edges: make([]Edge, len(l.Edges)),
	}
	copy(c.Nodes, l.Nodes)
	copy(c.Edges, l.Edges)
	return c
}

// String returns a short human-readable summary.
func (l *Layout) String() string {
	return fmt.Sprintf("layout(%d nodes, %d edges)", len(l.Nodes), len(l.Edges))
}
