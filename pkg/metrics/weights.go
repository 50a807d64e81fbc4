// Package metrics implements the readability metrics calculator: it scores a
// diagram layout on crossing number, crossing angle, angular resolution,
// occlusion, and shape statistics, and folds the primary metrics into one
// overall score using per-category weights.
//
// All computations are pure functions of their inputs. Iteration order over
// nodes and edges is the order they appear in the layout, so results are
// bit-for-bit reproducible for identical input.
package metrics

import (
	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
)

// MetricWeights folds the four primary readability metrics into an overall
// score. Weights are non-negative and sum to 1 for every category; the table
// is static and never mutated at runtime.
type MetricWeights struct {
	CrossingNumber       float64 `json:"crossing_number"`
	CrossingAngle        float64 `json:"crossing_angle"`
	AngularResolutionMin float64 `json:"angular_resolution_min"`
	AngularResolutionDev float64 `json:"angular_resolution_dev"`
}

// Sum returns the total of all four weights. Always 1 for table entries;
// exposed so tests can assert the invariant.
func (w MetricWeights) Sum() float64 {
	return w.CrossingNumber + w.CrossingAngle + w.AngularResolutionMin + w.AngularResolutionDev
}

// categoryWeights is the static weighting policy. Crossing count dominates
// everywhere; categories whose diagrams tend to be dense (component,
// application) weight it harder, while relation-heavy categories reward
// angular separation more.
var categoryWeights = map[layout.DiagramCategory]MetricWeights{
	layout.CategoryMotivation: {
		CrossingNumber:       0.40,
		CrossingAngle:        0.25,
		AngularResolutionMin: 0.20,
		AngularResolutionDev: 0.15,
	},
	layout.CategoryBusiness: {
		CrossingNumber:       0.35,
		CrossingAngle:        0.25,
		AngularResolutionMin: 0.25,
		AngularResolutionDev: 0.15,
	},
	layout.CategoryApplication: {
		CrossingNumber:       0.40,
		CrossingAngle:        0.20,
		AngularResolutionMin: 0.25,
		AngularResolutionDev: 0.15,
	},
	layout.CategoryTechnology: {
		CrossingNumber:       0.35,
		CrossingAngle:        0.30,
		AngularResolutionMin: 0.20,
		AngularResolutionDev: 0.15,
	},
	layout.CategoryComponent: {
		CrossingNumber:       0.45,
		CrossingAngle:        0.25,
		AngularResolutionMin: 0.15,
		AngularResolutionDev: 0.15,
	},
}

// WeightsFor returns the metric weights for a diagram category. The function
// is total over the closed category set; an unknown category is a caller bug
// and yields an UNKNOWN_CATEGORY error, never a default weight vector.
func WeightsFor(category layout.DiagramCategory) (MetricWeights, error) {
	w, ok := categoryWeights[category]
	if !ok {
		return MetricWeights{}, errors.New(errors.ErrCodeUnknownCategory,
			"no metric weights for diagram category %q", category)
	}
	return w, nil
}
