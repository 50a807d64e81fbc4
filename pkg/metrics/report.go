package metrics

import (
	"time"

	"github.com/archlens/archlens/pkg/layout"
)

// LayoutQualityReport is the multi-metric result of evaluating a single
// layout. It is immutable once produced and is the unit of exchange between
// the calculator, the combined scorer, and the history service.
//
// The four primary metrics and the overall score are normalized to [0,1]
// where 1 is best. Extended metrics carry raw values: occlusion is a count,
// aspect ratio is width over height, density is covered area fraction.
type LayoutQualityReport struct {
	Category layout.DiagramCategory `json:"category" bson:"category"`
	Strategy layout.LayoutStrategy  `json:"strategy" bson:"strategy"`

	NodeCount int `json:"node_count" bson:"node_count"`
	EdgeCount int `json:"edge_count" bson:"edge_count"`

	// Primary metrics, folded into OverallScore by the category weights.
	CrossingNumber       float64 `json:"crossing_number" bson:"crossing_number"`
	CrossingAngle        float64 `json:"crossing_angle" bson:"crossing_angle"`
	AngularResolutionMin float64 `json:"angular_resolution_min" bson:"angular_resolution_min"`
	AngularResolutionDev float64 `json:"angular_resolution_dev" bson:"angular_resolution_dev"`

	// Extended metrics.
	Crossings            int     `json:"crossings" bson:"crossings"`
	NodeOcclusions       int     `json:"node_occlusions" bson:"node_occlusions"`
	AspectRatio          float64 `json:"aspect_ratio" bson:"aspect_ratio"`
	Density              float64 `json:"density" bson:"density"`
	EdgeLengthMean       float64 `json:"edge_length_mean" bson:"edge_length_mean"`
	EdgeLengthStdDev     float64 `json:"edge_length_std_dev" bson:"edge_length_std_dev"`
	EdgeLengthUniformity float64 `json:"edge_length_uniformity" bson:"edge_length_uniformity"`

	OverallScore float64 `json:"overall_score" bson:"overall_score"`

	ComputeMillis float64   `json:"compute_ms" bson:"compute_ms"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// MetricValue is a named primary metric, used for per-metric regression
// breakdowns.
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Primary metric names as they appear in regression breakdowns and the CI
// report. Stable: external tooling matches on these strings.
const (
	MetricCrossingNumber       = "crossing_number"
	MetricCrossingAngle        = "crossing_angle"
	MetricAngularResolutionMin = "angular_resolution_min"
	MetricAngularResolutionDev = "angular_resolution_dev"
)

// PrimaryMetrics returns the four primary metrics in stable order.
func (r *LayoutQualityReport) PrimaryMetrics() []MetricValue {
	return []MetricValue{
		{Name: MetricCrossingNumber, Value: r.CrossingNumber},
		{Name: MetricCrossingAngle, Value: r.CrossingAngle},
		{Name: MetricAngularResolutionMin, Value: r.AngularResolutionMin},
		{Name: MetricAngularResolutionDev, Value: r.AngularResolutionDev},
	}
}

// Tier returns the quality tier for the report's overall score.
func (r *LayoutQualityReport) Tier() QualityTier {
	return Classify(r.OverallScore)
}

// setElapsed records the computation wall time on the report.
func (r *LayoutQualityReport) setElapsed(d time.Duration) {
	r.ComputeMillis = float64(d.Microseconds()) / 1000.0
}
