package history

import (
	"context"
	"math"
	"time"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/metrics"
)

// Severity grades a quality regression against the baseline.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Rank orders severities for comparison; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return -1
	}
}

// RegressionConfig holds the thresholds used to grade score decreases.
// Percentages are relative to the baseline score.
type RegressionConfig struct {
	MinorPercent    float64 `json:"minor_percent" toml:"minor_percent"`
	ModeratePercent float64 `json:"moderate_percent" toml:"moderate_percent"`
	SeverePercent   float64 `json:"severe_percent" toml:"severe_percent"`

	// QualityFloor forces severe whenever the current score drops below
	// this value, even if the drop relative to the baseline is small.
	QualityFloor float64 `json:"quality_floor" toml:"quality_floor"`
}

// DefaultRegressionConfig returns the standard grading thresholds.
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		MinorPercent:    5,
		ModeratePercent: 10,
		SeverePercent:   20,
		QualityFloor:    0.5,
	}
}

// MetricDelta reports the change of one primary metric against the baseline.
type MetricDelta struct {
	Metric   string  `json:"metric"`
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}

// RegressionReport is the result of comparing a fresh report against the
// active baseline for its key.
type RegressionReport struct {
	Key           Key           `json:"key"`
	HasBaseline   bool          `json:"has_baseline"`
	BaselineID    string        `json:"baseline_id,omitempty"`
	BaselineScore float64       `json:"baseline_score"`
	CurrentScore  float64       `json:"current_score"`
	Delta         float64       `json:"delta"`
	PercentChange float64       `json:"percent_change"`
	Severity      Severity      `json:"severity"`
	BelowFloor    bool          `json:"below_floor"`
	Metrics       []MetricDelta `json:"metrics,omitempty"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// DetectRegression grades a fresh quality report against the active
// baseline for its key. The quality floor is absolute: a score below it
// grades severe whether or not a baseline exists. When the key has no
// baseline the report carries HasBaseline=false and, above the floor,
// severity none; callers decide whether that gates.
func (s *Service) DetectRegression(ctx context.Context, report *metrics.LayoutQualityReport, modelID string) (*RegressionReport, error) {
	if report == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil report")
	}
	key := Key{Category: report.Category, Strategy: report.Strategy, ModelID: modelID}

	out := &RegressionReport{
		Key:          key,
		CurrentScore: report.OverallScore,
		Severity:     SeverityNone,
		BelowFloor:   report.OverallScore < s.cfg.QualityFloor,
		CheckedAt:    time.Now().UTC(),
	}
	if out.BelowFloor {
		out.Severity = SeveritySevere
	}

	base, err := s.Baseline(ctx, key)
	if err != nil {
		if errors.Is(err, errors.ErrCodeBaselineNotFound) {
			return out, nil
		}
		return nil, err
	}

	out.HasBaseline = true
	out.BaselineID = base.ID
	out.BaselineScore = base.Score
	out.Delta = report.OverallScore - base.Score
	if base.Score > 0 {
		out.PercentChange = out.Delta / base.Score * 100
	}
	out.Severity = s.grade(out.PercentChange, out.BelowFloor)

	if base.Report != nil {
		out.Metrics = metricDeltas(base.Report, report)
	}
	return out, nil
}

// grade maps a percent score change to a severity. Improvements and small
// dips grade as none; the floor overrides everything.
func (s *Service) grade(percentChange float64, belowFloor bool) Severity {
	if belowFloor {
		return SeveritySevere
	}
	decrease := -percentChange
	switch {
	case decrease < s.cfg.MinorPercent:
		return SeverityNone
	case decrease < s.cfg.ModeratePercent:
		return SeverityMinor
	case decrease < s.cfg.SeverePercent:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

func metricDeltas(baseline, current *metrics.LayoutQualityReport) []MetricDelta {
	bm := baseline.PrimaryMetrics()
	cm := current.PrimaryMetrics()
	deltas := make([]MetricDelta, 0, len(cm))
	for i, cur := range cm {
		if i >= len(bm) || bm[i].Name != cur.Name {
			continue
		}
		d := cur.Value - bm[i].Value
		if math.Abs(d) < 1e-12 {
			d = 0
		}
		deltas = append(deltas, MetricDelta{
			Metric:   cur.Name,
			Baseline: bm[i].Value,
			Current:  cur.Value,
			Delta:    d,
		})
	}
	return deltas
}
