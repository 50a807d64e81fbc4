package history

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/metrics"
)

// CheckConfig controls how RunCheck gates a batch of reports.
type CheckConfig struct {
	Regression RegressionConfig `json:"regression"`

	// Strict fails the check on minor regressions and on reports whose key
	// has no designated baseline.
	Strict bool `json:"strict"`
}

// CheckInput pairs a fresh quality report with the model it belongs to.
type CheckInput struct {
	ModelID string
	Report  *metrics.LayoutQualityReport
}

// CheckResult is the per-report outcome of a CI check.
type CheckResult struct {
	ModelID    string            `json:"model_id"`
	Key        Key               `json:"key"`
	Score      float64           `json:"score"`
	Tier       string            `json:"tier"`
	Regression *RegressionReport `json:"regression"`
	Passed     bool              `json:"passed"`
	Reason     string            `json:"reason,omitempty"`
}

// CheckSummary aggregates a CI check across all inputs.
type CheckSummary struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Severe     int `json:"severe"`
	Moderate   int `json:"moderate"`
	Minor      int `json:"minor"`
	NoBaseline int `json:"no_baseline"`
}

// CheckReport is the machine-readable output of a CI quality gate run.
// Its JSON shape is stable: fields are only ever added.
type CheckReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Config      CheckConfig   `json:"config"`
	Summary     CheckSummary  `json:"summary"`
	Results     []CheckResult `json:"results"`
}

// Passed reports whether every input passed the gate.
func (r *CheckReport) Passed() bool {
	return r.Summary.Failed == 0
}

// RunCheck grades each report against its baseline and produces a gate
// report. A result passes when its severity is none, or minor outside
// strict mode. Missing baselines pass unless strict; a score below the
// quality floor fails regardless of baseline state.
func (s *Service) RunCheck(ctx context.Context, cfg CheckConfig, inputs []CheckInput) (*CheckReport, error) {
	out := &CheckReport{
		GeneratedAt: time.Now().UTC(),
		Config:      cfg,
		Results:     make([]CheckResult, 0, len(inputs)),
	}

	for _, in := range inputs {
		if in.Report == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "nil report for model %q", in.ModelID)
		}
		reg, err := s.DetectRegression(ctx, in.Report, in.ModelID)
		if err != nil {
			return nil, err
		}

		res := CheckResult{
			ModelID:    in.ModelID,
			Key:        reg.Key,
			Score:      in.Report.OverallScore,
			Tier:       string(in.Report.Tier()),
			Regression: reg,
		}
		res.Passed, res.Reason = gate(cfg, reg)

		out.Summary.Total++
		if res.Passed {
			out.Summary.Passed++
		} else {
			out.Summary.Failed++
		}
		if !reg.HasBaseline {
			out.Summary.NoBaseline++
		}
		switch reg.Severity {
		case SeveritySevere:
			out.Summary.Severe++
		case SeverityModerate:
			out.Summary.Moderate++
		case SeverityMinor:
			out.Summary.Minor++
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

// gate decides pass/fail for one regression report.
func gate(cfg CheckConfig, reg *RegressionReport) (bool, string) {
	if reg.BelowFloor {
		return false, "score below quality floor"
	}
	if !reg.HasBaseline {
		if cfg.Strict {
			return false, "no baseline designated"
		}
		return true, "no baseline designated"
	}
	switch reg.Severity {
	case SeverityNone:
		return true, ""
	case SeverityMinor:
		if cfg.Strict {
			return false, "minor regression"
		}
		return true, "minor regression tolerated"
	case SeverityModerate:
		return false, "moderate regression"
	default:
		return false, "severe regression"
	}
}

// WriteJSON writes the check report as indented JSON.
func (r *CheckReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode check report")
	}
	return nil
}
