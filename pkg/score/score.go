// Package score composes the readability metrics and the optional visual
// similarity comparison into one combined quality score.
//
// The most common call pattern supplies no images: in that case the
// similarity component defaults to 1 and the combined score equals the
// readability score exactly, so callers that never render diagrams pay
// nothing for the image path.
package score

import (
	"github.com/archlens/archlens/pkg/imagecmp"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// BlendWeights controls how the readability and similarity scores blend
// into the combined score. Distinct from the structural/perceptual weights
// inside the image comparator; the two blends serve different purposes.
type BlendWeights struct {
	Readability float64 `json:"readability"`
	Similarity  float64 `json:"similarity"`
}

// DefaultBlend is the standard readability/similarity split.
var DefaultBlend = BlendWeights{Readability: 0.7, Similarity: 0.3}

// Breakdown retains the source report and comparison for audit. Comparison
// is nil when no images were supplied.
type Breakdown struct {
	Report     *metrics.LayoutQualityReport `json:"report"`
	Comparison *imagecmp.Result             `json:"comparison,omitempty"`
}

// CombinedQualityScore is the result of one evaluation. Immutable once
// produced.
type CombinedQualityScore struct {
	ReadabilityScore float64              `json:"readability_score"`
	SimilarityScore  float64              `json:"similarity_score"`
	Weights          BlendWeights         `json:"weights"`
	CombinedScore    float64              `json:"combined_score"`
	Tier             metrics.QualityTier  `json:"tier"`
	MeetsThreshold   bool                 `json:"meets_threshold"`
	Breakdown        Breakdown            `json:"breakdown"`
}

// Scorer evaluates layouts. A zero-configured Scorer from [NewScorer] uses
// the default blend, the shared acceptable-quality breakpoint, and default
// comparison options. Scorer holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	blend       BlendWeights
	threshold   float64
	compareOpts imagecmp.Options
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithBlend overrides the readability/similarity blend weights.
func WithBlend(w BlendWeights) Option {
	return func(s *Scorer) { s.blend = w }
}

// WithThreshold overrides the combined-score cutoff for MeetsThreshold.
func WithThreshold(t float64) Option {
	return func(s *Scorer) { s.threshold = t }
}

// WithCompareOptions overrides the image comparison options.
func WithCompareOptions(o imagecmp.Options) Option {
	return func(s *Scorer) { s.compareOpts = o }
}

// NewScorer creates a scorer with defaults, applying any options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		blend:       DefaultBlend,
		threshold:   metrics.BreakAcceptable,
		compareOpts: imagecmp.DefaultOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScoreLayout evaluates readability only. The similarity component defaults
// to 1 and the combined score is the readability score, exactly: no blend
// arithmetic is applied, so the identity holds bit-for-bit.
func (s *Scorer) ScoreLayout(l *layout.Layout, strategy layout.LayoutStrategy, category layout.DiagramCategory) (*CombinedQualityScore, error) {
	report, err := metrics.Calculate(l, strategy, category)
	if err != nil {
		return nil, err
	}

	combined := report.OverallScore
	return &CombinedQualityScore{
		ReadabilityScore: report.OverallScore,
		SimilarityScore:  1,
		Weights:          s.blend,
		CombinedScore:    combined,
		Tier:             metrics.Classify(combined),
		MeetsThreshold:   combined >= s.threshold,
		Breakdown:        Breakdown{Report: report},
	}, nil
}

// Score evaluates readability and, when both images are supplied, blends in
// visual similarity. Passing nil for either image falls back to
// [Scorer.ScoreLayout] semantics. The blend weights actually applied are
// echoed in the result so downstream consumers never re-derive them.
func (s *Scorer) Score(l *layout.Layout, strategy layout.LayoutStrategy, category layout.DiagramCategory, refImage, genImage []byte) (*CombinedQualityScore, error) {
	if refImage == nil || genImage == nil {
		return s.ScoreLayout(l, strategy, category)
	}

	report, err := metrics.Calculate(l, strategy, category)
	if err != nil {
		return nil, err
	}
	cmp, err := imagecmp.Compare(refImage, genImage, s.compareOpts)
	if err != nil {
		return nil, err
	}

	combined := s.blend.Readability*report.OverallScore + s.blend.Similarity*cmp.CombinedScore
	return &CombinedQualityScore{
		ReadabilityScore: report.OverallScore,
		SimilarityScore:  cmp.CombinedScore,
		Weights:          s.blend,
		CombinedScore:    combined,
		Tier:             metrics.Classify(combined),
		MeetsThreshold:   combined >= s.threshold,
		Breakdown:        Breakdown{Report: report, Comparison: cmp},
	}, nil
}
