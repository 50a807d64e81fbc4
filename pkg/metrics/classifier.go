package metrics

// QualityTier is the ordinal classification of an overall quality score.
type QualityTier string

// Quality tiers from best to worst.
const (
	TierExcellent    QualityTier = "excellent"
	TierGood         QualityTier = "good"
	TierAcceptable   QualityTier = "acceptable"
	TierPoor         QualityTier = "poor"
	TierUnacceptable QualityTier = "unacceptable"
)

// Score breakpoints shared by every consumer, so that "meets threshold"
// checks in the scorer, history service, and CI gate stay consistent.
const (
	BreakExcellent  = 0.9
	BreakGood       = 0.8
	BreakAcceptable = 0.7
	BreakPoor       = 0.5
)

// Classify maps an overall score to its quality tier. It is a total monotone
// step function: a higher score never yields a worse tier.
func Classify(score float64) QualityTier {
	switch {
	case score >= BreakExcellent:
		return TierExcellent
	case score >= BreakGood:
		return TierGood
	case score >= BreakAcceptable:
		return TierAcceptable
	case score >= BreakPoor:
		return TierPoor
	default:
		return TierUnacceptable
	}
}

// Rank returns the tier's ordinal position, 4 for excellent down to 0 for
// unacceptable. Unknown tiers rank below unacceptable.
func (t QualityTier) Rank() int {
	switch t {
	case TierExcellent:
		return 4
	case TierGood:
		return 3
	case TierAcceptable:
		return 2
	case TierPoor:
		return 1
	case TierUnacceptable:
		return 0
	default:
		return -1
	}
}
