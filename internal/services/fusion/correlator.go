package fusion

import (
	"math"

	"InsightHub/internal/domain/models"
	"InsightHub/pkg/config"
)

// Correlator scores how related two insights are.
type Correlator struct {
	p config.Fusion
}

func NewCorrelator(p config.Fusion) *Correlator {
	return &Correlator{p: p}
}

// Score sums four independently capped terms and clamps the total to [0,1].
func (c *Correlator) Score(a, b models.Insight) float64 {
	var score float64

	if a.Timeframe == b.Timeframe {
		score += c.p.TimeframeWeight
	}

	overlap := float64(subjectOverlap(a, b))
	score += math.Min(c.p.SubjectOverlapCap, c.p.SubjectOverlapStep*overlap)

	score += math.Max(0, c.p.ConfidenceAlignment-math.Abs(a.Confidence-b.Confidence))
	score += math.Max(0, c.p.AuthenticityAlignment-c.p.AuthenticityPenalty*math.Abs(a.AuthenticityScore-b.AuthenticityScore))

	return clamp01(score)
}

// Correlated reports whether Score reaches the correlation threshold.
func (c *Correlator) Correlated(a, b models.Insight) bool {
	return c.Score(a, b) >= c.p.CorrelationThreshold
}

// subjectOverlap counts shared entries of {subject} ∪ correlatedSubjects.
func subjectOverlap(a, b models.Insight) int {
	sa := subjectSet(a)
	n := 0
	for s := range subjectSet(b) {
		if _, ok := sa[s]; ok {
			n++
		}
	}
	return n
}

func subjectSet(i models.Insight) map[string]struct{} {
	set := make(map[string]struct{}, len(i.CorrelatedSubjects)+1)
	set[i.Subject] = struct{}{}
	for _, s := range i.CorrelatedSubjects {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
