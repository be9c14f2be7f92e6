package fusion

import (
	"math"
	"time"

	"InsightHub/internal/domain/models"
	"InsightHub/pkg/config"
)

// Synthesizer reduces a fused set into one decision. It holds no state besides
// its parameters, so the same input always yields the same result.
type Synthesizer struct {
	p config.Fusion
}

func NewSynthesizer(p config.Fusion) *Synthesizer {
	return &Synthesizer{p: p}
}

// Synthesize returns the default result for an empty set. The caller supplies
// the timestamp so the computation stays pure.
func (s *Synthesizer) Synthesize(fused []models.FusedInsight, at time.Time) models.SynthesisResult {
	if len(fused) == 0 {
		return models.DefaultSynthesis(at)
	}

	n := float64(len(fused))
	tags := make([]models.Strategy, len(fused))
	buckets := make(map[models.Strategy]float64)
	sources := make(map[string]struct{})

	var sumConf, sumAct, sumAuth float64
	var anomalies, bullish, bearish int
	for i, f := range fused {
		tag := ClassifyImplication(f.Implication)
		tags[i] = tag
		buckets[tag] += f.Confidence * f.Actionability * f.AuthenticityScore

		sumConf += f.Confidence
		sumAct += f.Actionability
		sumAuth += f.AuthenticityScore

		if f.Kind == models.KindPatternAnomaly {
			anomalies++
		}
		switch {
		case tag.Bullish():
			bullish++
		case tag.Bearish():
			bearish++
		}
		for _, src := range f.ContributingSources {
			sources[src] = struct{}{}
		}
	}
	meanConf, meanAct, meanAuth := sumConf/n, sumAct/n, sumAuth/n

	strategy := selectStrategy(buckets)

	// conflictRatio is the share of the set taking part in a bull/bear opposition:
	// 0 when all directional views agree, 1 when they split evenly.
	conflictRatio := 2 * float64(min(bullish, bearish)) / n
	risk := s.p.RiskBase + s.p.RiskAnomalyStep*float64(anomalies) + conflictRatio*s.p.RiskConflictWeight
	risk *= 1 - meanAuth*s.p.RiskAuthenticityDamping
	risk = clamp(risk, s.p.RiskFloor, s.p.RiskCeiling)

	alignment := s.p.AlignmentFloor
	if len(sources) >= 2 {
		agreeing := 0
		for _, tag := range tags {
			if tag == strategy {
				agreeing++
			}
		}
		consensus := float64(agreeing) / n
		alignment = math.Min(s.p.AlignmentCap, consensus*float64(len(sources))/s.p.AlignmentSourceNorm)
	}

	return models.SynthesisResult{
		UnifiedStrategy:      strategy,
		RiskAssessment:       clamp01(risk),
		ProfitPotential:      clamp01(math.Min(s.p.ProfitCap, meanConf*meanAct)),
		ExecutionPriority:    clamp01(math.Min(s.p.PriorityCap, meanAct*meanAuth)),
		CrossSystemAlignment: clamp01(alignment),
		GeneratedAt:          at,
		InputCount:           len(fused),
	}
}

// selectStrategy picks the heaviest bucket; models.Strategies is in lexical
// order and only a strictly greater weight replaces the current pick.
func selectStrategy(buckets map[models.Strategy]float64) models.Strategy {
	best := models.StrategyAdaptiveNeutral
	bestWeight := math.Inf(-1)
	for _, tag := range models.Strategies {
		w, ok := buckets[tag]
		if !ok {
			continue
		}
		if w > bestWeight {
			best, bestWeight = tag, w
		}
	}
	return best
}
