package fusion

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"InsightHub/internal/domain/models"
	"InsightHub/pkg/config"
)

// fusedNamespace seeds the deterministic ids of fused insights.
var fusedNamespace = uuid.MustParse("6f1c3a52-8f43-4c59-9a7e-2b1d7c0e5a11")

// Fuser groups insights by subject and merges correlated members.
type Fuser struct {
	p    config.Fusion
	corr *Correlator
}

func NewFuser(p config.Fusion, corr *Correlator) *Fuser {
	if corr == nil {
		corr = NewCorrelator(p)
	}
	return &Fuser{p: p, corr: corr}
}

// Fuse never mutates its input. Output is ordered by subject, then by weight descending.
func (f *Fuser) Fuse(snapshot []models.Insight) []models.FusedInsight {
	groups := make(map[string][]models.Insight)
	for _, in := range snapshot {
		groups[in.Subject] = append(groups[in.Subject], in)
	}
	subjects := make([]string, 0, len(groups))
	for s := range groups {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	out := make([]models.FusedInsight, 0, len(snapshot))
	for _, subject := range subjects {
		out = append(out, f.fuseGroup(groups[subject])...)
	}
	return out
}

func (f *Fuser) fuseGroup(group []models.Insight) []models.FusedInsight {
	sortByWeight(group)
	if len(group) == 1 {
		return []models.FusedInsight{passThrough(group[0])}
	}

	n := len(group)
	hasPartner := make([]bool, n)
	// partnerConf collects conf_j for every correlated ordered pair (i, j).
	var partnerConf []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || !f.corr.Correlated(group[i], group[j]) {
				continue
			}
			hasPartner[i] = true
			partnerConf = append(partnerConf, group[j].Confidence)
		}
	}

	var merged []models.Insight
	var out []models.FusedInsight
	for i, in := range group {
		if hasPartner[i] {
			merged = append(merged, in)
		} else {
			out = append(out, passThrough(in))
		}
	}
	if len(merged) > 0 {
		out = append(out, f.merge(merged, partnerConf))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight() > out[j].Weight() })
	return out
}

// merge combines members, which must already be ordered by weight descending.
func (f *Fuser) merge(members []models.Insight, partnerConf []float64) models.FusedInsight {
	var sumConf, sumAct, sumWeightedAuth, sumAuth, maxConf float64
	for _, m := range members {
		sumConf += m.Confidence
		sumAct += m.Actionability
		sumWeightedAuth += m.Confidence * m.AuthenticityScore
		sumAuth += m.AuthenticityScore
		maxConf = math.Max(maxConf, m.Confidence)
	}
	n := float64(len(members))

	conf := (sumConf/n)*f.p.ConfidenceBoost + mean(partnerConf)*f.p.PartnerWeight
	// fusion never lowers confidence below its strongest member
	conf = math.Min(f.p.ConfidenceCap, math.Max(conf, maxConf))

	act := math.Min(f.p.ActionabilityCap, (sumAct/n)*f.p.ActionabilityBoost)

	auth := sumAuth / n
	if sumConf > 0 {
		auth = sumWeightedAuth / sumConf
	}

	kind := vote(members, func(m models.Insight) models.Kind { return m.Kind })
	strategy := vote(members, func(m models.Insight) models.Strategy { return ClassifyImplication(m.Implication) })
	timeframe := vote(members, func(m models.Insight) models.Timeframe { return m.Timeframe })

	var implication string
	for _, m := range members {
		if ClassifyImplication(m.Implication) == strategy {
			implication = m.Implication
			break
		}
	}

	fused := models.FusedInsight{
		Subject:             members[0].Subject,
		Kind:                kind,
		Implication:         implication,
		Strategy:            strategy,
		Timeframe:           timeframe,
		Confidence:          clamp01(conf),
		Actionability:       clamp01(act),
		AuthenticityScore:   clamp01(auth),
		ContributingSources: union(members, func(m models.Insight) []string { return []string{m.Source} }),
		CorrelatedSources:   union(members, func(m models.Insight) []string { return m.CorrelatedSubjects }),
		Merged:              true,
	}
	for _, m := range members {
		fused.MemberIDs = append(fused.MemberIDs, m.ID)
		if m.CreatedAt.After(fused.CreatedAt) {
			fused.CreatedAt = m.CreatedAt
		}
		if !m.ExpiresAt.IsZero() && (fused.ExpiresAt.IsZero() || m.ExpiresAt.Before(fused.ExpiresAt)) {
			fused.ExpiresAt = m.ExpiresAt
		}
	}
	fused.ID = fusedID(fused.MemberIDs)
	return fused
}

// Qualified keeps the fused insights trusted and actionable enough for synthesis.
func (f *Fuser) Qualified(fused []models.FusedInsight) []models.FusedInsight {
	out := make([]models.FusedInsight, 0, len(fused))
	for _, fi := range fused {
		if fi.AuthenticityScore > f.p.MinAuthenticity && fi.Actionability > f.p.MinActionability {
			out = append(out, fi)
		}
	}
	return out
}

func passThrough(in models.Insight) models.FusedInsight {
	var correlated []string
	if len(in.CorrelatedSubjects) > 0 {
		correlated = union([]models.Insight{in}, func(m models.Insight) []string { return m.CorrelatedSubjects })
	}
	return models.FusedInsight{
		ID:                  fusedID([]string{in.ID}),
		Subject:             in.Subject,
		Kind:                in.Kind,
		Implication:         in.Implication,
		Strategy:            ClassifyImplication(in.Implication),
		Timeframe:           in.Timeframe,
		Confidence:          in.Confidence,
		Actionability:       in.Actionability,
		AuthenticityScore:   in.AuthenticityScore,
		ContributingSources: []string{in.Source},
		CorrelatedSources:   correlated,
		MemberIDs:           []string{in.ID},
		CreatedAt:           in.CreatedAt,
		ExpiresAt:           in.ExpiresAt,
	}
}

// vote returns the most frequent key. Members are ordered by weight descending,
// so on a tie the key of the heaviest member among the tied keys wins.
func vote[K comparable](members []models.Insight, key func(models.Insight) K) K {
	counts := make(map[K]int, len(members))
	best := 0
	for _, m := range members {
		k := key(m)
		counts[k]++
		if counts[k] > best {
			best = counts[k]
		}
	}
	for _, m := range members {
		if k := key(m); counts[k] == best {
			return k
		}
	}
	var zero K
	return zero
}

func union(members []models.Insight, values func(models.Insight) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range members {
		for _, v := range values(m) {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sortByWeight(xs []models.Insight) {
	sort.SliceStable(xs, func(i, j int) bool {
		wi, wj := xs[i].Weight(), xs[j].Weight()
		if wi != wj {
			return wi > wj
		}
		return xs[i].ID < xs[j].ID
	})
}

func fusedID(memberIDs []string) string {
	ids := append([]string(nil), memberIDs...)
	sort.Strings(ids)
	return uuid.NewSHA1(fusedNamespace, []byte(strings.Join(ids, "\x00"))).String()
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
