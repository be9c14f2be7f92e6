package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightHub/internal/domain/models"
)

func correlatedPair() (models.Insight, models.Insight) {
	a := insight("a", "TKN", "dex-flow", 0.8, 0.7, 0.9, "bullish accumulation")
	b := insight("b", "TKN", "social", 0.9, 0.8, 0.95, "bullish breakout chatter")
	a.CorrelatedSubjects = []string{"ETH", "BTC", "SOL"}
	b.CorrelatedSubjects = []string{"SOL", "ETH", "BTC"}
	return a, b
}

func TestFuseMergesCorrelatedPair(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()

	out := f.Fuse([]models.Insight{a, b})
	require.Len(t, out, 1)

	got := out[0]
	assert.True(t, got.Merged)
	assert.Equal(t, "TKN", got.Subject)
	assert.InDelta(t, 0.98, got.Confidence, 1e-9)
	assert.InDelta(t, 0.8625, got.Actionability, 1e-9)
	assert.InDelta(t, (0.8*0.9+0.9*0.95)/1.7, got.AuthenticityScore, 1e-9)
	assert.Equal(t, []string{"dex-flow", "social"}, got.ContributingSources)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, got.CorrelatedSources)
	assert.Equal(t, []string{"b", "a"}, got.MemberIDs)
	assert.NotEmpty(t, got.ID)
}

func TestFuseSingletonPassesThroughUnchanged(t *testing.T) {
	f := NewFuser(params(), nil)
	in := insight("solo", "ABC", "oracle", 0.4, 0.5, 0.6, "hold steady")

	out := f.Fuse([]models.Insight{in})
	require.Len(t, out, 1)

	got := out[0]
	assert.False(t, got.Merged)
	assert.Equal(t, in.Confidence, got.Confidence)
	assert.Equal(t, in.Actionability, got.Actionability)
	assert.Equal(t, in.AuthenticityScore, got.AuthenticityScore)
	assert.Equal(t, models.StrategyConservativeHold, got.Strategy)
	assert.Equal(t, []string{"solo"}, got.MemberIDs)
	assert.Equal(t, in.ExpiresAt, got.ExpiresAt)
}

func TestFuseUncorrelatedMemberPassesThrough(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()
	c := insight("c", "TKN", "rumor-mill", 0.05, 0.3, 0.1, "moon soon")
	c.Timeframe = models.TimeframeDays

	out := f.Fuse([]models.Insight{c, a, b})
	require.Len(t, out, 2)

	assert.True(t, out[0].Merged)
	assert.ElementsMatch(t, []string{"a", "b"}, out[0].MemberIDs)
	assert.False(t, out[1].Merged)
	assert.Equal(t, []string{"c"}, out[1].MemberIDs)
	assert.Equal(t, 0.05, out[1].Confidence)
}

func TestFuseGroupsBySubject(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()
	other := insight("o", "AAA", "oracle", 0.6, 0.6, 0.6, "")

	out := f.Fuse([]models.Insight{a, other, b})
	require.Len(t, out, 2)
	assert.Equal(t, "AAA", out[0].Subject)
	assert.Equal(t, "TKN", out[1].Subject)
}

func TestFuseNeverLowersConfidence(t *testing.T) {
	f := NewFuser(params(), nil)
	confs := []float64{0.05, 0.1, 0.3, 0.5, 0.7, 0.9, 0.95, 0.98}

	for _, ca := range confs {
		for _, cb := range confs {
			a := insight("a", "TKN", "s1", ca, 0.5, 0.8, "")
			b := insight("b", "TKN", "s2", cb, 0.5, 0.8, "")
			a.CorrelatedSubjects = []string{"X", "Y", "Z"}
			b.CorrelatedSubjects = []string{"X", "Y", "Z"}
			require.True(t, f.corr.Correlated(a, b))

			out := f.Fuse([]models.Insight{a, b})
			require.Len(t, out, 1)
			got := out[0].Confidence
			assert.GreaterOrEqualf(t, got, ca, "conf %v %v", ca, cb)
			assert.GreaterOrEqualf(t, got, cb, "conf %v %v", ca, cb)
			assert.LessOrEqual(t, got, 0.98)
		}
	}
}

func TestFuseMajorityVote(t *testing.T) {
	f := NewFuser(params(), nil)
	mk := func(id string, conf float64, kind models.Kind, implication string) models.Insight {
		in := insight(id, "TKN", "src-"+id, conf, 0.8, 0.9, implication)
		in.Kind = kind
		in.CorrelatedSubjects = []string{"ETH", "BTC", "SOL"}
		return in
	}
	top := mk("top", 0.9, models.KindSentimentSignal, "bullish rally")
	bear1 := mk("bear1", 0.85, models.KindPatternAnomaly, "bearish dump incoming")
	bear2 := mk("bear2", 0.8, models.KindMarketTrend, "sell pressure building")

	out := f.Fuse([]models.Insight{bear2, top, bear1})
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, models.StrategyDefensiveShort, got.Strategy)
	assert.Equal(t, "bearish dump incoming", got.Implication)
	// every kind appears once, so the heaviest member decides
	assert.Equal(t, models.KindSentimentSignal, got.Kind)
}

func TestFuseExpiresWithEarliestMember(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()
	a.ExpiresAt = t0.Add(time.Minute)
	b.ExpiresAt = t0.Add(time.Hour)

	out := f.Fuse([]models.Insight{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, t0.Add(time.Minute), out[0].ExpiresAt)
}

func TestFuseDoesNotMutateInput(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()
	in := []models.Insight{a, b}
	before := []models.Insight{a.Clone(), b.Clone()}

	f.Fuse(in)
	assert.Equal(t, before, in)
}

func TestFuseIDsAreDeterministic(t *testing.T) {
	f := NewFuser(params(), nil)
	a, b := correlatedPair()

	first := f.Fuse([]models.Insight{a, b})
	second := f.Fuse([]models.Insight{b, a})
	assert.Equal(t, first, second)
}

func TestQualified(t *testing.T) {
	f := NewFuser(params(), nil)
	in := []models.FusedInsight{
		{ID: "ok", AuthenticityScore: 0.9, Actionability: 0.8},
		{ID: "low-auth", AuthenticityScore: 0.7, Actionability: 0.8},
		{ID: "low-act", AuthenticityScore: 0.9, Actionability: 0.6},
	}

	got := f.Qualified(in)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}
