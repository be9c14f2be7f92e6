package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"InsightHub/internal/domain/models"
)

func TestCorrelatorScoreFullOverlap(t *testing.T) {
	c := NewCorrelator(params())

	a := insight("a", "TKN", "dex", 0.8, 0.7, 0.9, "bullish")
	b := insight("b", "TKN", "social", 0.9, 0.8, 0.95, "bullish")
	a.CorrelatedSubjects = []string{"ETH", "BTC", "SOL"}
	b.CorrelatedSubjects = []string{"ETH", "BTC", "SOL"}

	// 0.2 timeframe + 0.4 overlap + 0.2 confidence + 0.075 authenticity
	assert.InDelta(t, 0.875, c.Score(a, b), 1e-9)
	assert.True(t, c.Correlated(a, b))
}

func TestCorrelatorScoreIsSymmetric(t *testing.T) {
	c := NewCorrelator(params())

	a := insight("a", "TKN", "dex", 0.2, 0.7, 0.3, "")
	b := insight("b", "ETH", "social", 0.9, 0.8, 0.95, "")
	b.CorrelatedSubjects = []string{"TKN"}
	b.Timeframe = models.TimeframeHours

	assert.Equal(t, c.Score(a, b), c.Score(b, a))
}

func TestCorrelatorTermsAreCapped(t *testing.T) {
	c := NewCorrelator(params())

	a := insight("a", "X", "s1", 0.5, 0.5, 0.5, "")
	b := insight("b", "X", "s2", 0.5, 0.5, 0.5, "")
	a.CorrelatedSubjects = []string{"A", "B", "C", "D", "E", "F"}
	b.CorrelatedSubjects = []string{"A", "B", "C", "D", "E", "F"}

	// overlap of 7 is capped at 0.4; total 0.2+0.4+0.3+0.1
	assert.InDelta(t, 1.0, c.Score(a, b), 1e-9)
}

func TestCorrelatorUnrelated(t *testing.T) {
	c := NewCorrelator(params())

	a := insight("a", "X", "s1", 0.1, 0.5, 0.1, "")
	b := insight("b", "Y", "s2", 0.9, 0.5, 1.0, "")
	b.Timeframe = models.TimeframeDays

	assert.Equal(t, 0.0, c.Score(a, b))
	assert.False(t, c.Correlated(a, b))
}

func TestCorrelatorDuplicateSubjectsCountedOnce(t *testing.T) {
	c := NewCorrelator(params())

	a := insight("a", "X", "s1", 0.5, 0.5, 0.5, "")
	b := insight("b", "Y", "s2", 0.5, 0.5, 0.5, "")
	a.CorrelatedSubjects = []string{"Z", "Z", "Z"}
	b.CorrelatedSubjects = []string{"Z"}

	assert.InDelta(t, 0.2+0.1+0.3+0.1, c.Score(a, b), 1e-9)
}
