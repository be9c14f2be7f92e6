package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightHub/internal/domain/models"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newInsight(id string, conf, act float64) models.Insight {
	return models.Insight{
		ID:                id,
		Subject:           "TKN",
		Kind:              models.KindMarketTrend,
		Source:            "test",
		Confidence:        conf,
		Actionability:     act,
		AuthenticityScore: 0.8,
		Timeframe:         models.TimeframeMinutes,
		CreatedAt:         t0,
		ExpiresAt:         t0.Add(time.Hour),
	}
}

func TestPutRejectsMalformed(t *testing.T) {
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return t0 }))

	bad := []models.Insight{
		newInsight("a", 1.2, 0.5),
		newInsight("b", 0.5, -0.1),
		func() models.Insight { in := newInsight("c", 0.5, 0.5); in.AuthenticityScore = 2; return in }(),
		func() models.Insight { in := newInsight("d", 0.5, 0.5); in.Subject = " "; return in }(),
	}
	for _, in := range bad {
		err := s.Put(in)
		assert.ErrorIs(t, err, models.ErrMalformedInsight, in.ID)
	}
	assert.Zero(t, s.Len())

	require.NoError(t, s.Put(newInsight("ok", 0, 1)))
	assert.Equal(t, 1, s.Len())
}

func TestPutReplacesByID(t *testing.T) {
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return t0 }))

	require.NoError(t, s.Put(newInsight("a", 0.1, 0.1)))
	require.NoError(t, s.Put(newInsight("a", 0.9, 0.9)))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotHidesExpired(t *testing.T) {
	now := t0
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return now }))

	short := newInsight("short", 0.5, 0.5)
	short.ExpiresAt = t0.Add(time.Minute)
	require.NoError(t, s.Put(short))
	require.NoError(t, s.Put(newInsight("long", 0.5, 0.5)))

	assert.Len(t, s.Snapshot(), 2)

	now = t0.Add(2 * time.Minute)
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "long", snap[0].ID)
	_, ok := s.Get("short")
	assert.False(t, ok)

	// hidden but still held until the sweep
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.EvictExpired())
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return t0 }))
	in := newInsight("a", 0.5, 0.5)
	in.CorrelatedSubjects = []string{"ETH"}
	require.NoError(t, s.Put(in))

	snap := s.Snapshot()
	snap[0].Confidence = 0.99
	snap[0].CorrelatedSubjects[0] = "BTC"

	got, _ := s.Get("a")
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, []string{"ETH"}, got.CorrelatedSubjects)
}

func TestEvictIfOverCapacityRemovesLowestWeight(t *testing.T) {
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return t0 }))
	weights := [][2]float64{{0.9, 0.9}, {0.5, 0.6}, {0.2, 0.3}, {0.8, 0.4}, {0.7, 0.7}}
	for i, w := range weights {
		require.NoError(t, s.Put(newInsight(fmt.Sprintf("i%d", i), w[0], w[1])))
	}

	n := len(weights)
	assert.Equal(t, 1, s.EvictIfOverCapacity(n-1))
	assert.Equal(t, n-1, s.Len())
	_, ok := s.Get("i2")
	assert.False(t, ok, "lowest confidence×actionability must be evicted")

	assert.Zero(t, s.EvictIfOverCapacity(n))
	assert.Zero(t, s.EvictIfOverCapacity(-1))
}

func TestPutEnforcesCapacity(t *testing.T) {
	s := NewMemoryInsightStore(WithCapacity(3), WithStoreClock(func() time.Time { return t0 }))
	for i, c := range []float64{0.6, 0.1, 0.9, 0.4} {
		require.NoError(t, s.Put(newInsight(fmt.Sprintf("i%d", i), c, 1)))
	}

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("i1")
	assert.False(t, ok)
}

func TestPutReportsEvictionOfNewInsight(t *testing.T) {
	s := NewMemoryInsightStore(WithCapacity(1), WithStoreClock(func() time.Time { return t0 }))
	require.NoError(t, s.Put(newInsight("hi", 0.9, 1)))

	err := s.Put(newInsight("lo", 0.1, 1))
	assert.ErrorIs(t, err, models.ErrEvictedOnAdmit)
	_, ok := s.Get("lo")
	assert.False(t, ok)
	_, ok = s.Get("hi")
	assert.True(t, ok)
}

func TestFusedSnapshot(t *testing.T) {
	now := t0
	s := NewMemoryInsightStore(WithStoreClock(func() time.Time { return now }))
	s.PutFused([]models.FusedInsight{
		{ID: "f1", ExpiresAt: t0.Add(time.Minute)},
		{ID: "f2", ExpiresAt: t0.Add(time.Hour)},
	})
	assert.Len(t, s.FusedSnapshot(), 2)

	now = t0.Add(5 * time.Minute)
	got := s.FusedSnapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "f2", got[0].ID)

	s.PutFused(nil)
	assert.Empty(t, s.FusedSnapshot())
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryInsightStore()
	s.Delete("nope")
	assert.Zero(t, s.Len())
}

func TestConcurrentPutAndSnapshot(t *testing.T) {
	s := NewMemoryInsightStore(WithCapacity(50), WithStoreClock(func() time.Time { return t0 }))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.Put(newInsight(fmt.Sprintf("w%d-%d", w, i), float64(i%10)/10, 0.5))
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
