package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightHub/internal/domain/models"
	"InsightHub/internal/repository"
)

type countingMetrics struct {
	mu       sync.Mutex
	ingested map[string]int
	rejected map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{ingested: map[string]int{}, rejected: map[string]int{}}
}

func (m *countingMetrics) RecordIngested(source string) {
	m.mu.Lock()
	m.ingested[source]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordRejected(source, reason string) {
	m.mu.Lock()
	m.rejected[source+"/"+reason]++
	m.mu.Unlock()
}

func (*countingMetrics) RecordHarvest(string, int, float64, error)                  {}
func (*countingMetrics) RecordCycle(string, float64, error)                         {}
func (*countingMetrics) RecordCycleSkipped(string)                                  {}
func (*countingMetrics) RecordEvicted(string, int)                                  {}
func (*countingMetrics) RecordStoreSize(int, int)                                   {}
func (*countingMetrics) RecordSynthesis(string, float64, float64, float64, float64) {}

var now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func pushed(source string) models.Insight {
	return models.Insight{
		Subject:           " TKN ",
		Kind:              models.KindSentimentSignal,
		Source:            source,
		Confidence:        0.7,
		Actionability:     0.8,
		AuthenticityScore: 0.9,
		Implication:       "buy the dip",
		Timeframe:         "1h",
	}
}

func TestIngestFillsDefaults(t *testing.T) {
	store := repository.NewMemoryInsightStore(repository.WithStoreClock(func() time.Time { return now }))
	m := newCountingMetrics()
	p := NewInsightPipeline(store, m, WithDefaultTTL(5*time.Minute), WithPipelineClock(func() time.Time { return now }))

	got, err := p.Ingest(context.Background(), pushed("dex"))
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "TKN", got.Subject)
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, now.Add(5*time.Minute), got.ExpiresAt)
	assert.Equal(t, models.TimeframeHours, got.Timeframe)

	stored, ok := store.Get(got.ID)
	require.True(t, ok)
	assert.Equal(t, got, stored)
	assert.Equal(t, 1, m.ingested["dex"])
}

func TestIngestRejectsMalformed(t *testing.T) {
	store := repository.NewMemoryInsightStore()
	m := newCountingMetrics()
	p := NewInsightPipeline(store, m)

	in := pushed("dex")
	in.Confidence = 1.5
	_, err := p.Ingest(context.Background(), in)

	assert.ErrorIs(t, err, models.ErrMalformedInsight)
	assert.Zero(t, store.Len())
	assert.Equal(t, 1, m.rejected["dex/malformed"])
}

func TestIngestThrottlesPerSource(t *testing.T) {
	store := repository.NewMemoryInsightStore()
	m := newCountingMetrics()
	p := NewInsightPipeline(store, m, WithThrottle(2, 0))

	for i := 0; i < 2; i++ {
		_, err := p.Ingest(context.Background(), pushed("noisy"))
		require.NoError(t, err)
	}
	_, err := p.Ingest(context.Background(), pushed("noisy"))
	assert.ErrorIs(t, err, models.ErrThrottled)

	_, err = p.Ingest(context.Background(), pushed("quiet"))
	assert.NoError(t, err, "throttle is keyed by source")

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 1, m.rejected["noisy/throttled"])
}

func TestAdmitBatchSkipsBadInsightsAndIgnoresThrottle(t *testing.T) {
	store := repository.NewMemoryInsightStore()
	m := newCountingMetrics()
	p := NewInsightPipeline(store, m, WithThrottle(1, 0))

	bad := pushed("")
	bad.Kind = "Rumour"
	other := pushed("")
	other.Implication = "take profit"
	batch := []models.Insight{pushed(""), other, bad}

	n := p.AdmitBatch(context.Background(), "poller", batch)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, m.ingested["poller"])
	assert.Equal(t, 1, m.rejected["poller/malformed"])
}

func TestAdmitDerivesStableIDs(t *testing.T) {
	store := repository.NewMemoryInsightStore()
	p := NewInsightPipeline(store, newCountingMetrics())
	ctx := context.Background()

	first, err := p.Admit(ctx, pushed("poller"))
	require.NoError(t, err)
	again, err := p.Admit(ctx, pushed("poller"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, store.Len())

	elsewhere, err := p.Admit(ctx, pushed("scraper"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, elsewhere.ID)

	// pushed insights keep random ids
	a, err := p.Ingest(ctx, pushed("api"))
	require.NoError(t, err)
	b, err := p.Ingest(ctx, pushed("api"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAdmitReportsInsightDroppedByCapacity(t *testing.T) {
	store := repository.NewMemoryInsightStore(repository.WithCapacity(1))
	m := newCountingMetrics()
	p := NewInsightPipeline(store, m)
	ctx := context.Background()

	strong := pushed("feed")
	strong.Confidence, strong.Actionability = 0.9, 0.9
	_, err := p.Ingest(ctx, strong)
	require.NoError(t, err)

	weak := pushed("feed")
	weak.Confidence, weak.Actionability = 0.1, 0.1
	_, err = p.Ingest(ctx, weak)
	assert.ErrorIs(t, err, models.ErrEvictedOnAdmit)
	assert.Equal(t, 1, m.ingested["feed"])
	assert.Equal(t, 1, m.rejected["feed/capacity"])
	assert.Equal(t, 1, store.Len())
}
