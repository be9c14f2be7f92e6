package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	"InsightHub/pkg/cache"
	pkgkafka "InsightHub/pkg/kafka"
)

type fakeProducer struct {
	batches map[string][]pkgkafka.Message
	fail    error
	closed  bool
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	if f.fail != nil {
		return f.fail
	}
	if f.batches == nil {
		f.batches = map[string][]pkgkafka.Message{}
	}
	f.batches[topic] = append(f.batches[topic], msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func sampleSynthesis() models.SynthesisResult {
	return models.SynthesisResult{
		UnifiedStrategy: models.StrategyAggressiveLong,
		RiskAssessment:  0.25,
		GeneratedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		InputCount:      2,
	}
}

func TestKafkaSynthesisPublisher(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaSynthesisPublisher(p, "synth", "fused")

	fused := []models.FusedInsight{{ID: "a", Subject: "BTC"}, {ID: "b", Subject: "ETH"}}
	require.NoError(t, pub.PublishSynthesis(context.Background(), sampleSynthesis(), fused))

	require.Len(t, p.batches["synth"], 1)
	assert.Equal(t, []byte("AggressiveLong"), p.batches["synth"][0].Key)
	require.Len(t, p.batches["fused"], 2)
	assert.Equal(t, []byte("ETH"), p.batches["fused"][1].Key)

	require.NoError(t, pub.Close())
	assert.True(t, p.closed)
}

func TestKafkaSynthesisPublisherSkipsFusedWithoutTopic(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaSynthesisPublisher(p, "synth", "")
	require.NoError(t, pub.PublishSynthesis(context.Background(), sampleSynthesis(), []models.FusedInsight{{ID: "a"}}))
	assert.Len(t, p.batches, 1)
}

func TestCacheSynthesisStore(t *testing.T) {
	ctx := context.Background()
	store := NewCacheSynthesisStore(cache.NewMemoryCache(cache.WithMemoryCleanup(0)), time.Minute)
	defer store.Close()

	_, ok, err := store.LatestSynthesis(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleSynthesis()
	require.NoError(t, store.PublishSynthesis(ctx, want, nil))

	got, ok, err := store.LatestSynthesis(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want.UnifiedStrategy, got.UnifiedStrategy)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
}

func TestMultiPublisherContinuesPastFailure(t *testing.T) {
	bad := NewKafkaSynthesisPublisher(&fakeProducer{fail: errors.New("broker down")}, "synth", "")
	good := &fakeProducer{}
	m := MultiPublisher{bad, NewKafkaSynthesisPublisher(good, "synth", "")}

	err := m.PublishSynthesis(context.Background(), sampleSynthesis(), nil)
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, good.batches["synth"], 1)
	assert.NoError(t, m.Close())
}

func TestCandleTable(t *testing.T) {
	assert.Equal(t, "insighthub.candles_5m", candleTable("insighthub", domrepo.Res5m))
	assert.Equal(t, "insighthub.candles_1m", candleTable("insighthub", domrepo.Resolution("2h")))
}

func TestAuditSchemaUsesDatabase(t *testing.T) {
	stmts := AuditSchema("audit")
	require.Len(t, stmts, 3)
	for _, s := range stmts {
		assert.Contains(t, s, "audit")
	}
}
