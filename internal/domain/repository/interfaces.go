package repository

import (
	"context"

	"InsightHub/internal/domain/models"
)

// InsightStore is the single owner of insight lifetime. Implementations serialize writes.
type InsightStore interface {
	// Put inserts or replaces by id. Malformed insights are rejected with models.ErrMalformedInsight.
	Put(insight models.Insight) error
	Delete(id string)
	Get(id string) (models.Insight, bool)
	// Snapshot returns a copy of all non-expired insights.
	Snapshot() []models.Insight
	EvictExpired() int
	EvictIfOverCapacity(maxSize int) int
	Len() int

	// PutFused replaces the fused set produced by the latest fuse cycle.
	PutFused(fused []models.FusedInsight)
	FusedSnapshot() []models.FusedInsight
}

// Metrics records engine activity. The Prometheus recorder in pkg/metrics implements it.
type Metrics interface {
	RecordIngested(source string)
	RecordRejected(source, reason string)
	RecordHarvest(source string, count int, seconds float64, err error)
	RecordCycle(cycle string, seconds float64, err error)
	RecordCycleSkipped(cycle string)
	RecordEvicted(reason string, n int)
	RecordStoreSize(raw, fused int)
	RecordSynthesis(strategy string, risk, profit, priority, alignment float64)
}

// SynthesisPublisher delivers each synthesis result to downstream consumers.
type SynthesisPublisher interface {
	PublishSynthesis(ctx context.Context, res models.SynthesisResult, fused []models.FusedInsight) error
	Close() error
}

// SynthesisCache holds the latest synthesis so it survives a restart.
type SynthesisCache interface {
	LatestSynthesis(ctx context.Context) (models.SynthesisResult, bool, error)
}

// AuditSink persists snapshots for audit logging.
type AuditSink interface {
	WriteSnapshot(ctx context.Context, snap models.Snapshot) error
}

// Resolution is a candle bucket size in the feature store.
type Resolution string

const (
	Res1s Resolution = "1s"
	Res1m Resolution = "1m"
	Res5m Resolution = "5m"
)

// NormalizeResolution returns r if supported, otherwise 1m.
func NormalizeResolution(s string) Resolution {
	switch r := Resolution(s); r {
	case Res1s, Res1m, Res5m:
		return r
	default:
		return Res1m
	}
}

// FeatureStore provides read-only access to candles for market analytics.
type FeatureStore interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int, res Resolution) ([]models.Candle, error)
}
