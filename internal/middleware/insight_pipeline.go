package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	"InsightHub/internal/service/ratelimit"
	applogger "InsightHub/pkg/logger"
)

// Reject reasons reported to metrics.
const (
	RejectMalformed = "malformed"
	RejectThrottled = "throttled"
	RejectCapacity  = "capacity"
)

// harvestNamespace seeds the ids derived for harvested insights that arrive without one.
var harvestNamespace = uuid.MustParse("0b5e2f9d-3c71-4a8e-b6d4-91f0a27c4e38")

// InsightPipeline sits between every insight producer and the store.
// It fills defaults, validates, throttles pushed insights per source and writes to the store.
type InsightPipeline struct {
	store   domrepo.InsightStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	limiter *ratelimit.Limiter
	burst   float64
	refill  float64
	ttl     time.Duration
	now     func() time.Time
}

type PipelineOption func(*InsightPipeline)

// WithThrottle sets the per-source token bucket for Ingest. Zero burst disables it.
func WithThrottle(burst, refillPerSec float64) PipelineOption {
	return func(p *InsightPipeline) {
		p.burst = burst
		p.refill = refillPerSec
	}
}

// WithDefaultTTL sets the lifetime given to insights that arrive without expiresAt.
func WithDefaultTTL(d time.Duration) PipelineOption {
	return func(p *InsightPipeline) {
		if d > 0 {
			p.ttl = d
		}
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *InsightPipeline) { p.now = now }
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *InsightPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewInsightPipeline(store domrepo.InsightStore, metrics domrepo.Metrics, opts ...PipelineOption) *InsightPipeline {
	p := &InsightPipeline{
		store:   store,
		metrics: metrics,
		log:     applogger.Nop(),
		limiter: ratelimit.New(),
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Component("insight_pipeline")
	return p
}

// Ingest admits an insight pushed by an external producer, subject to the source throttle.
func (p *InsightPipeline) Ingest(ctx context.Context, in models.Insight) (models.Insight, error) {
	in = p.prepare(in, false)
	if !p.limiter.Allow(in.Source, p.burst, p.refill) {
		p.metrics.RecordRejected(in.Source, RejectThrottled)
		return in, fmt.Errorf("%w: %s", models.ErrThrottled, in.Source)
	}
	return p.admit(ctx, in)
}

// Admit stores a harvested insight. Harvest cycles are already paced by the scheduler,
// so no throttle applies. An insight without an id gets one derived from its content,
// so a source re-reporting the same observation replaces its previous copy.
func (p *InsightPipeline) Admit(ctx context.Context, in models.Insight) (models.Insight, error) {
	return p.admit(ctx, p.prepare(in, true))
}

// AdmitBatch admits every insight and returns how many were stored.
// Malformed insights are logged and skipped.
func (p *InsightPipeline) AdmitBatch(ctx context.Context, source string, batch []models.Insight) int {
	stored := 0
	for _, in := range batch {
		if in.Source == "" {
			in.Source = source
		}
		if _, err := p.Admit(ctx, in); err != nil {
			p.log.Warn("insight dropped",
				applogger.String("source", source),
				applogger.String("id", in.ID),
				applogger.Error(err))
			continue
		}
		stored++
	}
	return stored
}

func (p *InsightPipeline) admit(_ context.Context, in models.Insight) (models.Insight, error) {
	if err := p.store.Put(in); err != nil {
		reason := "store"
		switch {
		case errors.Is(err, models.ErrMalformedInsight):
			reason = RejectMalformed
		case errors.Is(err, models.ErrEvictedOnAdmit):
			reason = RejectCapacity
		}
		p.metrics.RecordRejected(in.Source, reason)
		return in, err
	}
	p.metrics.RecordIngested(in.Source)
	return in, nil
}

// prepare fills the fields a producer may leave empty. With derive set, a missing id is
// derived from the content instead of generated.
func (p *InsightPipeline) prepare(in models.Insight, derive bool) models.Insight {
	now := p.now().UTC()
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Source == "" {
		in.Source = "unknown"
	}
	if !in.Timeframe.Valid() {
		in.Timeframe = models.NormalizeTimeframe(string(in.Timeframe))
	}
	if in.ID == "" {
		if derive {
			in.ID = contentID(in)
		} else {
			in.ID = uuid.NewString()
		}
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if in.ExpiresAt.IsZero() {
		in.ExpiresAt = in.CreatedAt.Add(p.ttl)
	}
	return in
}

func contentID(in models.Insight) string {
	key := strings.Join([]string{
		in.Source,
		strings.ToUpper(in.Subject),
		string(in.Kind),
		string(in.Timeframe),
		strings.TrimSpace(in.Implication),
	}, "\x00")
	return uuid.NewSHA1(harvestNamespace, []byte(key)).String()
}
