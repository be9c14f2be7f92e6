package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	domsvc "InsightHub/internal/domain/service"
	"InsightHub/internal/middleware"
	"InsightHub/internal/services/fusion"
	"InsightHub/pkg/config"
	applogger "InsightHub/pkg/logger"
)

// InsightEngine runs the harvest, fuse and evict cycles and answers consumer queries.
type InsightEngine struct {
	cfg        config.Engine
	store      domrepo.InsightStore
	pipeline   *middleware.InsightPipeline
	harvesters []domsvc.Harvester
	fuser      *fusion.Fuser
	synth      *fusion.Synthesizer
	metrics    domrepo.Metrics
	log        *applogger.Logger

	publisher domrepo.SynthesisPublisher
	cache     domrepo.SynthesisCache
	audit     domrepo.AuditSink
	now       func() time.Time

	mu      sync.RWMutex
	current *models.SynthesisResult
}

type EngineOption func(*InsightEngine)

func WithPublisher(p domrepo.SynthesisPublisher) EngineOption {
	return func(e *InsightEngine) { e.publisher = p }
}

// WithSynthesisCache lets GetCurrentSynthesis fall back to the last published result after a restart.
func WithSynthesisCache(c domrepo.SynthesisCache) EngineOption {
	return func(e *InsightEngine) { e.cache = c }
}

func WithAuditSink(a domrepo.AuditSink) EngineOption {
	return func(e *InsightEngine) { e.audit = a }
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *InsightEngine) { e.now = now }
}

func NewInsightEngine(
	cfg config.Engine,
	store domrepo.InsightStore,
	pipeline *middleware.InsightPipeline,
	harvesters []domsvc.Harvester,
	fuser *fusion.Fuser,
	synth *fusion.Synthesizer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	opts ...EngineOption,
) *InsightEngine {
	if l == nil {
		l = applogger.Nop()
	}
	e := &InsightEngine{
		cfg:        cfg,
		store:      store,
		pipeline:   pipeline,
		harvesters: harvesters,
		fuser:      fuser,
		synth:      synth,
		metrics:    metrics,
		log:        l.Component("insight_engine"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Harvest calls every harvester concurrently, each under its own timeout, and admits
// what they return. A failing harvester is logged and left out of this cycle; the
// returned error joins all harvester failures.
func (e *InsightEngine) Harvest(ctx context.Context) error {
	type result struct {
		name string
		ins  []models.Insight
		err  error
		took time.Duration
	}
	ch := make(chan result, len(e.harvesters))
	var wg sync.WaitGroup
	for _, h := range e.harvesters {
		wg.Add(1)
		go func(h domsvc.Harvester) {
			defer wg.Done()
			start := time.Now()
			ins, err := e.fetch(ctx, h)
			ch <- result{name: h.Name(), ins: ins, err: err, took: time.Since(start)}
		}(h)
	}
	go func() { wg.Wait(); close(ch) }()

	var failures []error
	total := 0
	for r := range ch {
		e.metrics.RecordHarvest(r.name, len(r.ins), r.took.Seconds(), r.err)
		if r.err != nil {
			e.log.Warn("harvester failed",
				applogger.String("source", r.name),
				applogger.Duration("took", r.took),
				applogger.Error(r.err))
			failures = append(failures, r.err)
			continue
		}
		total += e.pipeline.AdmitBatch(ctx, r.name, r.ins)
	}

	e.log.Debug("harvest cycle done",
		applogger.Int("harvesters", len(e.harvesters)),
		applogger.Int("failed", len(failures)),
		applogger.Int("stored", total))
	return errors.Join(failures...)
}

// fetch isolates one harvester call: its own timeout, and a panic becomes an error.
func (e *InsightEngine) fetch(ctx context.Context, h domsvc.Harvester) ([]models.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HarvestTimeout)
	defer cancel()

	type fetched struct {
		ins []models.Insight
		err error
	}
	// buffered so an abandoned call can still finish and exit
	ch := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetched{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		ins, err := h.Fetch(ctx)
		ch <- fetched{ins: ins, err: err}
	}()

	select {
	case f := <-ch:
		if f.err != nil {
			return nil, &models.HarvestError{Source: h.Name(), Err: f.err}
		}
		return f.ins, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = models.ErrHarvesterTimeout
		}
		return nil, &models.HarvestError{Source: h.Name(), Err: err}
	}
}

// FuseCycle fuses the current snapshot, stores the fused set and synthesizes from its
// qualified members. Publication failures are returned but do not undo the cycle.
func (e *InsightEngine) FuseCycle(ctx context.Context) error {
	at := e.now().UTC()
	snapshot := e.store.Snapshot()
	fused := e.fuser.Fuse(snapshot)
	e.store.PutFused(fused)

	qualified := e.fuser.Qualified(fused)
	res := e.synth.Synthesize(qualified, at)

	e.mu.Lock()
	e.current = &res
	e.mu.Unlock()

	e.metrics.RecordStoreSize(len(snapshot), len(fused))
	e.metrics.RecordSynthesis(string(res.UnifiedStrategy), res.RiskAssessment, res.ProfitPotential,
		res.ExecutionPriority, res.CrossSystemAlignment)
	e.log.Info("synthesis",
		applogger.String("strategy", string(res.UnifiedStrategy)),
		applogger.Float64("risk", res.RiskAssessment),
		applogger.Float64("profit", res.ProfitPotential),
		applogger.Int("insights", len(snapshot)),
		applogger.Int("fused", len(fused)),
		applogger.Int("qualified", len(qualified)))

	var errs []error
	if e.publisher != nil {
		if err := e.publisher.PublishSynthesis(ctx, res, fused); err != nil {
			e.log.Error("publish synthesis failed", applogger.Error(err))
			errs = append(errs, fmt.Errorf("publish synthesis: %w", err))
		}
	}
	if e.audit != nil {
		snap := models.Snapshot{ExportedAt: at, Insights: snapshot, FusedInsights: fused, Synthesis: &res}
		if err := e.audit.WriteSnapshot(ctx, snap); err != nil {
			e.log.Error("audit snapshot failed", applogger.Error(err))
			errs = append(errs, fmt.Errorf("audit snapshot: %w", err))
		}
	}
	return errors.Join(errs...)
}

// EvictCycle drops expired insights, then the lowest-weight ones beyond capacity.
func (e *InsightEngine) EvictCycle(context.Context) error {
	expired := e.store.EvictExpired()
	overflow := e.store.EvictIfOverCapacity(e.cfg.StoreCapacity)
	e.metrics.RecordEvicted("expired", expired)
	e.metrics.RecordEvicted("capacity", overflow)
	e.metrics.RecordStoreSize(e.store.Len(), len(e.store.FusedSnapshot()))
	if expired+overflow > 0 {
		e.log.Debug("evicted insights", applogger.Int("expired", expired), applogger.Int("capacity", overflow))
	}
	return nil
}

// Ingest admits one insight pushed by an external producer.
func (e *InsightEngine) Ingest(ctx context.Context, in models.Insight) (models.Insight, error) {
	return e.pipeline.Ingest(ctx, in)
}

// GetActiveInsights returns the non-expired fused insights of the latest fuse cycle,
// ordered by confidence × actionability descending.
func (e *InsightEngine) GetActiveInsights(req models.ActiveInsightsRequest) []models.FusedInsight {
	fused := e.store.FusedSnapshot()
	out := fused[:0]
	for _, f := range fused {
		if req.Subject != "" && !strings.EqualFold(f.Subject, req.Subject) {
			continue
		}
		if req.Strategy != "" && string(f.Strategy) != req.Strategy {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Weight(), out[j].Weight()
		if wi != wj {
			return wi > wj
		}
		return out[i].ID < out[j].ID
	})
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out
}

// GetCurrentSynthesis returns the latest synthesis, falling back to the cache when
// no fuse cycle has run in this process yet.
func (e *InsightEngine) GetCurrentSynthesis(ctx context.Context) (models.SynthesisResult, bool) {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()
	if cur != nil {
		return *cur, true
	}
	if e.cache == nil {
		return models.SynthesisResult{}, false
	}
	res, ok, err := e.cache.LatestSynthesis(ctx)
	if err != nil {
		e.log.Warn("read cached synthesis failed", applogger.Error(err))
		return models.SynthesisResult{}, false
	}
	return res, ok
}

// GetMetrics summarizes the live raw insights. Strategy and risk come from the latest
// synthesis, or the default synthesis before the first fuse cycle.
func (e *InsightEngine) GetMetrics(ctx context.Context) models.EngineMetrics {
	snapshot := e.store.Snapshot()
	m := models.EngineMetrics{TotalInsights: len(snapshot)}

	sources := make(map[string]struct{})
	for _, in := range snapshot {
		m.AvgConfidence += in.Confidence
		m.AvgAuthenticity += in.AuthenticityScore
		sources[in.Source] = struct{}{}
	}
	if n := len(snapshot); n > 0 {
		m.AvgConfidence /= float64(n)
		m.AvgAuthenticity /= float64(n)
	}
	m.SourceDiversity = len(sources)

	res, ok := e.GetCurrentSynthesis(ctx)
	if !ok {
		res = models.DefaultSynthesis(e.now())
	}
	m.CurrentStrategy = res.UnifiedStrategy
	m.RiskLevel = res.RiskAssessment
	return m
}

// ExportSnapshot returns the live insights and fused set created at or after since
// (zero since exports everything) together with the latest synthesis.
func (e *InsightEngine) ExportSnapshot(ctx context.Context, since time.Time) models.Snapshot {
	snap := models.Snapshot{
		ExportedAt:    e.now().UTC(),
		Insights:      []models.Insight{},
		FusedInsights: []models.FusedInsight{},
	}
	for _, in := range e.store.Snapshot() {
		if since.IsZero() || !in.CreatedAt.Before(since) {
			snap.Insights = append(snap.Insights, in)
		}
	}
	for _, f := range e.store.FusedSnapshot() {
		if since.IsZero() || !f.CreatedAt.Before(since) {
			snap.FusedInsights = append(snap.FusedInsights, f)
		}
	}
	if res, ok := e.GetCurrentSynthesis(ctx); ok {
		snap.Synthesis = &res
	}
	return snap
}

// Harvesters returns the configured harvester names.
func (e *InsightEngine) Harvesters() []string {
	names := make([]string, 0, len(e.harvesters))
	for _, h := range e.harvesters {
		names = append(names, h.Name())
	}
	return names
}
