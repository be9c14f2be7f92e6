package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	"InsightHub/pkg/config"
	applogger "InsightHub/pkg/logger"
)

// CycleFunc is one unit of periodic work.
type CycleFunc func(ctx context.Context) error

type cycle struct {
	typ     models.CycleType
	period  time.Duration
	run     CycleFunc
	running atomic.Bool

	mu     sync.Mutex
	status models.CycleStatus
}

// CycleScheduler drives independent periodic cycles. Each cycle type runs at most once
// at a time: a tick that finds it still running is skipped and counted, never queued.
type CycleScheduler struct {
	cycles  []*cycle
	metrics domrepo.Metrics
	log     *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCycleScheduler registers the engine's harvest, fuse and evict cycles.
func NewCycleScheduler(engine *InsightEngine, cfg config.Engine, metrics domrepo.Metrics, l *applogger.Logger) *CycleScheduler {
	s := newScheduler(metrics, l)
	s.Register(models.CycleHarvest, cfg.HarvestPeriod, engine.Harvest)
	s.Register(models.CycleFuse, cfg.FusePeriod, engine.FuseCycle)
	s.Register(models.CycleEvict, cfg.EvictPeriod, engine.EvictCycle)
	return s
}

func newScheduler(metrics domrepo.Metrics, l *applogger.Logger) *CycleScheduler {
	if l == nil {
		l = applogger.Nop()
	}
	return &CycleScheduler{metrics: metrics, log: l.Component("cycle_scheduler")}
}

// Register adds a cycle. It must be called before Start.
func (s *CycleScheduler) Register(typ models.CycleType, period time.Duration, run CycleFunc) {
	c := &cycle{typ: typ, period: period, run: run}
	c.status = models.CycleStatus{Type: typ, State: models.CycleIdle, Period: period}
	s.cycles = append(s.cycles, c)
}

// Start launches one ticker loop per cycle. Every cycle also runs once immediately.
func (s *CycleScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, c := range s.cycles {
		s.wg.Add(1)
		go s.loop(ctx, c)
	}
	s.log.Info("scheduler started", applogger.Int("cycles", len(s.cycles)))
	return nil
}

// Stop schedules nothing further and waits, bounded by ctx, for in-flight cycles.
// A stopped scheduler may be started again.
func (s *CycleScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for cycles to finish: %w", ctx.Err())
	}
}

func (s *CycleScheduler) loop(ctx context.Context, c *cycle) {
	defer s.wg.Done()

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	s.dispatch(ctx, c)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, c)
		}
	}
}

// dispatch starts the cycle in its own goroutine so a slow run shows up as skipped ticks.
func (s *CycleScheduler) dispatch(ctx context.Context, c *cycle) {
	if !c.running.CompareAndSwap(false, true) {
		s.skip(c)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// in-flight cycles finish even when Stop cancels ctx
		s.execute(context.WithoutCancel(ctx), c)
	}()
}

// Trigger runs the cycle synchronously. It reports false, without running, when the
// cycle is already in progress.
func (s *CycleScheduler) Trigger(ctx context.Context, typ models.CycleType) (bool, error) {
	c := s.find(typ)
	if c == nil {
		return false, fmt.Errorf("unknown cycle %q", typ)
	}
	if !c.running.CompareAndSwap(false, true) {
		s.skip(c)
		return false, nil
	}
	return true, s.execute(ctx, c)
}

// execute expects c.running to be held and releases it.
func (s *CycleScheduler) execute(ctx context.Context, c *cycle) error {
	defer c.running.Store(false)

	start := time.Now()
	c.mu.Lock()
	c.status.State = models.CycleRunning
	c.status.LastRun = start
	c.mu.Unlock()

	err := c.run(ctx)
	took := time.Since(start)

	c.mu.Lock()
	c.status.State = models.CycleIdle
	c.status.Runs++
	c.status.LastDuration = took
	c.status.LastError = ""
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.mu.Unlock()

	s.metrics.RecordCycle(string(c.typ), took.Seconds(), err)
	if err != nil {
		s.log.Warn("cycle finished with errors",
			applogger.String("cycle", string(c.typ)),
			applogger.Duration("took", took),
			applogger.Error(err))
	}
	return err
}

func (s *CycleScheduler) skip(c *cycle) {
	c.mu.Lock()
	c.status.Skipped++
	c.mu.Unlock()
	s.metrics.RecordCycleSkipped(string(c.typ))
	s.log.Warn("cycle still running, tick skipped", applogger.String("cycle", string(c.typ)))
}

// Status reports every cycle in registration order.
func (s *CycleScheduler) Status() []models.CycleStatus {
	out := make([]models.CycleStatus, 0, len(s.cycles))
	for _, c := range s.cycles {
		c.mu.Lock()
		out = append(out, c.status)
		c.mu.Unlock()
	}
	return out
}

func (s *CycleScheduler) find(typ models.CycleType) *cycle {
	for _, c := range s.cycles {
		if c.typ == typ {
			return c
		}
	}
	return nil
}
