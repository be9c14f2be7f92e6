package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	pkgch "InsightHub/pkg/clickhouse"
	"InsightHub/pkg/config"
	xhttp "InsightHub/pkg/http"
	pkgkafka "InsightHub/pkg/kafka"
	applogger "InsightHub/pkg/logger"
	"InsightHub/pkg/queue"
)

// Scheduler drives the periodic work of the application.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner is a long-lived background loop that returns once ctx is done.
type Runner interface {
	Run(ctx context.Context)
}

type Option func(*App)

func WithRunners(rs ...Runner) Option {
	return func(a *App) { a.runners = append(a.runners, rs...) }
}

func WithKafkaConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

func WithQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.queue = q }
}

// WithClosers registers resources closed, in order, after everything else has stopped.
func WithClosers(cs ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, cs...) }
}

func WithClickHouse(c *pkgch.Client) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, c)
		}
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  Scheduler
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
	runners    []Runner
	closers    []io.Closer

	runnerWG     sync.WaitGroup
	cancelRunner context.CancelFunc
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, scheduler Scheduler, srv *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, log: l, scheduler: scheduler, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted or the HTTP server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		_ = a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.log.Error("http server failed", applogger.Error(runErr))
	}
	return errors.Join(runErr, a.shutdown())
}

func (a *App) start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancelRunner = cancel
	for _, r := range a.runners {
		a.runnerWG.Add(1)
		go func(r Runner) {
			defer a.runnerWG.Done()
			r.Run(runCtx)
		}(r)
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return fmt.Errorf("redis queue: %w", err)
		}
	}
	if err := a.scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	a.log.Info("insighthub started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("runners", len(a.runners)))
	return nil
}

// shutdown stops intake first, then cycles, then closes infrastructure.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis queue: %w", err))
		}
	}
	if a.cancelRunner != nil {
		a.cancelRunner()
		a.runnerWG.Wait()
	}

	// flush collected error logs while the producer is still open
	a.log.RemoveCollector()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Warn("shutdown finished with errors", applogger.Error(err))
	} else {
		a.log.Info("shutdown complete")
	}
	return err
}
