package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"InsightHub/internal/domain/repository"
	domsvc "InsightHub/internal/domain/service"
	"InsightHub/internal/handler/api"
	mid "InsightHub/internal/middleware"
	internalrepo "InsightHub/internal/repository"
	"InsightHub/internal/services/analytics"
	"InsightHub/internal/services/fusion"
	"InsightHub/internal/services/harvest"
	"InsightHub/internal/usecase"
	"InsightHub/pkg/cache"
	pkgch "InsightHub/pkg/clickhouse"
	"InsightHub/pkg/config"
	xhttp "InsightHub/pkg/http"
	pkgkafka "InsightHub/pkg/kafka"
	applogger "InsightHub/pkg/logger"
	"InsightHub/pkg/metrics"
	"InsightHub/pkg/queue"
	"InsightHub/pkg/server"
)

// Harvesters is every configured insight source plus the ones that need a background loop.
type Harvesters struct {
	All     []domsvc.Harvester
	Runners []server.Runner
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates the engine metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideKafkaProducer returns nil when no brokers are configured. The producer logs
// through its own logger so its failures never loop back into the error collector.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}
	pl, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("producer logger: %w", err)
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
		pkgkafka.WithProducerLogger(pl),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. Error logs are aggregated and shipped to
// Kafka when a collector topic and a producer are available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.CollectorTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Log.CollectorFlush,
			Topic:        cfg.Log.CollectorTopic,
			Service:      "insighthub",
			Publisher:    producer,
		})
	}
	return l, nil
}

// ProvideKafkaConsumer returns nil unless an insights topic is configured.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.InsightsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.LoggingHook{Logger: l.Component("kafka_hook"), Slow: time.Second})
	return consumer, nil
}

// ProvideClickHouseClient connects and creates the audit schema; nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.AuditSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache returns nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideSynthesisStore keeps the latest synthesis in memory, backed by redis when enabled.
func ProvideSynthesisStore(cfg *config.Config, rc *cache.RedisCache) *internalrepo.CacheSynthesisStore {
	var svc cache.Service = cache.NewMemoryCache(cache.WithMemoryMaxSize(16))
	if rc != nil {
		svc = cache.NewLayeredCache(svc, rc, cache.WithL1TTL(cfg.Engine.FusePeriod))
	}
	return internalrepo.NewCacheSynthesisStore(svc, cfg.Redis.SynthesisTTL)
}

// ProvideSynthesisPublisher fans each synthesis out to the cache and, if configured, Kafka.
func ProvideSynthesisPublisher(cfg *config.Config, store *internalrepo.CacheSynthesisStore, producer *pkgkafka.Producer) repository.SynthesisPublisher {
	pubs := internalrepo.MultiPublisher{store}
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaSynthesisPublisher(producer, cfg.Kafka.SynthesisTopic, cfg.Kafka.FusedTopic))
	}
	return pubs
}

// ProvideAuditSink returns nil when clickhouse is disabled.
func ProvideAuditSink(cfg *config.Config, ch *pkgch.Client) repository.AuditSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseAuditSink(ch.DB(), cfg.ClickHouse.Database)
}

// ProvideInsightStore creates the single in-process insight store.
func ProvideInsightStore(cfg *config.Config) *internalrepo.MemoryInsightStore {
	return internalrepo.NewMemoryInsightStore(internalrepo.WithCapacity(cfg.Engine.StoreCapacity))
}

func ProvideInsightPipeline(cfg *config.Config, store repository.InsightStore, m repository.Metrics, l *applogger.Logger) *mid.InsightPipeline {
	return mid.NewInsightPipeline(store, m,
		mid.WithThrottle(cfg.Ingest.BurstPerSource, cfg.Ingest.RefillPerSecond),
		mid.WithDefaultTTL(cfg.Engine.DefaultTTL),
		mid.WithPipelineLogger(l),
	)
}

func ProvideFuser(cfg *config.Config) *fusion.Fuser {
	return fusion.NewFuser(cfg.Fusion, fusion.NewCorrelator(cfg.Fusion))
}

func ProvideSynthesizer(cfg *config.Config) *fusion.Synthesizer {
	return fusion.NewSynthesizer(cfg.Fusion)
}

// ProvideRedisQueue returns nil unless the redis work queue is enabled.
func ProvideRedisQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Redis.QueueEnabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.Config{
		Workers:     cfg.Redis.QueueWorkers,
		RetryLimit:  cfg.Redis.QueueRetries,
		RetryDelay:  5 * time.Second,
		PollTimeout: 2 * time.Second,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

// ProvideHarvesters builds every configured harvester and registers the push-based
// ones on their transports.
func ProvideHarvesters(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	ch *pkgch.Client,
) (Harvesters, error) {
	var hs Harvesters

	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Engine.HarvestTimeout), xhttp.WithRetry(1, 0))
	for _, h := range cfg.Harvesters.HTTP {
		hs.All = append(hs.All, harvest.NewHTTPHarvester(h.Name, h.URL, client))
	}

	for _, s := range cfg.Harvesters.Stream {
		sh := harvest.NewStreamHarvester(harvest.StreamConfig{
			Name:           s.Name,
			URL:            s.URL,
			Subjects:       s.Subjects,
			ReconnectDelay: s.ReconnectDelay,
			PingInterval:   s.PingInterval,
			BufferSize:     s.BufferSize,
		}, l)
		hs.All = append(hs.All, sh)
		hs.Runners = append(hs.Runners, sh)
	}

	if consumer != nil {
		kh := harvest.NewKafkaHarvester("kafka", cfg.Kafka.InsightsTopic, cfg.Kafka.BufferSize)
		consumer.RegisterHandler(kh)
		hs.All = append(hs.All, kh)
	}

	if q != nil {
		qh := harvest.NewQueueHarvester("queue", cfg.Kafka.BufferSize)
		q.RegisterJob(qh)
		hs.All = append(hs.All, qh)
	}

	if a := cfg.Harvesters.Analytics; a.Enabled {
		if ch == nil {
			return hs, fmt.Errorf("analytics harvester requires clickhouse")
		}
		store := internalrepo.NewCHFeatureStore(ch.DB(), cfg.ClickHouse.Database, l)
		svc := analytics.NewClient(cfg.Analytics.ServiceURL, cfg.Analytics.Timeout, cfg.Analytics.Retries)
		hs.All = append(hs.All, harvest.NewAnalyticsHarvester(harvest.AnalyticsConfig{
			Subjects:   a.Subjects,
			Bars:       a.Bars,
			Resolution: repository.NormalizeResolution(a.Interval),
			Horizon:    a.Horizon,
		}, store, svc, svc, svc, svc, l))
	}
	return hs, nil
}

func ProvideInsightEngine(
	cfg *config.Config,
	store repository.InsightStore,
	pipeline *mid.InsightPipeline,
	hs Harvesters,
	fuser *fusion.Fuser,
	synth *fusion.Synthesizer,
	m repository.Metrics,
	pub repository.SynthesisPublisher,
	synthStore *internalrepo.CacheSynthesisStore,
	audit repository.AuditSink,
	l *applogger.Logger,
) *usecase.InsightEngine {
	opts := []usecase.EngineOption{
		usecase.WithPublisher(pub),
		usecase.WithSynthesisCache(synthStore),
	}
	if audit != nil {
		opts = append(opts, usecase.WithAuditSink(audit))
	}
	return usecase.NewInsightEngine(cfg.Engine, store, pipeline, hs.All, fuser, synth, m, l, opts...)
}

func ProvideCycleScheduler(cfg *config.Config, engine *usecase.InsightEngine, m repository.Metrics, l *applogger.Logger) *usecase.CycleScheduler {
	return usecase.NewCycleScheduler(engine, cfg.Engine, m, l)
}

func ProvideHTTPHandler(l *applogger.Logger, engine *usecase.InsightEngine, sched *usecase.CycleScheduler) xhttp.Handler {
	return api.NewInsightsEchoHandler(l, engine, sched)
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l, cfg.Server.SlowRequest),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.CycleScheduler,
	srv *xhttp.Server,
	hs Harvesters,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	pub repository.SynthesisPublisher,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, l, sched, srv,
		server.WithRunners(hs.Runners...),
		server.WithKafkaConsumer(consumer),
		server.WithQueue(q),
		server.WithClosers(pub),
		server.WithClickHouse(ch),
	)
}
