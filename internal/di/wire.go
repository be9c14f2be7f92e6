//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"InsightHub/internal/domain/repository"
	internalrepo "InsightHub/internal/repository"
	"InsightHub/pkg/config"
	"InsightHub/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideRegistry,
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideRedisQueue,

		// Repositories
		ProvideInsightStore,
		wire.Bind(new(repository.InsightStore), new(*internalrepo.MemoryInsightStore)),
		ProvideSynthesisStore,
		ProvideSynthesisPublisher,
		ProvideAuditSink,

		// Engine
		ProvideInsightPipeline,
		ProvideFuser,
		ProvideSynthesizer,
		ProvideHarvesters,
		ProvideInsightEngine,
		ProvideCycleScheduler,

		// Application server
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
