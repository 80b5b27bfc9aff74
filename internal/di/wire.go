//go:build wireinject
// +build wireinject

package di

import (
	"FlipScan/pkg/config"
	"FlipScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,

		// Repositories
		ProvideSnapshotStorage,
		ProvideSnapshotPublisher,
		ProvideHistoryStore,
		ProvideSnapshotSource,

		// Use cases
		ProvideSnapshotProcessor,
		ProvideSnapshotCollector,
		ProvideKafkaSnapshotsHandler,
		ProvideScanUseCase,
		ProvideHistoryUseCase,
		ProvideBackfillJob,
		ProvideQueue,
		ProvideBackfillUseCase,

		// HTTP
		ProvideFlipsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
