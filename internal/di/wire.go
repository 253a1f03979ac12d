//go:build wireinject
// +build wireinject

package di

import (
	"TickAttrib/pkg/config"
	"TickAttrib/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideEventLog,
		ProvideLogger,
		ProvideMetrics,

		// Case data and caches
		ProvideCaseLibrary,
		ProvideFailoverCache,
		ProvideAttribCache,

		// Attribution chain
		ProvideAttributor,
		ProvideResolver,

		// Replay
		ProvideReplayConfig,
		ProvideOrchestrator,

		// Transport
		ProvideHTTPHandler,

		// Optional infrastructure
		ProvideClickHouseClient,
		ProvideKafkaConsumer,
		ProvideRedisQueue,

		ProvideApp,
	)
	return &server.App{}, nil
}
