//go:build wireinject
// +build wireinject

package di

import (
	"QuantPredict/pkg/config"
	"QuantPredict/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideHistoryStore,
		ProvideForecastSink,
		ProvideForecastPublisher,
		ProvideScalerStore,
		ProvideModelStore,

		// Use cases
		ProvideForecastUseCase,
		ProvideModelReadyHandler,
		ProvideRefreshScheduler,

		// HTTP
		ProvideRateLimiter,
		ProvidePredictHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
