//go:build wireinject
// +build wireinject

package di

import (
	"LeoneAI/pkg/config"
	"LeoneAI/pkg/server"

	"github.com/google/wire"
)

var sessionSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideSessionBackend,
	ProvideSessionStore,
	ProvideHTTPClient,
	ProvideBackend,
	ProvideSessionManager,
	ProvideSettings,
	ProvideConverter,
	ProvideFeedClient,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		sessionSet,

		// Market data
		ProvideCoinGecko,
		ProvideLocalTicks,

		// Sinks
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideTickProcessor,
		ProvidePipeline,

		// Use cases
		ProvideTickCollector,
		ProvideCandles,
		ProvideDashboard,
		ProvideAdmin,

		// Local API
		ProvideRouter,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeConsole wires the dependencies of the one-shot commands.
func InitializeConsole(cfg *config.Config) (*Console, func(), error) {
	wire.Build(sessionSet, ProvideConsole)
	return nil, nil, nil
}
