//go:build wireinject
// +build wireinject

package di

import (
	"FlowTrack/pkg/config"
	"FlowTrack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSignalStore,
		ProvideSignalPublisher,
		ProvideBarProvider,
		ProvideFeedStream,

		// Use cases
		ProvideFlowDetector,
		ProvideSignalProcessor,
		ProvideKafkaSignalsHandler,
		ProvideTradeCollector,
		ProvideFlowQueries,
		ProvideChainScanner,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
