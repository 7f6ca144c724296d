//go:build wireinject
// +build wireinject

package di

import (
	"OIScanner/pkg/config"
	"OIScanner/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data sources
		ProvideExchangeManager,
		ProvideMarketCapProvider,

		// Strategy
		ProvideEngine,

		// Delivery
		ProvideHistory,
		ProvideHub,
		ProvideTelegram,
		ProvideKafkaNotifier,
		ProvideFanout,

		// Scan loop and HTTP read side
		ProvideOrchestrator,
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
