//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

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
		ProvideCache,
		ProvideKafkaProducer,
		ProvideBackend,

		// Event delivery
		ProvideEventPublisher,
		ProvideRunEventPipeline,

		// Use cases
		ProvideSessionStore,
		ProvideLimiter,

		// HTTP
		ProvideClockHandler,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
