//go:build wireinject
// +build wireinject

package di

import (
	"dsd/internal"
	"dsd/internal/client"
	"dsd/internal/controllers"
	"dsd/internal/dashboard"
	"dsd/internal/dashboard/interfaces"
	"dsd/internal/providers"
	"dsd/internal/services"
	"dsd/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		client.NewBackend,
		dashboard.NewResultFactory,
		services.NewDashboardService,
		wire.Bind(new(interfaces.SnapshotKeeperInterface), new(services.DashboardServiceInterface)),
		dashboard.NewZstdCompressor,
		dashboard.NewSnapshotStore,
		dashboard.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
