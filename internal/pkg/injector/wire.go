//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	analyticsbiz "github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	analyticsdata "github.com/lk2023060901/media-edge-backend/internal/analytics/data"
	assetbiz "github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	assetdata "github.com/lk2023060901/media-edge-backend/internal/asset/data"
	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	linkbiz "github.com/lk2023060901/media-edge-backend/internal/link/biz"
	linkdata "github.com/lk2023060901/media-edge-backend/internal/link/data"
	linkservice "github.com/lk2023060901/media-edge-backend/internal/link/service"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	// Data layer
	dataProviderSet,

	// Repositories
	repositoryProviderSet,

	// Use cases
	useCaseProviderSet,

	// HTTP services
	httpServiceProviderSet,

	// Servers
	serverProviderSet,
)

// Data layer providers
var dataProviderSet = wire.NewSet(
	provideData,
	provideKVStore,
	provideBlobStore,
	provideWorkerPool,
	provideRunner,
)

// Repository providers
var repositoryProviderSet = wire.NewSet(
	assetdata.NewAssetRepo,
	wire.Bind(new(assetbiz.AssetRepo), new(*assetdata.AssetRepo)),
	linkdata.NewLinkRepo,
	wire.Bind(new(linkbiz.LinkRepo), new(*linkdata.LinkRepo)),
	analyticsdata.NewEventRepo,
	wire.Bind(new(analyticsbiz.EventRepo), new(*analyticsdata.EventRepo)),
	analyticsdata.NewSnapshotRepo,
	wire.Bind(new(analyticsbiz.SnapshotRepo), new(*analyticsdata.SnapshotRepo)),
)

// Use case providers
var useCaseProviderSet = wire.NewSet(
	provideAddresser,
	provideAssetUseCase,
	provideAnalyticsUseCase,
	provideLinkUseCase,
	wire.Bind(new(linkbiz.AssetLookup), new(*assetbiz.AssetUseCase)),
	wire.Bind(new(linkbiz.ClickRecorder), new(*analyticsbiz.AnalyticsUseCase)),
	wire.Bind(new(linkbiz.Spawner), new(*background.Runner)),
)

// HTTP service providers
var httpServiceProviderSet = wire.NewSet(
	provideAssetService,
	linkservice.NewLinkService,
	provideAnalyticsService,
)

// Server providers
var serverProviderSet = wire.NewSet(
	server.NewHTTPServer,
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
