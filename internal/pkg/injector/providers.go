package injector

import (
	analyticsbiz "github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	analyticsservice "github.com/lk2023060901/media-edge-backend/internal/analytics/service"
	assetbiz "github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	assetservice "github.com/lk2023060901/media-edge-backend/internal/asset/service"
	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	"github.com/lk2023060901/media-edge-backend/internal/data"
	linkbiz "github.com/lk2023060901/media-edge-backend/internal/link/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/workerpool"
)

// Data layer helpers

func provideData(config *conf.Config, log *logger.Logger) (*data.Data, func(), error) {
	return data.NewData(config, log)
}

func provideKVStore(d *data.Data) kvstore.Store {
	return d.KV
}

func provideBlobStore(d *data.Data) assetbiz.BlobStore {
	return d.Blobs
}

func provideWorkerPool(config *conf.Config, log *logger.Logger) (*workerpool.Pool, error) {
	cfg := config.Background.Config
	return workerpool.New(&cfg, log.Logger)
}

// 池由 Runner.Shutdown 释放
func provideRunner(pool *workerpool.Pool, config *conf.Config, log *logger.Logger) *background.Runner {
	return background.NewRunner(pool, log, config.Background.TaskTimeout)
}

// Use case helpers

func provideAddresser(config *conf.Config) (*assetbiz.Addresser, error) {
	return assetbiz.NewAddresser(config.Addressing.Algorithm, config.Addressing.IDLength)
}

func provideAssetUseCase(
	blobs assetbiz.BlobStore,
	repo assetbiz.AssetRepo,
	addr *assetbiz.Addresser,
	config *conf.Config,
	log *logger.Logger,
) *assetbiz.AssetUseCase {
	return assetbiz.NewAssetUseCase(blobs, repo, addr, config.Server.PublicBaseURL, log)
}

func provideAnalyticsUseCase(
	events analyticsbiz.EventRepo,
	snapshots analyticsbiz.SnapshotRepo,
	config *conf.Config,
	log *logger.Logger,
) *analyticsbiz.AnalyticsUseCase {
	return analyticsbiz.NewAnalyticsUseCase(events, snapshots, config.Analytics.EventTTL, log)
}

func provideLinkUseCase(
	repo linkbiz.LinkRepo,
	assets linkbiz.AssetLookup,
	clicks linkbiz.ClickRecorder,
	spawner linkbiz.Spawner,
	config *conf.Config,
	log *logger.Logger,
) *linkbiz.LinkUseCase {
	return linkbiz.NewLinkUseCase(repo, assets, clicks, spawner, config.Server.PublicBaseURL, log)
}

// HTTP service helpers

func provideAssetService(uc *assetbiz.AssetUseCase, config *conf.Config, log *logger.Logger) *assetservice.AssetService {
	return assetservice.NewAssetService(uc, log, config.Server.MaxUploadBytes())
}

func provideAnalyticsService(uc *analyticsbiz.AnalyticsUseCase, config *conf.Config, log *logger.Logger) *analyticsservice.AnalyticsService {
	return analyticsservice.NewAnalyticsService(uc, log, config.Analytics.MetricsMaxAge)
}
