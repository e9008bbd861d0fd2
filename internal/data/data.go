package data

import (
	"context"
	"fmt"

	assetbiz "github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	assetdata "github.com/lk2023060901/media-edge-backend/internal/asset/data"
	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/database"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	pkgminio "github.com/lk2023060901/media-edge-backend/internal/pkg/minio"
	pkgredis "github.com/lk2023060901/media-edge-backend/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data 共享存储：blob 存储与 KV/计数存储
type Data struct {
	KV     kvstore.Store
	Blobs  assetbiz.BlobStore
	Redis  *pkgredis.Client
	DB     *database.DB
	MinIO  *pkgminio.Client
	Logger *logger.Logger
}

// NewData 按配置选择驱动并建立连接；返回的 cleanup 按打开的逆序释放资源
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{Logger: log}

	var closers []func()
	cleanup := func() {
		log.Info("cleaning up data resources")
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Data, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// KV / 计数存储
	switch config.Storage.KVDriver {
	case conf.KVDriverRedis:
		client, err := pkgredis.New(&config.Redis, log)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		})
		d.Redis = client
		d.KV = kvstore.NewRedis(client)

	case conf.KVDriverPostgres:
		db, err := database.New(&config.Database, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init database: %w", err))
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}
		})

		store, err := kvstore.NewPostgres(db)
		if err != nil {
			return fail(fmt.Errorf("failed to init postgres kv: %w", err))
		}

		// Postgres 没有原生过期，定期清理
		janitor := background.NewJanitor(store, config.Background.JanitorInterval, log)
		if err := janitor.Start(context.Background()); err != nil {
			return fail(err)
		}
		closers = append(closers, janitor.Stop)

		d.DB = db
		d.KV = store

	case conf.KVDriverMemory:
		log.Warn("using in-memory kv store, data is lost on restart")
		d.KV = kvstore.NewMemory()

	default:
		return fail(fmt.Errorf("unknown kv driver %q", config.Storage.KVDriver))
	}

	// Blob 存储
	switch config.Storage.BlobDriver {
	case conf.BlobDriverMinIO:
		client, err := pkgminio.NewClient(&config.MinIO, log.Logger)
		if err != nil {
			return fail(fmt.Errorf("failed to init minio: %w", err))
		}
		closers = append(closers, func() { _ = client.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), config.MinIO.ConnectTimeout)
		err = client.EnsureBucket(ctx, config.Storage.Bucket)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("failed to ensure bucket %s: %w", config.Storage.Bucket, err))
		}

		d.MinIO = client
		d.Blobs = assetdata.NewMinIOBlobStore(client, config.Storage.Bucket)

	case conf.BlobDriverMemory:
		log.Warn("using in-memory blob store, data is lost on restart")
		d.Blobs = assetdata.NewMemoryBlobStore()

	default:
		return fail(fmt.Errorf("unknown blob driver %q", config.Storage.BlobDriver))
	}

	log.Info("data layer initialized",
		zap.String("kv_driver", config.Storage.KVDriver),
		zap.String("blob_driver", config.Storage.BlobDriver))

	return d, cleanup, nil
}
