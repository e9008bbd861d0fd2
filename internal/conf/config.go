package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	assetbiz "github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/database"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	pkgminio "github.com/lk2023060901/media-edge-backend/internal/pkg/minio"
	pkgredis "github.com/lk2023060901/media-edge-backend/internal/pkg/redis"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/workerpool"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 MEDIA_SERVER_PORT
const EnvPrefix = "MEDIA"

// 存储驱动
const (
	BlobDriverMinIO  = "minio"
	BlobDriverMemory = "memory"

	KVDriverRedis    = "redis"
	KVDriverPostgres = "postgres"
	KVDriverMemory   = "memory"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Addressing AddressingConfig `mapstructure:"addressing"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Background BackgroundConfig `mapstructure:"background"`
	Redis      pkgredis.Config  `mapstructure:"redis"`
	MinIO      pkgminio.Config  `mapstructure:"minio"`
	Database   database.Config  `mapstructure:"database"`
	Log        logger.Config    `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MaxUploadBytes 上传体积上限（字节）
func (c *ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

type StorageConfig struct {
	BlobDriver string `mapstructure:"blob_driver"`
	KVDriver   string `mapstructure:"kv_driver"`
	Bucket     string `mapstructure:"bucket"`
}

type AddressingConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	IDLength  int    `mapstructure:"id_length"`
}

type AnalyticsConfig struct {
	EventTTL      time.Duration `mapstructure:"event_ttl"`
	MetricsMaxAge time.Duration `mapstructure:"metrics_max_age"`
}

type CORSConfig struct {
	AllowOrigins  []string      `mapstructure:"allow_origins"`
	AllowMethods  []string      `mapstructure:"allow_methods"`
	AllowHeaders  []string      `mapstructure:"allow_headers"`
	ExposeHeaders []string      `mapstructure:"expose_headers"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

type BackgroundConfig struct {
	workerpool.Config `mapstructure:",squash"`
	TaskTimeout       time.Duration `mapstructure:"task_timeout"`
	JanitorInterval   time.Duration `mapstructure:"janitor_interval"` // 仅 postgres KV 使用，清理过期行
}

// NewFlagSet 命令行参数；优先级高于环境变量和配置文件
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "configs/config.yaml", "config file path")
	fs.IntP("port", "p", 0, "HTTP listen port")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	return fs
}

// 命令行参数与配置键的对应关系
var flagKeys = map[string]string{
	"port":      "server.port",
	"log-level": "log.level",
}

// LoadConfig 加载配置：flag > 环境变量 > 配置文件 > 默认值。
// path 为空时不读取文件；flags 可为 nil。
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.MinIO.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.blob_driver", BlobDriverMinIO)
	v.SetDefault("storage.kv_driver", KVDriverRedis)
	v.SetDefault("storage.bucket", "media-assets")

	v.SetDefault("addressing.algorithm", assetbiz.AlgorithmSHA256)
	v.SetDefault("addressing.id_length", assetbiz.DefaultIDLength)

	v.SetDefault("analytics.event_ttl", 24*time.Hour)
	v.SetDefault("analytics.metrics_max_age", 5*time.Minute)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.allow_methods", []string{"GET", "HEAD", "POST", "OPTIONS"})
	v.SetDefault("cors.allow_headers", []string{"Content-Type", "Range", "If-None-Match", "X-Request-ID"})
	v.SetDefault("cors.expose_headers", []string{"Content-Length", "Content-Range", "Accept-Ranges", "ETag", "X-Request-ID"})
	v.SetDefault("cors.max_age", 24*time.Hour)

	pool := workerpool.DefaultConfig()
	v.SetDefault("background.workers", pool.Workers)
	v.SetDefault("background.nonblocking", pool.Nonblocking)
	v.SetDefault("background.expiry_duration", pool.ExpiryDuration)
	v.SetDefault("background.task_timeout", 5*time.Second)
	v.SetDefault("background.janitor_interval", 10*time.Minute)

	rc := pkgredis.DefaultConfig()
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.master_addr", rc.MasterAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.pool_timeout", rc.PoolTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)
	v.SetDefault("redis.min_retry_backoff", rc.MinRetryBackoff)
	v.SetDefault("redis.max_retry_backoff", rc.MaxRetryBackoff)
	v.SetDefault("redis.conn_max_idle_time", rc.ConnMaxIdleTime)

	mc := pkgminio.DefaultConfig()
	v.SetDefault("minio.endpoint", mc.Endpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.use_ssl", mc.UseSSL)
	v.SetDefault("minio.bucket_lookup", string(mc.BucketLookup))
	v.SetDefault("minio.connect_timeout", mc.ConnectTimeout)

	dc := database.DefaultConfig()
	v.SetDefault("database.host", dc.Host)
	v.SetDefault("database.port", dc.Port)
	v.SetDefault("database.user", dc.User)
	v.SetDefault("database.password", dc.Password)
	v.SetDefault("database.dbname", dc.DBName)
	v.SetDefault("database.sslmode", dc.SSLMode)
	v.SetDefault("database.maxidleconns", dc.MaxIdleConns)
	v.SetDefault("database.maxopenconns", dc.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", dc.ConnMaxLifetime)
	v.SetDefault("database.connmaxidletime", dc.ConnMaxIdleTime)
	v.SetDefault("database.loglevel", dc.LogLevel)
	v.SetDefault("database.slowthreshold", dc.SlowThreshold)
	v.SetDefault("database.preparestmt", dc.PrepareStmt)
	v.SetDefault("database.timezone", dc.Timezone)
	v.SetDefault("database.automigrate", dc.AutoMigrate)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enablecaller", lc.EnableCaller)
	v.SetDefault("log.enablestacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.maxsize", lc.File.MaxSize)
	v.SetDefault("log.file.maxage", lc.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)
}

// Validate 校验配置；只校验所选驱动对应的子配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	u, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("server.public_base_url must be an absolute http(s) URL")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if _, err := assetbiz.NewAddresser(c.Addressing.Algorithm, c.Addressing.IDLength); err != nil {
		return fmt.Errorf("addressing: %w", err)
	}

	if c.Analytics.EventTTL <= 0 {
		return errors.New("analytics.event_ttl must be positive")
	}
	if c.Analytics.MetricsMaxAge < 0 {
		return errors.New("analytics.metrics_max_age must be >= 0")
	}

	if err := c.Background.Config.Validate(); err != nil {
		return fmt.Errorf("background: %w", err)
	}

	switch c.Storage.BlobDriver {
	case BlobDriverMinIO:
		if err := pkgminio.ValidateBucketName(c.Storage.Bucket); err != nil {
			return fmt.Errorf("storage.bucket: %w", err)
		}
		if err := c.MinIO.Validate(); err != nil {
			return err
		}
	case BlobDriverMemory:
	default:
		return fmt.Errorf("unknown storage.blob_driver %q", c.Storage.BlobDriver)
	}

	switch c.Storage.KVDriver {
	case KVDriverRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	case KVDriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	case KVDriverMemory:
	default:
		return fmt.Errorf("unknown storage.kv_driver %q", c.Storage.KVDriver)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
