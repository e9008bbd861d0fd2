package minio

import (
	"errors"
	"os"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var errClientClosed = errors.New("minio: client is closed")

// Client is a thin wrapper over minio.Client that validates names,
// tags errors with the operation and refuses calls after Close.
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
	closed atomic.Bool
}

var bucketLookups = map[BucketLookupType]minio.BucketLookupType{
	BucketLookupDNS:  minio.BucketLookupDNS,
	BucketLookupPath: minio.BucketLookupPath,
}

// NewClient validates cfg and builds a client. No request is made until first use.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "invalid configuration")
	}

	lookup, ok := bucketLookups[cfg.BucketLookup]
	if !ok {
		lookup = minio.BucketLookupAuto
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "failed to create minio client")
	}
	if cfg.TraceEnabled {
		mc.TraceOn(os.Stderr)
	}

	logger = logger.Named("minio")
	logger.Info("object store client ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("use_ssl", cfg.UseSSL),
	)

	return &Client{client: mc, config: cfg, logger: logger}, nil
}

// Close marks the client closed. minio.Client holds no connections of its own.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Info("object store client closed")
	}
	return nil
}

func (c *Client) checkClosed() error {
	if c.closed.Load() {
		return errClientClosed
	}
	return nil
}
