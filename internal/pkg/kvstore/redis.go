package kvstore

import (
	"context"
	"strings"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/pkg/redis"
)

// Redis is the primary Store backend.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps a connected redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(val), nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl)
}

func (r *Redis) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl)
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key)
	if err != nil && strings.Contains(err.Error(), "not an integer") {
		return 0, ErrNotInteger
	}
	return n, err
}

func (r *Redis) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.client.ScanAll(ctx, escapeGlob(prefix)+"*", limit)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes SCAN MATCH metacharacters so prefix is matched literally.
func escapeGlob(prefix string) string {
	return globEscaper.Replace(prefix)
}
