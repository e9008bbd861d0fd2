package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Set 设置键值（expiration 为 0 表示不过期）
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := c.rdb.Set(ctx, key, value, expiration).Err()
	if err != nil {
		c.logger.Error("redis set failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return err
}

// Get 获取键值，不存在时返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis get failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return val, err
}

// SetNX 仅当键不存在时设置
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		c.logger.Error("redis setnx failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return ok, err
}

// Incr 原子自增
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis incr failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return val, err
}

// TTL 获取剩余过期时间
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis ttl failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return ttl, err
}

// ScanAll 遍历全部匹配的键，limit <= 0 表示不限制。
// 集群模式下逐个主节点扫描。
func (c *Client) ScanAll(ctx context.Context, match string, limit int) ([]string, error) {
	cluster, ok := c.rdb.(*redis.ClusterClient)
	if !ok {
		return scanNode(ctx, c.rdb, match, limit)
	}

	var (
		mu  sync.Mutex
		out []string
	)
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		keys, err := scanNode(ctx, node, match, limit)
		if err != nil {
			return err
		}
		mu.Lock()
		out = append(out, keys...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		c.logger.Error("redis cluster scan failed", zap.String("match", match), zap.Error(err))
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func scanNode(ctx context.Context, node redis.Cmdable, match string, limit int) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := node.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
