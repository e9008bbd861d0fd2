// Package kvstore is the key-value persistence used for asset metadata,
// short links, click counters and analytics events. Redis is the primary
// backend; Postgres and an in-process map implement the same contract.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get for absent or expired keys.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrNotInteger is returned by Incr when the stored value is not a decimal integer.
	ErrNotInteger = errors.New("kvstore: value is not an integer")
)

// Store is the key-value contract shared by all backends.
//
// A ttl of zero means the key never expires. Incr is atomic across
// concurrent callers and treats an absent key as zero.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	// Keys lists live keys starting with prefix. limit <= 0 means no limit.
	// Order is backend specific.
	Keys(ctx context.Context, prefix string, limit int) ([]string, error)
	Ping(ctx context.Context) error
}
