// Package cache holds the storage contracts shared by the resolution cache.
package cache

import (
	"context"
	"time"
)

// Store is the shared tier. *redisstore.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
