// Package cache serves lookups through the two-tier resolution cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/cellindex"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/keys"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/redisstore"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/resultcache"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	h3mapper "github.com/mohammed-shakir/floodzone-resolver/internal/mapper/h3"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
	"github.com/mohammed-shakir/floodzone-resolver/internal/scenarios"
)

// Engine is a resultcache.Cache that owns its Redis connection. It also
// satisfies kafkaconsumer.Invalidator.
type Engine struct {
	*resultcache.Cache
	rc *redisstore.Client
}

func init() {
	scenarios.Register("cache", newCache)
}

func newCache(cfg config.Config, logger *slog.Logger, base resolver.Interface) (scenarios.Handler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*cfg.CacheOpTimeout+time.Second)
	defer cancel()
	rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithPoolSize(cfg.RedisPoolSize))
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}

	fp := keys.Fingerprint(cfg.ServiceURL, cfg.OutFields, cfg.FallbackRadii, cfg.MaxCandidates, cfg.LonScaleFloor)
	c, err := resultcache.New(base, rc, cellindex.NewRedisIndex(rc, fp), h3mapper.New(), resultcache.Config{
		Fingerprint: fp,
		Precision:   cfg.CacheCoordPrecision,
		H3Res:       cfg.CacheH3Res,
		TTL:         cfg.CacheTTL,
		TTLEmpty:    cfg.CacheTTLEmpty,
		LRUSize:     cfg.CacheLRUSize,
		OpTimeout:   cfg.CacheOpTimeout,
		// point query plus one per ladder radius
		ResolveTimeout: cfg.QueryTimeout * time.Duration(len(cfg.FallbackRadii)+1),

		HotThreshold: cfg.CacheHotThreshold,
		HotHalfLife:  cfg.CacheHotHalfLife,
	}, logger)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("result cache: %w", err)
	}

	logger.Info("resolution cache ready",
		"redis", cfg.RedisAddr, "fingerprint", fp, "h3_res", cfg.CacheH3Res,
		"ttl", cfg.CacheTTL, "ttl_empty", cfg.CacheTTLEmpty, "hot_threshold", cfg.CacheHotThreshold)
	return &Engine{Cache: c, rc: rc}, nil
}

func (e *Engine) Close() error { return e.rc.Close() }
