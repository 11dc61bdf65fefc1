// Package resultcache memoizes flood-zone resolutions in two tiers: an
// in-process LRU in front of a shared Redis store. Entries are indexed by the
// H3 cell of their point so invalidation events can drop them by area.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/floodzone-resolver/internal/cache"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/cellindex"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/hotness"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/keys"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	"github.com/mohammed-shakir/floodzone-resolver/internal/mapper"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

const (
	tierLRU   = "lru"
	tierRedis = "redis"
)

type Config struct {
	Fingerprint string
	Precision   int // decimals kept from lat/lon in keys
	H3Res       int
	TTL         time.Duration // resolved entries
	TTLEmpty    time.Duration // method "none" entries
	LRUSize     int
	OpTimeout   time.Duration // per Redis call

	// ResolveTimeout bounds a shared upstream resolution. It runs detached
	// from any single caller so one disconnect cannot fail the others.
	ResolveTimeout time.Duration

	// HotThreshold > 0 admits an entry into Redis only once the decayed
	// request count of its cell reaches it. The LRU tier admits everything.
	HotThreshold float64
	HotHalfLife  time.Duration
}

type Cache struct {
	next   resolver.Interface
	store  cache.Store         // nil: LRU only
	index  cellindex.CellIndex // nil: no area invalidation in Redis
	mapr   mapper.Interface
	hot    *hotness.Tracker // nil: admit all
	lru    *expirable.LRU[string, entry]
	group  singleflight.Group
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// gen advances on every invalidation; lookups started under an older
	// generation must not write back.
	genMu sync.RWMutex
	gen   uint64
}

type entry struct {
	res     model.Resolution
	expires time.Time
}

var _ resolver.Interface = (*Cache)(nil)

func New(next resolver.Interface, store cache.Store, index cellindex.CellIndex, mapr mapper.Interface, cfg Config, logger *slog.Logger) (*Cache, error) {
	if next == nil {
		return nil, errors.New("resultcache: next resolver is required")
	}
	if mapr == nil {
		return nil, errors.New("resultcache: mapper is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.TTLEmpty <= 0 {
		cfg.TTLEmpty = time.Hour
	}
	if cfg.LRUSize <= 0 {
		cfg.LRUSize = 4096
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var hot *hotness.Tracker
	if cfg.HotThreshold > 0 {
		hot = hotness.New(cfg.HotHalfLife)
	}
	return &Cache{
		next:   next,
		hot:    hot,
		store:  store,
		index:  index,
		mapr:   mapr,
		lru:    expirable.NewLRU[string, entry](cfg.LRUSize, nil, max(cfg.TTL, cfg.TTLEmpty)),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Resolve serves from the LRU, then Redis, then the wrapped resolver.
// Concurrent misses for one key share a single upstream resolution; each
// caller stops waiting when its own ctx ends. Errors are returned as is and
// never cached.
func (c *Cache) Resolve(ctx context.Context, p model.Point) (model.Resolution, error) {
	if err := resolver.Validate(p); err != nil {
		return model.Resolution{}, err
	}
	key := keys.ResolutionKey(c.cfg.Fingerprint, p, c.cfg.Precision)
	admit := c.touch(p)

	if e, ok := c.lru.Get(key); ok && c.now().Before(e.expires) {
		observability.IncCacheResult(tierLRU, "hit")
		return e.res, nil
	}
	observability.IncCacheResult(tierLRU, "miss")

	ch := c.group.DoChan(key, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ResolveTimeout)
		defer cancel()
		return c.fill(sharedCtx, key, p, admit)
	})
	select {
	case <-ctx.Done():
		return model.Resolution{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.Resolution{}, r.Err
		}
		return r.Val.(model.Resolution), nil
	}
}

func (c *Cache) fill(ctx context.Context, key string, p model.Point, admit bool) (model.Resolution, error) {
	gen := c.generation()
	if res, ok := c.readStore(ctx, key, gen); ok {
		return res, nil
	}
	res, err := c.next.Resolve(ctx, p)
	if err != nil {
		return model.Resolution{}, err
	}
	c.write(ctx, key, p, res, admit, gen)
	return res, nil
}

func (c *Cache) generation() uint64 {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.gen
}

// touch counts the request against its cell and reports whether the cell is
// hot enough for the shared tier.
func (c *Cache) touch(p model.Point) bool {
	if c.hot == nil {
		return true
	}
	cell, err := c.mapr.CellForPoint(p, c.cfg.H3Res)
	if err != nil {
		return true
	}
	return c.hot.Touch(cell) >= c.cfg.HotThreshold
}

func (c *Cache) ttlFor(res model.Resolution) time.Duration {
	if res.Resolved() {
		return c.cfg.TTL
	}
	return c.cfg.TTLEmpty
}

func (c *Cache) readStore(ctx context.Context, key string, gen uint64) (model.Resolution, bool) {
	if c.store == nil {
		return model.Resolution{}, false
	}
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	raw, found, err := c.store.Get(opCtx, key)
	switch {
	case err != nil:
		observability.IncCacheResult(tierRedis, "error")
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "err", err)
		return model.Resolution{}, false
	case !found:
		observability.IncCacheResult(tierRedis, "miss")
		return model.Resolution{}, false
	}

	var res model.Resolution
	if err := json.Unmarshal(raw, &res); err != nil || res.Meta.Method == "" {
		observability.IncCacheResult(tierRedis, "error")
		c.logger.WarnContext(ctx, "cache entry undecodable", "key", key, "err", err)
		return model.Resolution{}, false
	}
	observability.IncCacheResult(tierRedis, "hit")
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.gen == gen {
		// the shared tier does not expose the remaining TTL; the local copy
		// lives at most as long as a fresh write would
		c.lru.Add(key, entry{res: res, expires: c.now().Add(c.ttlFor(res))})
	}
	return res, true
}

// write stores res unless an invalidation ran since gen was read. The read
// lock holds off InvalidateCells until the entry and its index are in place.
func (c *Cache) write(ctx context.Context, key string, p model.Point, res model.Resolution, admit bool, gen uint64) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.gen != gen {
		observability.IncCacheResult(tierLRU, "stale")
		c.logger.DebugContext(ctx, "cache write skipped after invalidation", "key", key)
		return
	}
	ttl := c.ttlFor(res)
	c.lru.Add(key, entry{res: res, expires: c.now().Add(ttl)})
	if c.store == nil {
		return
	}
	if !admit {
		observability.IncCacheResult(tierRedis, "bypass")
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.OpTimeout)
	defer cancel()
	if err := c.store.Set(opCtx, key, payload, ttl); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "err", err)
		return
	}

	if c.index == nil {
		return
	}
	cell, err := c.mapr.CellForPoint(p, c.cfg.H3Res)
	if err != nil {
		c.logger.WarnContext(ctx, "cache index cell failed", "key", key, "err", err)
		return
	}
	// the set must outlive its longest-lived member
	if err := c.index.Add(opCtx, c.cfg.H3Res, cell, key, max(c.cfg.TTL, c.cfg.TTLEmpty)); err != nil {
		c.logger.WarnContext(ctx, "cache index write failed", "key", key, "cell", cell, "err", err)
	}
}

// InvalidateCells drops every stored resolution whose point lies in one of
// cells and clears the local tier. Lookups already in flight will not write
// their results back. It returns the number of Redis entries
// removed.
func (c *Cache) InvalidateCells(ctx context.Context, cells []string) (int, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.gen++
	c.lru.Purge()
	if c.index == nil {
		return 0, nil
	}
	dropped, err := c.index.Drop(ctx, c.cfg.H3Res, cells)
	observability.AddCacheInvalidations("delete", len(dropped))
	if err != nil {
		return len(dropped), fmt.Errorf("invalidate %d cells: %w", len(cells), err)
	}
	c.logger.DebugContext(ctx, "cache invalidated", "cells", len(cells), "keys", len(dropped))
	return len(dropped), nil
}

// Ready reports whether the shared tier is reachable.
func (c *Cache) Ready(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Ping(ctx)
}

// Len is the number of entries held in the local tier.
func (c *Cache) Len() int { return c.lru.Len() }
