// Package cellindex tracks which cached resolutions sit inside which H3 cell,
// so an invalidation event can find them without scanning the keyspace.
package cellindex

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/keys"
	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/redisstore"
)

type CellIndex interface {
	Add(ctx context.Context, res int, cell, key string, ttl time.Duration) error
	Keys(ctx context.Context, res int, cell string) ([]string, error)
	// Drop deletes every key indexed under cells together with the index
	// sets themselves and returns the indexed keys it removed.
	Drop(ctx context.Context, res int, cells []string) ([]string, error)
}

type redisCellIndex struct {
	cli *redisstore.Client
	fp  string
}

// NewRedisIndex scopes the index to one cache fingerprint.
func NewRedisIndex(cli *redisstore.Client, fingerprint string) CellIndex {
	return &redisCellIndex{cli: cli, fp: fingerprint}
}

func (ci *redisCellIndex) Add(ctx context.Context, res int, cell, key string, ttl time.Duration) error {
	ik := keys.CellIndexKey(ci.fp, res, cell)
	if err := ci.cli.SAddWithTTL(ctx, ik, ttl, key); err != nil {
		return fmt.Errorf("cellindex add %q: %w", ik, err)
	}
	return nil
}

func (ci *redisCellIndex) Keys(ctx context.Context, res int, cell string) ([]string, error) {
	ik := keys.CellIndexKey(ci.fp, res, cell)
	members, err := ci.cli.SMembers(ctx, ik)
	if err != nil {
		return nil, fmt.Errorf("cellindex members %q: %w", ik, err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}

func (ci *redisCellIndex) Drop(ctx context.Context, res int, cells []string) ([]string, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var dropped []string
	idxKeys := make([]string, 0, len(cells))
	for _, cell := range cells {
		members, err := ci.Keys(ctx, res, cell)
		if err != nil {
			return dropped, err
		}
		idxKeys = append(idxKeys, keys.CellIndexKey(ci.fp, res, cell))
		for _, m := range members {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			dropped = append(dropped, m)
		}
	}

	if err := ci.cli.Del(ctx, append(append([]string(nil), dropped...), idxKeys...)...); err != nil {
		return nil, fmt.Errorf("cellindex drop %d cells: %w", len(cells), err)
	}
	return dropped, nil
}
