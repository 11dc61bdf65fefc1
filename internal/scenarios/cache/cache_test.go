package cache

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/scenarios"
)

type countingResolver struct{ calls atomic.Int32 }

func (c *countingResolver) Resolve(context.Context, model.Point) (model.Resolution, error) {
	c.calls.Add(1)
	return model.Resolution{Meta: model.Meta{Method: model.MethodNone, Reason: "test"}}, nil
}

func TestCacheScenario_WiresRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	t.Setenv("REDIS_ADDR", mr.Addr())
	cfg := config.FromEnv()
	base := &countingResolver{}

	h, err := scenarios.New("cache", cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), base)
	if err != nil {
		t.Fatalf("scenarios.New: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	eng, ok := h.(*Engine)
	if !ok {
		t.Fatalf("unexpected handler type %T", h)
	}
	if err := eng.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	p := model.Point{Lat: 27.9506, Lon: -82.4572}
	for range 3 {
		if _, err := eng.Resolve(context.Background(), p); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if base.calls.Load() != 1 {
		t.Fatalf("upstream calls=%d want 1", base.calls.Load())
	}
	if len(mr.Keys()) < 2 {
		t.Fatalf("expected entry and index in redis, got %v", mr.Keys())
	}
}

func TestCacheScenario_RedisUnavailable(t *testing.T) {
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	t.Setenv("CACHE_OP_TIMEOUT", "50ms")
	_, err := newCache(config.FromEnv(), slog.New(slog.NewTextHandler(io.Discard, nil)), &countingResolver{})
	if err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
