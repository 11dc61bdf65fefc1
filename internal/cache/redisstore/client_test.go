package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	"github.com/mohammed-shakir/floodzone-resolver/internal/metrics"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	err = rc.Set(ctx, "k2", []byte("v2"), time.Minute)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	for k, want := range map[string]string{"k1": "v1", "k2": "v2"} {
		got, found, err := rc.Get(ctx, k)
		if err != nil || !found || string(got) != want {
			t.Fatalf("Get(%s)=%q,%v,%v want %q", k, got, found, err, want)
		}
	}

	if err := rc.Del(ctx, "k1", "k2"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, found, _ := rc.Get(ctx, "k1"); found {
		t.Fatalf("k1 still present after Del")
	}
	if err := rc.Del(ctx); err != nil {
		t.Fatalf("Del without keys: %v", err)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)
	observability.SetScenario("cache")

	rc := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _, _ = rc.Get(ctx, "m1")
	_ = rc.Del(ctx, "m1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `cache_op_total{op="set"`) ||
		!strings.Contains(body, `cache_op_total{op="get"`) ||
		!strings.Contains(body, `cache_op_total{op="del"`) {
		t.Fatalf("missing cache_op_total metrics; got:\n%s", body)
	}
	if !strings.Contains(body, `redis_operation_duration_seconds_bucket{op="set"`) {
		t.Fatalf("missing redis_operation_duration_seconds histogram; got:\n%s", body)
	}
}

func TestGet_FoundAndMissing(t *testing.T) {
	rc := newMini(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "fz:k", []byte(`{"meta":{"method":"none"}}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, found, err := rc.Get(ctx, "fz:k")
	if err != nil || !found || !strings.Contains(string(v), "none") {
		t.Fatalf("Get found=%v err=%v v=%s", found, err, v)
	}
	v, found, err = rc.Get(ctx, "fz:absent")
	if err != nil || found || v != nil {
		t.Fatalf("missing key: found=%v err=%v v=%v", found, err, v)
	}
}

func TestSAddWithTTL_SMembers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	if err := rc.SAddWithTTL(ctx, "idx", time.Hour, "a", "b", "a"); err != nil {
		t.Fatalf("SAddWithTTL: %v", err)
	}
	if err := rc.SAddWithTTL(ctx, "idx", time.Hour); err != nil {
		t.Fatalf("SAddWithTTL without members: %v", err)
	}
	got, err := rc.SMembers(ctx, "idx")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("members=%v want 2 unique", got)
	}
	if ttl := mr.TTL("idx"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl=%v", ttl)
	}

	empty, err := rc.SMembers(ctx, "nope")
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing set: %v %v", empty, err)
	}
	if err := rc.Del(ctx); err != nil {
		t.Fatalf("Del without keys: %v", err)
	}
}

func TestNew_FailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := New(ctx, ""); err == nil {
		t.Fatal("expected error for empty address")
	}
	if _, err := New(ctx, "127.0.0.1:1", WithDialTimeout(100*time.Millisecond)); err == nil {
		t.Fatal("expected ping error for closed port")
	}
}
