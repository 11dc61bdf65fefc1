package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// an entry and its index set expire independently; the set is refreshed on
// every add
func TestTTLExpiry_EntryAndIndexSet(t *testing.T) {
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

	if err := rc.Set(ctx, "fz:entry", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := rc.SAddWithTTL(ctx, "fzidx:set", 5*time.Second, "fz:entry"); err != nil {
		t.Fatalf("SAddWithTTL: %v", err)
	}

	mr.FastForward(3 * time.Second)

	if _, found, err := rc.Get(ctx, "fz:entry"); err != nil || found {
		t.Fatalf("entry after expiry: found=%v err=%v", found, err)
	}
	members, err := rc.SMembers(ctx, "fzidx:set")
	if err != nil || len(members) != 1 {
		t.Fatalf("index set should outlive the entry: %v %v", members, err)
	}

	// re-adding pushes the set's expiry out again
	if err := rc.SAddWithTTL(ctx, "fzidx:set", 5*time.Second, "fz:other"); err != nil {
		t.Fatalf("SAddWithTTL: %v", err)
	}
	mr.FastForward(4 * time.Second)
	if !mr.Exists("fzidx:set") {
		t.Fatalf("refreshed set expired early")
	}
	mr.FastForward(2 * time.Second)
	if mr.Exists("fzidx:set") {
		t.Fatalf("set should have expired")
	}
}
