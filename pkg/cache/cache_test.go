//go:build !integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopRecs/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCache() *ResultCache {
	return New(Options{DefaultTTL: time.Minute, MaxEntries: 10})
}

func TestKeyDeterministicAndSorted(t *testing.T) {
	c := newTestCache()

	k1 := c.Key("recommendations", map[string]any{"user_id": 7, "limit": 10})
	k2 := c.Key("recommendations", map[string]any{"limit": 10, "user_id": 7})

	if k1 != k2 {
		t.Fatalf("key not deterministic: %q vs %q", k1, k2)
	}
	if k1 != "recommendations:limit=10:user_id=7" {
		t.Fatalf("unexpected key format: %q", k1)
	}
}

func TestKeyLongKeysHashed(t *testing.T) {
	c := newTestCache()

	args := map[string]any{}
	for i := 0; i < 50; i++ {
		args[fmt.Sprintf("arg_with_a_long_name_%d", i)] = i
	}

	key := c.Key("recommendations", args)
	if len(key) > maxKeyLength {
		t.Fatalf("hashed key still too long: %d chars", len(key))
	}
}

func TestSetThenGet(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "k1", []uint64{1, 2, 3}, time.Minute)

	var got []uint64
	if !c.Get(ctx, "k1", &got) {
		t.Fatal("expected hit immediately after set")
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("wrong value: %v", got)
	}
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "k1", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	var got string
	if c.Get(ctx, "k1", &got) {
		t.Fatal("expected miss after TTL elapsed")
	}
}

func TestInvalidateRemovesMatchingKeysOnly(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "recommendations:limit=10:user_id=7", "a", time.Minute)
	c.Set(ctx, "preference_model:user_id=7", "b", time.Minute)
	c.Set(ctx, "recommendations:limit=10:user_id=8", "c", time.Minute)

	c.Invalidate(ctx, "user_id=7")

	var got string
	if c.Get(ctx, "recommendations:limit=10:user_id=7", &got) {
		t.Fatal("expected user 7 recommendation key to be invalidated")
	}
	if c.Get(ctx, "preference_model:user_id=7", &got) {
		t.Fatal("expected user 7 model key to be invalidated")
	}
	if !c.Get(ctx, "recommendations:limit=10:user_id=8", &got) {
		t.Fatal("expected user 8 key to survive")
	}
}

func TestCapacityEvictionDropsSoonestToExpire(t *testing.T) {
	c := New(Options{DefaultTTL: time.Minute, MaxEntries: 150})
	ctx := context.Background()

	// Overfill; the sweep removes one batch, shortest TTLs first.
	for i := 0; i <= 150; i++ {
		ttl := time.Duration(i+1) * time.Hour
		c.Set(ctx, fmt.Sprintf("k%d", i), i, ttl)
	}

	stats := c.Stats()
	if stats.MemoryEntries > 150 {
		t.Fatalf("capacity not enforced: %d entries", stats.MemoryEntries)
	}
	if stats.Evictions != evictBatch {
		t.Fatalf("expected one eviction batch of %d, got %d", evictBatch, stats.Evictions)
	}

	var got int
	if c.Get(ctx, "k0", &got) {
		t.Fatal("soonest-to-expire entry should have been evicted")
	}
	if !c.Get(ctx, "k150", &got) {
		t.Fatal("expected longest-lived entry to survive eviction")
	}
}

func TestEvictionsFeedTheCounter(t *testing.T) {
	before := testutil.ToFloat64(metrics.CacheEvictions)

	c := New(Options{DefaultTTL: time.Minute, MaxEntries: 5})
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), i, time.Hour)
	}

	after := testutil.ToFloat64(metrics.CacheEvictions)
	if after <= before {
		t.Fatalf("eviction counter did not move: %v -> %v", before, after)
	}
}

func TestStats(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	var got string
	c.Get(ctx, "absent", &got)
	c.Set(ctx, "k", "v", time.Minute)
	c.Get(ctx, "k", &got)

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("unexpected hit rate: %f", stats.HitRate)
	}
}
