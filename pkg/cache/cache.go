package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shopRecs/pkg/logger"
	"shopRecs/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	maxKeyLength = 250
	// entries removed per capacity sweep, soonest-to-expire first
	evictBatch = 100
	// TTL applied to the in-process copy of a redis hit
	redisHitMemoryTTL = time.Minute
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	HitRate       float64 `json:"hit_rate"`
	MemoryEntries int     `json:"memory_entries"`
}

// ResultCache memoizes expensive recommendation and rollup reads. Values
// live in an in-process map with per-entry expiry; an optional redis tier
// shares the same keys across processes. Any redis failure degrades
// silently to the in-process tier.
type ResultCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	redis      *redis.Client
	defaultTTL time.Duration
	maxEntries int

	hits      int64
	misses    int64
	evictions int64
}

type Options struct {
	Redis      *redis.Client
	DefaultTTL time.Duration
	MaxEntries int
}

func New(opts Options) *ResultCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}

	return &ResultCache{
		entries:    make(map[string]entry),
		redis:      opts.Redis,
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxEntries,
	}
}

// Key builds a deterministic cache key from an operation name and its
// arguments. Arguments are sorted by name; keys beyond 250 characters are
// replaced by an md5 digest to bound key size.
func (c *ResultCache) Key(op string, args map[string]any) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for _, name := range names {
		fmt.Fprintf(&b, ":%s=%v", name, args[name])
	}

	key := b.String()
	if len(key) > maxKeyLength {
		digest := md5.Sum([]byte(key))
		return fmt.Sprintf("%s:hash:%s", op, hex.EncodeToString(digest[:]))
	}

	return key
}

// Get looks a key up in the in-process tier, then redis, and unmarshals
// the cached value into dest. Returns false on miss.
func (c *ResultCache) Get(ctx context.Context, key string, dest any) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if time.Now().Before(e.expiresAt) {
			if err := json.Unmarshal(e.value, dest); err == nil {
				c.recordHit()
				return true
			}
		} else {
			c.mu.Lock()
			delete(c.entries, key)
			c.evictions++
			c.mu.Unlock()
			metrics.CacheEvictions.Inc()
		}
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			if err := json.Unmarshal(data, dest); err == nil {
				c.storeInMemory(key, data, redisHitMemoryTTL)
				c.recordHit()
				return true
			}
		} else if err != redis.Nil {
			logger.Debug("redis get failed, falling back to memory", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.CacheMisses.Inc()

	return false
}

// Set stores a value in both tiers. A non-positive ttl uses the default.
func (c *ResultCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("failed to marshal cache value", "key", key, "error", err)
		return
	}

	c.storeInMemory(key, data, ttl)

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
			logger.Debug("redis set failed", "key", key, "error", err)
		}
	}
}

// Invalidate removes every key containing the given substring from both
// tiers. Used to drop cached state for a visitor, product or category
// after a write.
func (c *ResultCache) Invalidate(ctx context.Context, pattern string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.redis != nil {
		iter := c.redis.Scan(ctx, 0, "*"+pattern+"*", 0).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				logger.Debug("redis delete failed", "key", iter.Val(), "error", err)
			}
		}
		if err := iter.Err(); err != nil {
			logger.Debug("redis scan failed", "pattern", pattern, "error", err)
		}
	}
}

// Clear drops all entries and resets statistics.
func (c *ResultCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.hits, c.misses, c.evictions = 0, 0, 0
	c.mu.Unlock()

	if c.redis != nil {
		if err := c.redis.FlushDB(ctx).Err(); err != nil {
			logger.Debug("redis flush failed", "error", err)
		}
	}
}

func (c *ResultCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		HitRate:       hitRate,
		MemoryEntries: len(c.entries),
	}
}

func (c *ResultCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	metrics.CacheHits.Inc()
}

func (c *ResultCache) storeInMemory(key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:     data,
		expiresAt: time.Now().Add(ttl),
	}

	if len(c.entries) > c.maxEntries {
		c.evictExpiredLocked()
	}
	if len(c.entries) > c.maxEntries {
		c.evictSoonestLocked()
	}
}

func (c *ResultCache) evictExpiredLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, key)
			c.evictions++
			metrics.CacheEvictions.Inc()
		}
	}
}

func (c *ResultCache) evictSoonestLocked() {
	type keyExpiry struct {
		key       string
		expiresAt time.Time
	}

	all := make([]keyExpiry, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, keyExpiry{key: key, expiresAt: e.expiresAt})
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].expiresAt.Before(all[j].expiresAt)
	})

	toDrop := evictBatch
	if toDrop > len(all) {
		toDrop = len(all)
	}
	for i := 0; i < toDrop; i++ {
		delete(c.entries, all[i].key)
		c.evictions++
		metrics.CacheEvictions.Inc()
	}
}
