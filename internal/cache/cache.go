// Package cache provides a Features1m snapshot cache with an in-memory
// default and an optional Redis-backed tier, selected the same way the
// rest of this module selects its ambient stack: by environment
// variable at construction time.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// Cache is the minimal key/value contract both tiers satisfy. A ttl of
// zero means the entry never expires.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

type entry struct {
	b   []byte
	exp time.Time
}

type memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New returns an in-memory cache.
func New() Cache {
	return &memory{entries: make(map[string]entry)}
}

func (m *memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(m.entries, key)
		return nil, false
	}
	return e.b, true
}

func (m *memory) Set(key string, val []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.entries[key] = entry{b: val, exp: exp}
}

type redisCache struct {
	r *redis.Client
}

func (c *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	b, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *redisCache) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	c.r.Set(ctx, key, val, ttl)
}

// NewAuto selects a Redis-backed cache when REDIS_ADDR is set, falling
// back to the in-memory cache otherwise.
func NewAuto() Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return New()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisCache{r: client}
}

// FeaturesCache caches domain.Features1m snapshots keyed by symbol, on
// top of a Cache tier.
type FeaturesCache struct {
	cache Cache
	ttl   time.Duration
}

// NewFeaturesCache wraps a Cache tier with TTL-bounded Features1m
// JSON marshaling.
func NewFeaturesCache(cache Cache, ttl time.Duration) *FeaturesCache {
	return &FeaturesCache{cache: cache, ttl: ttl}
}

func featuresKey(symbol string) string {
	return fmt.Sprintf("features1m:%s", symbol)
}

// Get returns the most recently cached snapshot for a symbol.
func (f *FeaturesCache) Get(symbol string) (domain.Features1m, bool) {
	b, ok := f.cache.Get(featuresKey(symbol))
	if !ok {
		return domain.Features1m{}, false
	}
	var features domain.Features1m
	if err := json.Unmarshal(b, &features); err != nil {
		return domain.Features1m{}, false
	}
	return features, true
}

// Set stores a snapshot for a symbol, overwriting whatever was cached
// before.
func (f *FeaturesCache) Set(symbol string, features domain.Features1m) error {
	b, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal features1m for cache: %w", err)
	}
	f.cache.Set(featuresKey(symbol), b, f.ttl)
	return nil
}
