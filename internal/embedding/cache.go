package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores embedding vectors keyed by model+text hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// CacheKey derives a cache key from the model name and input text, matching
// spec §4.6's hash(model||text) scheme.
func CacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "|" + text))
	return hex.EncodeToString(h[:])
}

// NoopCache never caches anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]float32, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []float32)        {}

// MemoryCache is the process-local tier: unbounded, cleared on restart.
// Grounded on the local-tier half of internal/skills/cache_service.go's
// CacheService tier cascade.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]float32
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]float32)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = vec
}

// RedisCache is the persistent tier, TTL'd, grounded on
// internal/skills/redis_cache.go's RedisSkillsCache (namespaced keys,
// JSON-encoded values, redis.Nil handling).
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// DefaultCacheTTL matches spec §4.6's 7-day embedding cache lifetime.
const DefaultCacheTTL = 7 * 24 * time.Hour

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) redisKey(key string) string {
	return fmt.Sprintf("docvector:embedding:%s", key)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	vec, err := decodeFloat32s(raw)
	if err != nil {
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	raw := encodeFloat32s(vec)
	_ = c.client.Set(ctx, c.redisKey(key), raw, c.ttl).Err()
}

// TwoTier checks Memory first, then Redis, filling Memory on a Redis hit.
// Grounded on internal/skills/cache_service.go's GetOrLoad tier-cascade.
type TwoTier struct {
	local *MemoryCache
	redis *RedisCache
}

func NewTwoTier(local *MemoryCache, redisCache *RedisCache) *TwoTier {
	return &TwoTier{local: local, redis: redisCache}
}

func (t *TwoTier) Get(ctx context.Context, key string) ([]float32, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	if t.redis == nil {
		return nil, false
	}
	v, ok := t.redis.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, v)
	}
	return v, ok
}

func (t *TwoTier) Set(ctx context.Context, key string, vec []float32) {
	t.local.Set(ctx, key, vec)
	if t.redis != nil {
		t.redis.Set(ctx, key, vec)
	}
}

// encodeFloat32s/decodeFloat32s marshal a float32 slice as a JSON array,
// matching cache_service.go's JSON-encoded payload convention.
func encodeFloat32s(vec []float32) []byte {
	b, _ := json.Marshal(vec)
	return b
}

func decodeFloat32s(raw []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, fmt.Errorf("embedding cache: decode payload: %w", err)
	}
	return vec, nil
}
