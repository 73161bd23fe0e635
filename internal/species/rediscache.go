package species

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/model"
)

// cacheKeyPrefix namespaces entries so the validation cache can share a
// Redis instance with other future consumers.
const cacheKeyPrefix = "tripplanner:species:"

// defaultCacheTTL keeps entries around across pipeline runs without
// growing unbounded; a process-lifetime in-memory cache has no such
// concern, but a shared Redis instance does.
const defaultCacheTTL = 24 * time.Hour

// RedisCache backs the species-validation cache with Redis so repeated
// pipeline runs across process restarts skip re-resolving the same
// names (config.Config.RedisURL, an optional domain-stack addition
// beyond spec §4.1's bare in-memory requirement).
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
	fallback *memoryCache
}

// NewRedisCache connects to redisURL. If the connection cannot be
// established the returned cache silently degrades to an in-memory map
// so a misconfigured REDIS_URL never breaks species validation.
func NewRedisCache(redisURL string, logger core.Logger) *RedisCache {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	fallback := newMemoryCache()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, species cache falling back to in-memory", map[string]interface{}{"error": err.Error()})
		return &RedisCache{logger: logger, fallback: fallback}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("could not reach redis, species cache falling back to in-memory", map[string]interface{}{"error": err.Error()})
		return &RedisCache{logger: logger, fallback: fallback}
	}

	return &RedisCache{client: client, ttl: defaultCacheTTL, logger: logger, fallback: fallback}
}

func (c *RedisCache) Get(key string) (model.TargetSpecies, bool) {
	if c.client == nil {
		return c.fallback.Get(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("redis get failed, consulting in-memory fallback", map[string]interface{}{"error": err.Error()})
		}
		return c.fallback.Get(key)
	}

	var ts model.TargetSpecies
	if err := json.Unmarshal(raw, &ts); err != nil {
		return c.fallback.Get(key)
	}
	return ts, true
}

func (c *RedisCache) Set(key string, ts model.TargetSpecies) {
	c.fallback.Set(key, ts)
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(ts)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.client.Set(ctx, cacheKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("redis set failed", map[string]interface{}{"error": err.Error()})
	}
}
