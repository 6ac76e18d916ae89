package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// ForecastCache is a two-tier cache for demand forecasts: an in-memory LRU
// for hot entries backed by an optional Redis tier shared across instances.
// Keys embed the registry version, so a model reload invalidates every stale
// entry without explicit purging.
type ForecastCache struct {
	memoryCache *lru.Cache
	redisCache  *redis.Client

	ttl time.Duration

	logger  *logrus.Logger
	stats   CacheStats
	statsMu sync.RWMutex
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	TotalRequests int64     `json:"total_requests"`
	ErrorCount    int64     `json:"error_count"`
	LastReset     time.Time `json:"last_reset"`
}

// cachedForecast is the serialized cache envelope.
type cachedForecast struct {
	Data      *domain.DemandForecast `json:"data"`
	CachedAt  time.Time              `json:"cached_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewForecastCache builds the cache from configuration. Returns nil when
// caching is disabled. An unreachable Redis downgrades to memory-only with a
// warning rather than failing startup; forecasting must not depend on cache
// availability.
func NewForecastCache(cfg domain.CacheConfig, logger *logrus.Logger) (*ForecastCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	size := cfg.MemorySize
	if size == 0 {
		size = 1000
	}
	ttl := cfg.ForecastTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	memoryCache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	cache := &ForecastCache{
		memoryCache: memoryCache,
		ttl:         ttl,
		logger:      logger,
		stats:       CacheStats{LastReset: time.Now()},
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = cfg.PoolSize
		opts.PoolTimeout = cfg.PoolTimeout
		opts.MaxRetries = cfg.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithField("error", err.Error()).Warn("Redis unreachable, forecast cache running memory-only")
		} else {
			cache.redisCache = client
		}
	}

	return cache, nil
}

// Get looks up a forecast, memory tier first. A Redis hit repopulates the
// memory tier.
func (c *ForecastCache) Get(ctx context.Context, version uint64, bloodType domain.BloodType, periods int, confidence float64) (*domain.DemandForecast, bool) {
	if c == nil {
		return nil, false
	}
	c.incrementStat("total_requests")

	key := c.cacheKey(version, bloodType, periods, confidence)

	if entry, ok := c.memoryCache.Get(key); ok {
		cached := entry.(*cachedForecast)
		if time.Now().Before(cached.ExpiresAt) {
			c.incrementStat("memory_hits")
			return cached.Data, true
		}
		c.memoryCache.Remove(key)
	}
	c.incrementStat("memory_misses")

	if c.redisCache == nil {
		return nil, false
	}

	val, err := c.redisCache.Get(ctx, key).Result()
	if err == redis.Nil {
		c.incrementStat("redis_misses")
		return nil, false
	}
	if err != nil {
		c.incrementStat("error_count")
		c.logger.WithField("error", err.Error()).Debug("Redis forecast lookup failed")
		return nil, false
	}

	var cached cachedForecast
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redisCache.Del(ctx, key)
		c.incrementStat("redis_misses")
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redisCache.Del(ctx, key)
		c.incrementStat("redis_misses")
		return nil, false
	}

	c.incrementStat("redis_hits")
	c.memoryCache.Add(key, &cached)
	return cached.Data, true
}

// Set stores a forecast in both tiers.
func (c *ForecastCache) Set(ctx context.Context, version uint64, bloodType domain.BloodType, periods int, confidence float64, forecast *domain.DemandForecast) {
	if c == nil || forecast == nil {
		return
	}

	key := c.cacheKey(version, bloodType, periods, confidence)
	cached := &cachedForecast{
		Data:      forecast,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}

	c.memoryCache.Add(key, cached)

	if c.redisCache == nil {
		return
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		c.incrementStat("error_count")
		return
	}
	if err := c.redisCache.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.incrementStat("error_count")
		c.logger.WithField("error", err.Error()).Debug("Redis forecast store failed")
	}
}

// Stats returns a copy of the current cache statistics.
func (c *ForecastCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *ForecastCache) cacheKey(version uint64, bloodType domain.BloodType, periods int, confidence float64) string {
	raw := fmt.Sprintf("forecast:v%d:%s:%d:%.3f", version, bloodType, periods, confidence)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("bloodbank:forecast:%x", hash[:16])
}

func (c *ForecastCache) incrementStat(name string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	switch name {
	case "memory_hits":
		c.stats.MemoryHits++
	case "memory_misses":
		c.stats.MemoryMisses++
	case "redis_hits":
		c.stats.RedisHits++
	case "redis_misses":
		c.stats.RedisMisses++
	case "total_requests":
		c.stats.TotalRequests++
	case "error_count":
		c.stats.ErrorCount++
	}
}
