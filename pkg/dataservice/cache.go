package dataservice

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// Cache is a Redis-backed store for Data Service reads. It shortens repeat
// clinical analyses and lets the client serve stale data while the upstream
// circuit is open. All methods are safe on a nil receiver, which is the
// disabled state.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCache connects to Redis per the cache configuration. A disabled cache,
// an empty Redis URL or an unreachable Redis all yield nil rather than an
// error: the client operates without the fallback tier.
func NewCache(cfg domain.CacheConfig, logger *logrus.Logger) *Cache {
	if !cfg.Enabled || cfg.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid Redis URL, clinical data cache disabled")
		return nil
	}

	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, clinical data cache disabled")
		client.Close()
		return nil
	}

	ttl := cfg.ClinicalTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	logger.WithField("ttl", ttl.String()).Info("Clinical data cache connected")
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

type cachedRecords struct {
	Records   []domain.DonorClinicalRecord `json:"records"`
	CachedAt  time.Time                    `json:"cached_at"`
	ExpiresAt time.Time                    `json:"expires_at"`
}

type cachedInventory struct {
	Snapshots []domain.InventorySnapshot `json:"snapshots"`
	CachedAt  time.Time                  `json:"cached_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// GetDonorRecords returns the cached donor records for a blood-type scope.
func (c *Cache) GetDonorRecords(ctx context.Context, scope string) ([]domain.DonorClinicalRecord, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	key := c.recordsKey(scope)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var entry cachedRecords
	if err := json.Unmarshal(data, &entry); err != nil {
		c.client.Del(ctx, key)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.client.Del(ctx, key)
		return nil, false
	}
	return entry.Records, true
}

// SetDonorRecords stores donor records for a blood-type scope.
func (c *Cache) SetDonorRecords(ctx context.Context, scope string, records []domain.DonorClinicalRecord) {
	if c == nil || c.client == nil {
		return
	}

	now := time.Now()
	entry := cachedRecords{
		Records:   records,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to marshal donor records for cache")
		return
	}
	if err := c.client.Set(ctx, c.recordsKey(scope), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Failed to cache donor records")
	}
}

// GetInventory returns the cached inventory snapshot set.
func (c *Cache) GetInventory(ctx context.Context) ([]domain.InventorySnapshot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, inventoryKey).Bytes()
	if err != nil {
		return nil, false
	}

	var entry cachedInventory
	if err := json.Unmarshal(data, &entry); err != nil {
		c.client.Del(ctx, inventoryKey)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.client.Del(ctx, inventoryKey)
		return nil, false
	}
	return entry.Snapshots, true
}

// SetInventory stores the inventory snapshot set.
func (c *Cache) SetInventory(ctx context.Context, snapshots []domain.InventorySnapshot) {
	if c == nil || c.client == nil {
		return
	}

	now := time.Now()
	entry := cachedInventory{
		Snapshots: snapshots,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to marshal inventory for cache")
		return
	}
	if err := c.client.Set(ctx, inventoryKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Failed to cache inventory")
	}
}

// Healthy reports whether Redis answers a ping.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

const inventoryKey = "bloodbank:inventory"

func (c *Cache) recordsKey(scope string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("clinical:%s", scope)))
	return fmt.Sprintf("bloodbank:clinical:%x", hash[:16])
}
