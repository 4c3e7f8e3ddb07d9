package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	redisClient "github.com/redis/go-redis/v9"
)

// RedisCacheManager implements CacheManager using Redis
type RedisCacheManager struct {
	client *redisClient.Client
	config CacheConfig
	stats  *cacheStats
	ctx    context.Context
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	mu          sync.RWMutex
	totalHits   int64
	totalMisses int64
}

// NewRedisCacheManager creates a new Redis-backed cache manager
func NewRedisCacheManager(client *redisClient.Client, config CacheConfig) *RedisCacheManager {
	return &RedisCacheManager{
		client: client,
		config: config,
		stats:  &cacheStats{},
		ctx:    context.Background(),
	}
}

// GetDeviceBinding retrieves a cached device-to-vehicle binding.
func (r *RedisCacheManager) GetDeviceBinding(deviceID string) (string, bool, error) {
	key := r.bindingKey(deviceID)

	vehicleID, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		if err == redisClient.Nil {
			r.recordMiss()
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get device binding from cache: %w", err)
	}

	r.recordHit()
	return vehicleID, true, nil
}

// SetDeviceBinding caches a device-to-vehicle binding with TTL
func (r *RedisCacheManager) SetDeviceBinding(deviceID, vehicleID string, ttl time.Duration) error {
	if err := r.client.Set(r.ctx, r.bindingKey(deviceID), vehicleID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set device binding in cache: %w", err)
	}
	return nil
}

// InvalidateDeviceBinding drops a cached binding, e.g. after rebinding or
// deleting the device.
func (r *RedisCacheManager) InvalidateDeviceBinding(deviceID string) error {
	return r.client.Del(r.ctx, r.bindingKey(deviceID)).Err()
}

// AcquireCooldown claims a cooldown marker with SET NX. The first caller
// within the TTL wins; everyone else sees false.
func (r *RedisCacheManager) AcquireCooldown(key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(r.ctx, r.config.CooldownPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown marker: %w", err)
	}
	return ok, nil
}

// ClearCooldown releases a cooldown marker early. Used when an insert fails
// after the marker was claimed, so the next sample is not suppressed by a
// marker with no alert behind it.
func (r *RedisCacheManager) ClearCooldown(key string) error {
	return r.client.Del(r.ctx, r.config.CooldownPrefix+key).Err()
}

// GetCacheStats returns current cache performance metrics
func (r *RedisCacheManager) GetCacheStats() CacheStats {
	r.stats.mu.RLock()
	defer r.stats.mu.RUnlock()

	total := r.stats.totalHits + r.stats.totalMisses
	stats := CacheStats{
		TotalHits:   r.stats.totalHits,
		TotalMisses: r.stats.totalMisses,
	}
	if total > 0 {
		stats.HitRate = float64(r.stats.totalHits) / float64(total)
		stats.MissRate = float64(r.stats.totalMisses) / float64(total)
	}

	return stats
}

// HealthCheck verifies the Redis connection is alive
func (r *RedisCacheManager) HealthCheck() error {
	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisCacheManager) Close() error {
	return r.client.Close()
}

func (r *RedisCacheManager) bindingKey(deviceID string) string {
	return r.config.KeyPrefix + "device_binding:" + deviceID
}

func (r *RedisCacheManager) recordHit() {
	r.stats.mu.Lock()
	r.stats.totalHits++
	r.stats.mu.Unlock()
}

func (r *RedisCacheManager) recordMiss() {
	r.stats.mu.Lock()
	r.stats.totalMisses++
	r.stats.mu.Unlock()
}
