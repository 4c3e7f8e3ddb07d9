package cache

import (
	"log"
	"time"

	redisClient "github.com/redis/go-redis/v9"
)

// NewCacheManager returns a Redis-backed manager when a client is
// available, otherwise a no-op manager so callers degrade to their
// database paths instead of failing.
func NewCacheManager(client *redisClient.Client, config CacheConfig) CacheManager {
	if client == nil {
		log.Println("Cache disabled: no Redis client available")
		return NewNoopCacheManager()
	}
	return NewRedisCacheManager(client, config)
}

// NoopCacheManager satisfies CacheManager without caching anything. Every
// binding lookup misses and every cooldown claim succeeds, which leaves
// dedup decisions entirely to the database check.
type NoopCacheManager struct{}

func NewNoopCacheManager() *NoopCacheManager { return &NoopCacheManager{} }

func (n *NoopCacheManager) GetDeviceBinding(string) (string, bool, error)      { return "", false, nil }
func (n *NoopCacheManager) SetDeviceBinding(string, string, time.Duration) error { return nil }
func (n *NoopCacheManager) InvalidateDeviceBinding(string) error               { return nil }
func (n *NoopCacheManager) AcquireCooldown(string, time.Duration) (bool, error) { return true, nil }
func (n *NoopCacheManager) ClearCooldown(string) error                         { return nil }
func (n *NoopCacheManager) GetCacheStats() CacheStats                          { return CacheStats{} }
func (n *NoopCacheManager) HealthCheck() error                                 { return nil }
func (n *NoopCacheManager) Close() error                                       { return nil }
