package cache

import "time"

// CacheManager is the caching surface the alerting pipeline relies on:
// device-to-vehicle binding lookups and alert cooldown markers. Both are
// best-effort; callers fall back to the database when the cache is cold or
// unreachable.
type CacheManager interface {
	// Device binding operations
	GetDeviceBinding(deviceID string) (vehicleID string, found bool, err error)
	SetDeviceBinding(deviceID, vehicleID string, ttl time.Duration) error
	InvalidateDeviceBinding(deviceID string) error

	// Cooldown markers. AcquireCooldown atomically claims the key for the
	// TTL and reports whether this caller won the claim.
	AcquireCooldown(key string, ttl time.Duration) (bool, error)
	ClearCooldown(key string) error

	// Statistics and health
	GetCacheStats() CacheStats
	HealthCheck() error
	Close() error
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	HitRate     float64 `json:"hitRate"`
	MissRate    float64 `json:"missRate"`
	TotalHits   int64   `json:"totalHits"`
	TotalMisses int64   `json:"totalMisses"`
}
