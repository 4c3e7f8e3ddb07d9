package cache

import "time"

// CacheConfig holds cache behavior configuration
type CacheConfig struct {
	KeyPrefix      string
	CooldownPrefix string
	BindingTTL     time.Duration
}

// DefaultCacheConfig returns sensible cache defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		KeyPrefix:      "fleet:",
		CooldownPrefix: "fleet:cooldown:",
		BindingTTL:     5 * time.Minute,
	}
}
