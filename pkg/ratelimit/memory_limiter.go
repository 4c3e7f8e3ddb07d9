package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryRateLimiter implements RateLimiter using in-memory storage.
// Used when Redis is unavailable so the API stays protected.
type MemoryRateLimiter struct {
	config       *Config
	stats        *RateLimiterStats
	customLimits map[string]map[string]RateLimit // clientID -> endpoint -> limit
	tokens       map[string]*TokenBucket         // key -> token bucket
	mu           sync.RWMutex
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	limiter := &MemoryRateLimiter{
		config:       config,
		stats:        &RateLimiterStats{},
		customLimits: make(map[string]map[string]RateLimit),
		tokens:       make(map[string]*TokenBucket),
	}

	go limiter.cleanupExpiredTokens()

	return limiter
}

// Allow checks if a request should be allowed based on rate limits
func (r *MemoryRateLimiter) Allow(clientID string, endpoint string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	atomic.AddInt64(&r.stats.TotalRequests, 1)

	limit := r.getRateLimit(clientID, endpoint)
	key := fmt.Sprintf("%s:%s", clientID, endpoint)

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.getOrCreateTokenBucket(key, limit)

	now := time.Now()

	// Refill tokens based on time elapsed
	if !bucket.LastRefill.IsZero() {
		elapsed := now.Sub(bucket.LastRefill)
		tokensToAdd := int(float64(limit.RequestsPerMinute) * elapsed.Minutes())
		if tokensToAdd > 0 {
			bucket.Tokens = min(bucket.Capacity, bucket.Tokens+tokensToAdd)
			bucket.LastRefill = now
		}
	}

	if bucket.Tokens > 0 {
		bucket.Tokens--
		return true, 0, nil
	}

	// Time until the next token becomes available
	resetTime := time.Minute / time.Duration(max(1, limit.RequestsPerMinute))

	atomic.AddInt64(&r.stats.BlockedRequests, 1)
	return false, resetTime, nil
}

// getRateLimit gets the rate limit for a specific client and endpoint
func (r *MemoryRateLimiter) getRateLimit(clientID, endpoint string) RateLimit {
	r.mu.RLock()
	if clientLimits, exists := r.customLimits[clientID]; exists {
		if limit, exists := clientLimits[endpoint]; exists {
			r.mu.RUnlock()
			return limit
		}
	}
	r.mu.RUnlock()

	endpointKey := r.config.GetEndpointKey(endpoint, "")

	if limit, exists := r.config.DefaultLimits[endpointKey]; exists {
		return limit
	}

	if defaultLimit, exists := r.config.DefaultLimits["default"]; exists {
		return defaultLimit
	}

	return RateLimit{
		RequestsPerMinute: 60,
		BurstSize:         15,
		WindowSize:        time.Minute,
	}
}

// getOrCreateTokenBucket gets or creates a token bucket for the key
func (r *MemoryRateLimiter) getOrCreateTokenBucket(key string, limit RateLimit) *TokenBucket {
	if bucket, exists := r.tokens[key]; exists {
		return bucket
	}

	bucket := &TokenBucket{
		Capacity:   limit.BurstSize,
		Tokens:     limit.BurstSize,
		RefillRate: limit.RequestsPerMinute,
		LastRefill: time.Now(),
	}

	r.tokens[key] = bucket
	return bucket
}

// GetLimits returns the current rate limits for a client
func (r *MemoryRateLimiter) GetLimits(clientID string) map[string]RateLimit {
	limits := make(map[string]RateLimit)

	for endpoint, limit := range r.config.DefaultLimits {
		limits[endpoint] = limit
	}

	r.mu.RLock()
	if clientLimits, exists := r.customLimits[clientID]; exists {
		for endpoint, limit := range clientLimits {
			limits[endpoint] = limit
		}
	}
	r.mu.RUnlock()

	return limits
}

// SetCustomLimit sets a custom rate limit for a specific client and endpoint
func (r *MemoryRateLimiter) SetCustomLimit(clientID string, endpoint string, limit RateLimit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.customLimits[clientID] == nil {
		r.customLimits[clientID] = make(map[string]RateLimit)
	}

	r.customLimits[clientID][endpoint] = limit
	return nil
}

// GetStats returns current rate limiter statistics
func (r *MemoryRateLimiter) GetStats() RateLimiterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := *r.stats
	stats.ActiveClients = len(r.customLimits)

	if stats.TotalRequests > 0 {
		stats.BlockedPercent = float64(stats.BlockedRequests) / float64(stats.TotalRequests) * 100
	}

	return stats
}

// cleanupExpiredTokens removes token buckets that have gone idle
func (r *MemoryRateLimiter) cleanupExpiredTokens() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()

		now := time.Now()
		for key, bucket := range r.tokens {
			if now.Sub(bucket.LastRefill) > time.Hour {
				delete(r.tokens, key)
			}
		}

		r.mu.Unlock()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
