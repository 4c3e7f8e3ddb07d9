package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*RedisCacheManager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redisClient.NewClient(&redisClient.Options{Addr: mr.Addr()})
	config := DefaultCacheConfig()
	config.KeyPrefix = "test:"
	config.CooldownPrefix = "test:cooldown:"

	return NewRedisCacheManager(client, config), mr
}

func TestRedisCacheManager_DeviceBindings(t *testing.T) {
	manager, _ := newTestManager(t)

	t.Run("MissBeforeSet", func(t *testing.T) {
		vehicleID, found, err := manager.GetDeviceBinding("D1")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, vehicleID)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, manager.SetDeviceBinding("D1", "V1", 30*time.Second))

		vehicleID, found, err := manager.GetDeviceBinding("D1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "V1", vehicleID)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, manager.InvalidateDeviceBinding("D1"))

		_, found, err := manager.GetDeviceBinding("D1")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRedisCacheManager_BindingTTL(t *testing.T) {
	manager, mr := newTestManager(t)

	require.NoError(t, manager.SetDeviceBinding("D2", "V2", 10*time.Second))

	mr.FastForward(11 * time.Second)

	_, found, err := manager.GetDeviceBinding("D2")
	assert.NoError(t, err)
	assert.False(t, found, "binding should expire with its TTL")
}

func TestRedisCacheManager_CooldownMarkers(t *testing.T) {
	manager, mr := newTestManager(t)

	t.Run("FirstClaimWins", func(t *testing.T) {
		ok, err := manager.AcquireCooldown("V1:speeding", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("SecondClaimLoses", func(t *testing.T) {
		ok, err := manager.AcquireCooldown("V1:speeding", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ExpiryReopensClaim", func(t *testing.T) {
		mr.FastForward(61 * time.Second)

		ok, err := manager.AcquireCooldown("V1:speeding", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ClearReleasesEarly", func(t *testing.T) {
		require.NoError(t, manager.ClearCooldown("V1:speeding"))

		ok, err := manager.AcquireCooldown("V1:speeding", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisCacheManager_Stats(t *testing.T) {
	manager, _ := newTestManager(t)

	require.NoError(t, manager.SetDeviceBinding("D3", "V3", time.Minute))
	manager.GetDeviceBinding("D3")
	manager.GetDeviceBinding("unknown")

	stats := manager.GetCacheStats()
	assert.Equal(t, int64(1), stats.TotalHits)
	assert.Equal(t, int64(1), stats.TotalMisses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestNoopCacheManager(t *testing.T) {
	manager := NewNoopCacheManager()

	_, found, err := manager.GetDeviceBinding("D1")
	assert.NoError(t, err)
	assert.False(t, found)

	ok, err := manager.AcquireCooldown("V1:speeding", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok, "no-op cache must never suppress")
}
