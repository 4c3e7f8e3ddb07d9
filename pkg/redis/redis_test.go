package redis

import (
	"testing"
	"time"

	"fleet-dashboard/internal/config"

	"github.com/alicebob/miniredis/v2"
)

func testConfig(t *testing.T) config.RedisConfig {
	t.Helper()

	mr := miniredis.RunT(t)

	return config.RedisConfig{
		Host:         mr.Host(),
		Port:         mr.Port(),
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		RetryDelay:   1 * time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(testConfig(t))
	defer client.Close()

	if client == nil {
		t.Fatal("Expected client to be created, got nil")
	}

	redisClient := client.GetClient()
	if redisClient == nil {
		t.Fatal("Expected Redis client to be available, got nil")
	}
}

func TestHealthCheck(t *testing.T) {
	client := NewClient(testConfig(t))
	defer client.Close()

	// Give some time for initial connection
	time.Sleep(100 * time.Millisecond)

	status := client.HealthCheck()

	if status.Addr == "" {
		t.Error("Expected addr to be set")
	}

	if !status.IsConnected {
		t.Errorf("Expected client to be connected, got error: %s", status.Error)
	}

	if status.Pool.TotalConns == 0 {
		t.Error("Expected pool stats to report at least one connection")
	}
}
