package batch

import (
	"os"
	"strconv"
	"time"
)

// DefaultConfig returns the default configuration for the location writer
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:  50,
		FlushInterval: 5 * time.Second,
		RetryAttempts: 3,
		RetryBackoff:  1 * time.Second,
		MinMovement:   0.00005, // roughly 5 meters
	}
}

// LoadConfigFromEnv loads writer configuration from environment variables
func LoadConfigFromEnv() Config {
	config := DefaultConfig()

	if val := os.Getenv("LOCATION_BATCH_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			config.MaxBatchSize = size
		}
	}

	if val := os.Getenv("LOCATION_BATCH_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			config.FlushInterval = interval
		}
	}

	if val := os.Getenv("LOCATION_BATCH_RETRY_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil && attempts >= 0 {
			config.RetryAttempts = attempts
		}
	}

	if val := os.Getenv("LOCATION_BATCH_RETRY_BACKOFF"); val != "" {
		if backoff, err := time.ParseDuration(val); err == nil {
			config.RetryBackoff = backoff
		}
	}

	if val := os.Getenv("LOCATION_MIN_MOVEMENT"); val != "" {
		if movement, err := strconv.ParseFloat(val, 64); err == nil && movement >= 0 {
			config.MinMovement = movement
		}
	}

	return config
}

// ValidateConfig validates the writer configuration
func ValidateConfig(config Config) error {
	if config.MaxBatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if config.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}

	if config.RetryAttempts < 0 {
		return ErrInvalidRetryAttempts
	}

	if config.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}

	return nil
}
