package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	JWTSecret      string
	JWTExpiry      string
	AllowedOrigins []string
	Redis          RedisConfig
	Alerting       AlertingConfig
}

type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	RetryDelay   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// AlertingConfig drives the telemetry alert detection engine.
type AlertingConfig struct {
	SpeedLimitKmh    float64
	MaxLateralAccel  float64
	MaxVerticalAccel float64
	MaxTiltDegrees   float64

	// Cooldown is the minimum gap between two accepted alerts of the
	// same type for the same vehicle. Zero disables deduplication.
	Cooldown time.Duration

	SweepInterval    time.Duration
	SweepLimit       int
	SweepConcurrency int

	PersistRetries int
	PersistBackoff time.Duration

	TelemetryRetention time.Duration
}

func Load() *Config {
	// load .env variable
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on environment variables")
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI environment variable is not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	return &Config{
		Port:           port,
		MongoURI:       mongoURI,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiry:      os.Getenv("JWT_EXPIRY"),
		AllowedOrigins: strings.Split(allowedOrigins, ","),
		Redis:          loadRedisConfig(),
		Alerting:       loadAlertingConfig(),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		Host:         envString("REDIS_HOST", "localhost"),
		Port:         envString("REDIS_PORT", "6379"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           envInt("REDIS_DB", 0),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		MaxRetries:   envInt("REDIS_MAX_RETRIES", 3),
		RetryDelay:   envDuration("REDIS_RETRY_DELAY", 100*time.Millisecond),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolTimeout:  envDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
	}
}

func loadAlertingConfig() AlertingConfig {
	return AlertingConfig{
		SpeedLimitKmh:      envFloat("SPEED_LIMIT_KMH", 100),
		MaxLateralAccel:    envFloat("MAX_LATERAL_ACCEL", 20),
		MaxVerticalAccel:   envFloat("MAX_VERTICAL_ACCEL", 30),
		MaxTiltDegrees:     envFloat("MAX_TILT_DEGREES", 45),
		Cooldown:           envDuration("ALERT_COOLDOWN", 60*time.Second),
		SweepInterval:      envDuration("SWEEP_INTERVAL", 30*time.Second),
		SweepLimit:         envInt("SWEEP_LIMIT", 50),
		SweepConcurrency:   envInt("SWEEP_CONCURRENCY", 8),
		PersistRetries:     envInt("ALERT_PERSIST_RETRIES", 3),
		PersistBackoff:     envDuration("ALERT_PERSIST_BACKOFF", 100*time.Millisecond),
		TelemetryRetention: envDuration("TELEMETRY_RETENTION", 168*time.Hour),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, v, fallback)
		return fallback
	}
	return d
}
