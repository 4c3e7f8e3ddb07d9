package batch

import (
	"fmt"
	"time"

	"fleet-dashboard/internal/models"
)

// LocationStore defines the persistence surface for vehicle positions
type LocationStore interface {
	UpdateLocation(vehicleID string, loc models.Location) error
	UpdateLocationsBatch(updates map[string]models.Location) error
}

// LocationBroadcaster pushes flushed positions to live consumers
type LocationBroadcaster interface {
	NotifyLocation(vehicleID string, loc models.Location)
}

// WriterStats provides statistics about batch flushes
type WriterStats struct {
	BatchesFlushed  int           `json:"batchesFlushed"`
	AverageSize     float64       `json:"averageSize"`
	FlushTime       time.Duration `json:"flushTime"`
	TotalUpdates    int64         `json:"totalUpdates"`
	SkippedUpdates  int64         `json:"skippedUpdates"`
	FailedUpdates   int64         `json:"failedUpdates"`
	LastFlushedAt   time.Time     `json:"lastFlushedAt"`
}

// Config holds configuration for the location batch writer
type Config struct {
	MaxBatchSize  int           `json:"maxBatchSize"`  // vehicles per flush
	FlushInterval time.Duration `json:"flushInterval"` // periodic flush
	RetryAttempts int           `json:"retryAttempts"`
	RetryBackoff  time.Duration `json:"retryBackoff"` // initial, doubles per attempt

	// Positions closer than this (in degrees, per axis) to the last
	// flushed position are dropped as noise.
	MinMovement float64 `json:"minMovement"`
}

var (
	ErrInvalidBatchSize     = fmt.Errorf("invalid batch size: must be greater than 0")
	ErrInvalidFlushInterval = fmt.Errorf("invalid flush interval: must be greater than 0")
	ErrInvalidRetryAttempts = fmt.Errorf("invalid retry attempts: must be greater than or equal to 0")
	ErrInvalidRetryBackoff  = fmt.Errorf("invalid retry backoff: must be greater than or equal to 0")
)
