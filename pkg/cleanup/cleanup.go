package cleanup

import (
	"log"
	"time"

	"fleet-dashboard/internal/repository"
)

// CleanupService prunes telemetry samples past the retention window so the
// collection the batch sweep scans stays bounded.
type CleanupService struct {
	telemetryRepo *repository.TelemetryRepository
	retention     time.Duration
	interval      time.Duration
	stopChan      chan bool
}

func NewCleanupService(telemetryRepo *repository.TelemetryRepository, retention, interval time.Duration) *CleanupService {
	return &CleanupService{
		telemetryRepo: telemetryRepo,
		retention:     retention,
		interval:      interval,
		stopChan:      make(chan bool),
	}
}

// Start begins the cleanup service
func (s *CleanupService) Start() {
	log.Printf("Starting telemetry retention service (retention: %v, interval: %v)", s.retention, s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run cleanup immediately on start
	s.pruneExpiredSamples()

	for {
		select {
		case <-ticker.C:
			s.pruneExpiredSamples()
		case <-s.stopChan:
			log.Println("Stopping telemetry retention service")
			return
		}
	}
}

// Stop stops the cleanup service
func (s *CleanupService) Stop() {
	s.stopChan <- true
}

// pruneExpiredSamples removes telemetry samples older than the retention window
func (s *CleanupService) pruneExpiredSamples() {
	cutoff := time.Now().Add(-s.retention)

	count, err := s.telemetryRepo.DeleteOlderThan(cutoff)
	if err != nil {
		log.Printf("Error pruning expired telemetry samples: %v", err)
		return
	}

	if count > 0 {
		log.Printf("Pruned %d telemetry samples older than %v", count, cutoff.Format(time.RFC3339))
	}
}
