package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"fleet-dashboard/internal/config"
	"fleet-dashboard/internal/models"
	"fleet-dashboard/pkg/telemetry"
)

// ErrVehicleNotFound means a device has no bound vehicle. The pipeline
// treats it as "drop the sample silently"; orphaned devices are an
// expected transient state.
var ErrVehicleNotFound = errors.New("no vehicle bound to device")

// VehicleResolver maps a device id to its owning vehicle.
type VehicleResolver interface {
	ResolveVehicleID(ctx context.Context, deviceID string) (string, error)
}

// AlertNotifier receives every newly persisted alert. Best-effort and
// fire-and-forget: failures to notify never roll back the alert.
type AlertNotifier interface {
	NotifyAlert(alert *models.Alert)
}

// TelemetryStore supplies recent samples for the batch sweep.
type TelemetryStore interface {
	FindRecent(ctx context.Context, limit int) ([]*models.TelemetrySample, error)
}

// LocationRecorder accepts vehicle position updates derived from samples.
type LocationRecorder interface {
	RecordLocation(vehicleID string, loc models.Location)
}

// IngestionService runs every telemetry sample through the same chain:
// resolve vehicle, evaluate thresholds, classify, gate, notify. Live mode
// feeds it one event at a time in delivery order; batch-sweep mode
// re-scans recent samples through a bounded worker pool.
type IngestionService struct {
	resolver   VehicleResolver
	gate       *AlertGate
	store      TelemetryStore
	notifier   AlertNotifier
	locations  LocationRecorder
	thresholds telemetry.Thresholds

	sweepLimit       int
	sweepConcurrency int
	persistRetries   int
	persistBackoff   time.Duration
}

func NewIngestionService(resolver VehicleResolver, gate *AlertGate, store TelemetryStore, cfg config.AlertingConfig) *IngestionService {
	sweepLimit := cfg.SweepLimit
	if sweepLimit <= 0 {
		sweepLimit = 50
	}
	concurrency := cfg.SweepConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	retries := cfg.PersistRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := cfg.PersistBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	return &IngestionService{
		resolver: resolver,
		gate:     gate,
		store:    store,
		thresholds: telemetry.Thresholds{
			SpeedLimitKmh:    cfg.SpeedLimitKmh,
			MaxLateralAccel:  cfg.MaxLateralAccel,
			MaxVerticalAccel: cfg.MaxVerticalAccel,
			MaxTiltDegrees:   cfg.MaxTiltDegrees,
		},
		sweepLimit:       sweepLimit,
		sweepConcurrency: concurrency,
		persistRetries:   retries,
		persistBackoff:   backoff,
	}
}

// SetNotifier attaches the downstream alert consumer.
func (s *IngestionService) SetNotifier(notifier AlertNotifier) {
	s.notifier = notifier
}

// SetLocationRecorder attaches the vehicle location writer.
func (s *IngestionService) SetLocationRecorder(recorder LocationRecorder) {
	s.locations = recorder
}

// ProcessTelemetryEvent runs the full pipeline for one sample. It returns
// the accepted alert, or (nil, nil) when no alert results: unknown device,
// no condition fired, or a duplicate suppressed by the gate. Errors are
// returned only after persistence retries are exhausted.
func (s *IngestionService) ProcessTelemetryEvent(ctx context.Context, sample *models.TelemetrySample) (*models.Alert, error) {
	vehicleID, err := s.resolver.ResolveVehicleID(ctx, sample.DeviceID)
	if err != nil {
		if errors.Is(err, ErrVehicleNotFound) {
			log.Printf("Ingestion: no vehicle for device %s, dropping sample", sample.DeviceID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolving vehicle for device %s: %w", sample.DeviceID, err)
	}

	if s.locations != nil && (sample.Latitude != 0 || sample.Longitude != 0) {
		s.locations.RecordLocation(vehicleID, models.Location{
			Lat:        sample.Latitude,
			Lng:        sample.Longitude,
			RecordedAt: sample.RecordedAt,
		})
	}

	eval := telemetry.Evaluate(sample, s.thresholds)
	cand := telemetry.Classify(eval, sample)
	if cand == nil {
		return nil, nil
	}

	alert, err := s.submitWithRetry(ctx, vehicleID, cand)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		// Suppressed by the gate
		return nil, nil
	}

	if s.notifier != nil {
		s.notifier.NotifyAlert(alert)
	}

	return alert, nil
}

func (s *IngestionService) submitWithRetry(ctx context.Context, vehicleID string, cand *telemetry.Candidate) (*models.Alert, error) {
	backoff := s.persistBackoff

	var lastErr error
	for attempt := 0; attempt < s.persistRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		alert, err := s.gate.Submit(ctx, vehicleID, cand)
		if err == nil {
			return alert, nil
		}

		lastErr = err
		log.Printf("Ingestion: alert persist attempt %d/%d for vehicle %s failed: %v",
			attempt+1, s.persistRetries, vehicleID, err)
	}

	return nil, fmt.Errorf("persisting alert for vehicle %s: %w", vehicleID, lastErr)
}

// SweepPartialError reports the samples that failed during a batch sweep.
// The sweep's accepted alerts are still returned alongside it.
type SweepPartialError struct {
	FailedSampleIDs []string
}

func (e *SweepPartialError) Error() string {
	return fmt.Sprintf("batch sweep failed for %d sample(s): %s",
		len(e.FailedSampleIDs), strings.Join(e.FailedSampleIDs, ", "))
}

// RunBatchSweep re-scans the most recent samples and processes each one
// independently: a failing sample never blocks the others, and duplicate
// processing is harmless because the gate suppresses repeats. Returns all
// newly accepted alerts, plus a *SweepPartialError when any sample failed.
func (s *IngestionService) RunBatchSweep(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = s.sweepLimit
	}

	samples, err := s.store.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recent samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	jobs := make(chan *models.TelemetrySample)

	var mu sync.Mutex
	var accepted []*models.Alert
	var failed []string

	var wg sync.WaitGroup
	for i := 0; i < s.sweepConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sample := range jobs {
				alert, err := s.ProcessTelemetryEvent(ctx, sample)

				mu.Lock()
				if err != nil {
					failed = append(failed, sample.SampleID())
				} else if alert != nil {
					accepted = append(accepted, alert)
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, sample := range samples {
		select {
		case jobs <- sample:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if len(failed) > 0 {
		return accepted, &SweepPartialError{FailedSampleIDs: failed}
	}

	return accepted, nil
}
