package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleet-dashboard/internal/config"
	"fleet-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- fakes shared by the service tests ----

type fakeAlertStore struct {
	mu       sync.Mutex
	alerts   []*models.Alert
	failures int // number of Create calls to fail before succeeding
}

func (f *fakeAlertStore) Create(_ context.Context, alert *models.Alert) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, errors.New("store unavailable")
	}

	stored := *alert
	stored.ID = primitive.NewObjectID()
	f.alerts = append(f.alerts, &stored)
	return &stored, nil
}

func (f *fakeAlertStore) FindLatestByVehicleAndType(_ context.Context, vehicleID, alertType string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.Alert
	for _, a := range f.alerts {
		if a.VehicleID == vehicleID && a.Type == alertType {
			if latest == nil || a.Timestamp.After(latest.Timestamp) {
				latest = a
			}
		}
	}
	return latest, nil
}

func (f *fakeAlertStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakeResolver struct {
	bindings map[string]string
	failFor  map[string]error
}

func (f *fakeResolver) ResolveVehicleID(_ context.Context, deviceID string) (string, error) {
	if err, ok := f.failFor[deviceID]; ok {
		return "", err
	}
	if vehicleID, ok := f.bindings[deviceID]; ok {
		return vehicleID, nil
	}
	return "", ErrVehicleNotFound
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (f *fakeNotifier) NotifyAlert(alert *models.Alert) {
	f.mu.Lock()
	f.alerts = append(f.alerts, alert)
	f.mu.Unlock()
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakeTelemetryStore struct {
	samples []*models.TelemetrySample
}

func (f *fakeTelemetryStore) FindRecent(_ context.Context, limit int) ([]*models.TelemetrySample, error) {
	if limit < len(f.samples) {
		return f.samples[:limit], nil
	}
	return f.samples, nil
}

func f64(v float64) *float64 { return &v }

func testConfig() config.AlertingConfig {
	return config.AlertingConfig{
		SpeedLimitKmh:    100,
		MaxLateralAccel:  20,
		MaxVerticalAccel: 30,
		MaxTiltDegrees:   45,
		Cooldown:         time.Minute,
		SweepLimit:       50,
		SweepConcurrency: 4,
		PersistRetries:   3,
		PersistBackoff:   time.Millisecond,
	}
}

func newTestPipeline(store *fakeAlertStore, resolver *fakeResolver, telemetryStore TelemetryStore) (*IngestionService, *fakeNotifier) {
	cfg := testConfig()
	gate := NewAlertGate(store, nil, cfg.Cooldown)
	svc := NewIngestionService(resolver, gate, telemetryStore, cfg)

	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)
	return svc, notifier
}

// ---- live mode ----

func TestProcessTelemetryEvent_Speeding(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, notifier := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "V1", alert.VehicleID)
	assert.Equal(t, models.AlertTypeSpeeding, alert.Type)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Description, "130")
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, notifier.count())
}

func TestProcessTelemetryEvent_UnderLimit(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(90), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, 0, store.count())
}

func TestProcessTelemetryEvent_UnusualMovement(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", AccelZ: f64(35), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeUnusualMovement, alert.Type)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Contains(t, alert.Description, "unusual movement")
}

func TestProcessTelemetryEvent_SpeedingPriority(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(150), AccelZ: f64(40), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeSpeeding, alert.Type)
	assert.Equal(t, 1, store.count(), "both conditions firing must yield exactly one alert")
}

func TestProcessTelemetryEvent_DuplicateSuppressed(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, notifier := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()}

	first, err := svc.ProcessTelemetryEvent(context.Background(), sample)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.ProcessTelemetryEvent(context.Background(), sample)
	require.NoError(t, err)
	assert.Nil(t, second, "second submission within the cooldown is a no-op")
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, notifier.count(), "suppressed duplicates must not notify")
}

func TestProcessTelemetryEvent_UnknownDevice(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "UNKNOWN", Speed: f64(200), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err, "an unbound device is not an error")
	assert.Nil(t, alert)
	assert.Equal(t, 0, store.count())
}

func TestProcessTelemetryEvent_PersistRetrySucceeds(t *testing.T) {
	store := &fakeAlertStore{failures: 2}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, 1, store.count())
}

func TestProcessTelemetryEvent_PersistRetriesExhausted(t *testing.T) {
	store := &fakeAlertStore{failures: 10}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()}
	alert, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.Error(t, err)
	assert.Nil(t, alert)
}

func TestProcessTelemetryEvent_RecordsLocation(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{})

	var mu sync.Mutex
	recorded := map[string]models.Location{}
	svc.SetLocationRecorder(locationRecorderFunc(func(vehicleID string, loc models.Location) {
		mu.Lock()
		recorded[vehicleID] = loc
		mu.Unlock()
	}))

	sample := &models.TelemetrySample{DeviceID: "D1", Latitude: 36.8, Longitude: 10.2, RecordedAt: time.Now()}
	_, err := svc.ProcessTelemetryEvent(context.Background(), sample)

	require.NoError(t, err)
	assert.Equal(t, 36.8, recorded["V1"].Lat)
	assert.Equal(t, 10.2, recorded["V1"].Lng)
}

type locationRecorderFunc func(vehicleID string, loc models.Location)

func (f locationRecorderFunc) RecordLocation(vehicleID string, loc models.Location) { f(vehicleID, loc) }

// ---- batch sweep ----

func TestRunBatchSweep_AcceptsQualifyingSamples(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1", "D2": "V2"}}
	telemetryStore := &fakeTelemetryStore{samples: []*models.TelemetrySample{
		{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()},
		{DeviceID: "D2", AccelZ: f64(40), RecordedAt: time.Now()},
		{DeviceID: "D1", Speed: f64(50), RecordedAt: time.Now()},
	}}
	svc, _ := newTestPipeline(store, resolver, telemetryStore)

	alerts, err := svc.RunBatchSweep(context.Background(), 0)

	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	assert.Equal(t, 2, store.count())
}

func TestRunBatchSweep_FailureIsolation(t *testing.T) {
	store := &fakeAlertStore{}

	bindings := map[string]string{}
	samples := make([]*models.TelemetrySample, 0, 10)
	for i := 0; i < 9; i++ {
		deviceID := fmt.Sprintf("D%d", i)
		bindings[deviceID] = fmt.Sprintf("V%d", i)
		samples = append(samples, &models.TelemetrySample{
			DeviceID:   deviceID,
			Speed:      f64(130),
			RecordedAt: time.Now(),
		})
	}
	broken := &models.TelemetrySample{DeviceID: "BROKEN", Speed: f64(130), RecordedAt: time.Now()}
	samples = append(samples, broken)

	resolver := &fakeResolver{
		bindings: bindings,
		failFor:  map[string]error{"BROKEN": errors.New("resolver backend down")},
	}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{samples: samples})

	alerts, err := svc.RunBatchSweep(context.Background(), 10)

	assert.Len(t, alerts, 9, "healthy samples must not be dragged down by the failing one")

	var partial *SweepPartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{broken.SampleID()}, partial.FailedSampleIDs)
}

func TestRunBatchSweep_DuplicateSafe(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}
	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f64(130), RecordedAt: time.Now()}
	telemetryStore := &fakeTelemetryStore{samples: []*models.TelemetrySample{sample, sample, sample}}
	svc, _ := newTestPipeline(store, resolver, telemetryStore)

	alerts, err := svc.RunBatchSweep(context.Background(), 0)

	require.NoError(t, err)
	assert.Len(t, alerts, 1, "re-processing the same sample must not create more alerts")
	assert.Equal(t, 1, store.count())
}

func TestRunBatchSweep_EmptyStore(t *testing.T) {
	svc, _ := newTestPipeline(&fakeAlertStore{}, &fakeResolver{}, &fakeTelemetryStore{})

	alerts, err := svc.RunBatchSweep(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestRunBatchSweep_Cancellation(t *testing.T) {
	store := &fakeAlertStore{}
	resolver := &fakeResolver{bindings: map[string]string{"D1": "V1"}}

	samples := make([]*models.TelemetrySample, 100)
	for i := range samples {
		samples[i] = &models.TelemetrySample{DeviceID: "D1", Speed: f64(50), RecordedAt: time.Now()}
	}
	svc, _ := newTestPipeline(store, resolver, &fakeTelemetryStore{samples: samples})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunBatchSweep(ctx, 100)
	assert.NoError(t, err, "cancellation mid-sweep is not a failure")
}
