package batch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"fleet-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocationStore struct {
	mu          sync.Mutex
	batches     []map[string]models.Location
	individual  map[string]models.Location
	failBatches bool
	failVehicle string
}

func newFakeLocationStore() *fakeLocationStore {
	return &fakeLocationStore{
		individual: make(map[string]models.Location),
	}
}

func (f *fakeLocationStore) UpdateLocation(vehicleID string, loc models.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vehicleID == f.failVehicle {
		return errors.New("write failed")
	}
	f.individual[vehicleID] = loc
	return nil
}

func (f *fakeLocationStore) UpdateLocationsBatch(updates map[string]models.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatches {
		return errors.New("batch write failed")
	}
	copied := make(map[string]models.Location, len(updates))
	for k, v := range updates {
		copied[k] = v
	}
	f.batches = append(f.batches, copied)
	return nil
}

func (f *fakeLocationStore) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeLocationStore) lastBatch() map[string]models.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	updates map[string]models.Location
}

func (f *fakeBroadcaster) NotifyLocation(vehicleID string, loc models.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]models.Location)
	}
	f.updates[vehicleID] = loc
}

func testWriterConfig() Config {
	return Config{
		MaxBatchSize:  10,
		FlushInterval: time.Hour, // flush manually in tests
		RetryAttempts: 1,
		RetryBackoff:  time.Millisecond,
		MinMovement:   0.00005,
	}
}

func loc(lat, lng float64) models.Location {
	return models.Location{Lat: lat, Lng: lng, RecordedAt: time.Now()}
}

func TestLocationWriter_FlushWritesPending(t *testing.T) {
	store := newFakeLocationStore()
	writer := NewLocationWriter(testWriterConfig(), store)

	writer.enqueue("V1", loc(36.8, 10.2))
	writer.enqueue("V2", loc(35.5, 11.1))

	require.NoError(t, writer.Flush())

	require.Equal(t, 1, store.batchCount())
	batch := store.lastBatch()
	assert.Len(t, batch, 2)
	assert.InDelta(t, 36.8, batch["V1"].Lat, 1e-9)
}

func TestLocationWriter_CoalescesLatestPerVehicle(t *testing.T) {
	store := newFakeLocationStore()
	writer := NewLocationWriter(testWriterConfig(), store)

	writer.enqueue("V1", loc(36.0, 10.0))
	writer.enqueue("V1", loc(37.0, 11.0))

	require.NoError(t, writer.Flush())

	batch := store.lastBatch()
	require.Len(t, batch, 1)
	assert.InDelta(t, 37.0, batch["V1"].Lat, 1e-9)
}

func TestLocationWriter_SkipsStationaryVehicle(t *testing.T) {
	store := newFakeLocationStore()
	writer := NewLocationWriter(testWriterConfig(), store)

	writer.enqueue("V1", loc(36.8, 10.2))
	require.NoError(t, writer.Flush())

	// Negligible movement is dropped, nothing new to flush.
	writer.enqueue("V1", loc(36.8+0.00001, 10.2))
	require.NoError(t, writer.Flush())
	assert.Equal(t, 1, store.batchCount())

	// Real movement goes through.
	writer.enqueue("V1", loc(36.81, 10.2))
	require.NoError(t, writer.Flush())
	assert.Equal(t, 2, store.batchCount())

	stats := writer.GetStats()
	assert.Equal(t, int64(1), stats.SkippedUpdates)
}

func TestLocationWriter_FallsBackToIndividualWrites(t *testing.T) {
	store := newFakeLocationStore()
	store.failBatches = true
	writer := NewLocationWriter(testWriterConfig(), store)

	writer.enqueue("V1", loc(36.8, 10.2))
	writer.enqueue("V2", loc(35.5, 11.1))

	require.NoError(t, writer.Flush())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.individual, 2)
}

func TestLocationWriter_IndividualFailureReported(t *testing.T) {
	store := newFakeLocationStore()
	store.failBatches = true
	store.failVehicle = "V2"
	writer := NewLocationWriter(testWriterConfig(), store)

	writer.enqueue("V1", loc(36.8, 10.2))
	writer.enqueue("V2", loc(35.5, 11.1))

	err := writer.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "V2")

	stats := writer.GetStats()
	assert.Equal(t, int64(1), stats.FailedUpdates)
}

func TestLocationWriter_BroadcastsAfterFlush(t *testing.T) {
	store := newFakeLocationStore()
	broadcaster := &fakeBroadcaster{}
	writer := NewLocationWriter(testWriterConfig(), store)
	writer.SetBroadcaster(broadcaster)

	writer.enqueue("V1", loc(36.8, 10.2))
	require.NoError(t, writer.Flush())

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	require.Contains(t, broadcaster.updates, "V1")
	assert.InDelta(t, 36.8, broadcaster.updates["V1"].Lat, 1e-9)
}

func TestLocationWriter_WorkerFlushesOnStop(t *testing.T) {
	store := newFakeLocationStore()
	writer := NewLocationWriter(testWriterConfig(), store)

	require.NoError(t, writer.Start())
	writer.RecordLocation("V1", loc(36.8, 10.2))

	// Give the worker a moment to drain the queue.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, writer.Stop())

	assert.Equal(t, 1, store.batchCount())
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))

	bad := DefaultConfig()
	bad.MaxBatchSize = 0
	assert.ErrorIs(t, ValidateConfig(bad), ErrInvalidBatchSize)

	bad = DefaultConfig()
	bad.FlushInterval = 0
	assert.ErrorIs(t, ValidateConfig(bad), ErrInvalidFlushInterval)

	bad = DefaultConfig()
	bad.RetryAttempts = -1
	assert.ErrorIs(t, ValidateConfig(bad), ErrInvalidRetryAttempts)
}
