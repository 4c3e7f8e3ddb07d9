package batch

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"fleet-dashboard/internal/models"
)

// LocationWriter coalesces vehicle position updates and persists them in
// batches. Only the latest position per vehicle within a flush window is
// written; older ones are superseded before they ever hit the database.
type LocationWriter struct {
	config Config
	store  LocationStore

	broadcaster LocationBroadcaster

	pending    map[string]models.Location
	pendingMux sync.RWMutex

	// Last position actually flushed per vehicle, used for movement
	// delta filtering.
	lastFlushed map[string]models.Location

	ctx      context.Context
	cancel   context.CancelFunc
	workerWg sync.WaitGroup

	stats    WriterStats
	statsMux sync.RWMutex

	updateChan chan locationUpdate
}

type locationUpdate struct {
	vehicleID string
	loc       models.Location
}

// NewLocationWriter creates a new location batch writer
func NewLocationWriter(config Config, store LocationStore) *LocationWriter {
	ctx, cancel := context.WithCancel(context.Background())

	return &LocationWriter{
		config:      config,
		store:       store,
		pending:     make(map[string]models.Location),
		lastFlushed: make(map[string]models.Location),
		ctx:         ctx,
		cancel:      cancel,
		updateChan:  make(chan locationUpdate, config.MaxBatchSize*2),
		stats: WriterStats{
			LastFlushedAt: time.Now(),
		},
	}
}

// SetBroadcaster sets the live consumer notified after each flush
func (w *LocationWriter) SetBroadcaster(broadcaster LocationBroadcaster) {
	w.broadcaster = broadcaster
}

// RecordLocation queues a vehicle position update. Implements the
// ingestion pipeline's LocationRecorder. Never blocks the caller: when
// the queue is full the update is dropped and a fresher one will follow.
func (w *LocationWriter) RecordLocation(vehicleID string, loc models.Location) {
	select {
	case w.updateChan <- locationUpdate{vehicleID: vehicleID, loc: loc}:
	case <-w.ctx.Done():
	default:
		log.Printf("LocationWriter: queue full, dropping update for vehicle %s", vehicleID)
	}
}

// Start starts the flush worker
func (w *LocationWriter) Start() error {
	if err := ValidateConfig(w.config); err != nil {
		return err
	}

	w.workerWg.Add(1)
	go w.worker()
	log.Println("Location batch writer started")
	return nil
}

// Stop flushes pending updates and stops the worker
func (w *LocationWriter) Stop() error {
	w.cancel()
	w.workerWg.Wait()
	log.Println("Location batch writer stopped")
	return nil
}

func (w *LocationWriter) worker() {
	defer w.workerWg.Done()

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case update := <-w.updateChan:
			w.enqueue(update.vehicleID, update.loc)

			if w.pendingCount() >= w.config.MaxBatchSize {
				if err := w.Flush(); err != nil {
					log.Printf("LocationWriter: full-batch flush failed: %v", err)
				}
			}

		case <-ticker.C:
			if err := w.Flush(); err != nil {
				log.Printf("LocationWriter: interval flush failed: %v", err)
			}

		case <-w.ctx.Done():
			// Drain whatever is still queued, then flush once more.
			for {
				select {
				case update := <-w.updateChan:
					w.enqueue(update.vehicleID, update.loc)
					continue
				default:
				}
				break
			}
			if err := w.Flush(); err != nil {
				log.Printf("LocationWriter: final flush failed: %v", err)
			}
			return
		}
	}
}

// enqueue stages an update, dropping positions that have not meaningfully
// moved since the last flush.
func (w *LocationWriter) enqueue(vehicleID string, loc models.Location) {
	w.pendingMux.Lock()
	defer w.pendingMux.Unlock()

	if last, ok := w.lastFlushed[vehicleID]; ok && !w.moved(last, loc) {
		w.statsMux.Lock()
		w.stats.SkippedUpdates++
		w.statsMux.Unlock()
		return
	}

	w.pending[vehicleID] = loc
}

func (w *LocationWriter) moved(last, next models.Location) bool {
	return math.Abs(next.Lat-last.Lat) >= w.config.MinMovement ||
		math.Abs(next.Lng-last.Lng) >= w.config.MinMovement
}

func (w *LocationWriter) pendingCount() int {
	w.pendingMux.RLock()
	defer w.pendingMux.RUnlock()
	return len(w.pending)
}

// Flush persists the staged updates with retry, then notifies the
// broadcaster for each flushed position.
func (w *LocationWriter) Flush() error {
	w.pendingMux.Lock()
	if len(w.pending) == 0 {
		w.pendingMux.Unlock()
		return nil
	}
	pending := w.pending
	w.pending = make(map[string]models.Location)
	w.pendingMux.Unlock()

	startTime := time.Now()

	err := w.writeWithRetry(pending)
	if err != nil {
		// Fall back to individual writes so one bad vehicle does not
		// sink the whole batch.
		err = w.writeIndividually(pending)
	}

	w.pendingMux.Lock()
	for vehicleID, loc := range pending {
		w.lastFlushed[vehicleID] = loc
	}
	w.pendingMux.Unlock()

	w.updateStats(len(pending), time.Since(startTime))

	if w.broadcaster != nil {
		for vehicleID, loc := range pending {
			w.broadcaster.NotifyLocation(vehicleID, loc)
		}
	}

	return err
}

func (w *LocationWriter) writeWithRetry(pending map[string]models.Location) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * w.config.RetryBackoff
			log.Printf("LocationWriter: retrying batch write after %v (attempt %d/%d)", backoff, attempt, w.config.RetryAttempts)

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				return fmt.Errorf("location writer stopped during retry")
			}
		}

		lastErr = w.store.UpdateLocationsBatch(pending)
		if lastErr == nil {
			return nil
		}

		log.Printf("LocationWriter: batch write attempt %d failed: %v", attempt+1, lastErr)
	}

	return lastErr
}

func (w *LocationWriter) writeIndividually(pending map[string]models.Location) error {
	var failures []string

	for vehicleID, loc := range pending {
		if err := w.store.UpdateLocation(vehicleID, loc); err != nil {
			failures = append(failures, fmt.Sprintf("vehicle %s: %v", vehicleID, err))
			w.statsMux.Lock()
			w.stats.FailedUpdates++
			w.statsMux.Unlock()
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("individual location write failures: %v", failures)
	}

	return nil
}

// GetStats returns current flush statistics
func (w *LocationWriter) GetStats() WriterStats {
	w.statsMux.RLock()
	defer w.statsMux.RUnlock()
	return w.stats
}

func (w *LocationWriter) updateStats(updateCount int, flushTime time.Duration) {
	w.statsMux.Lock()
	defer w.statsMux.Unlock()

	w.stats.BatchesFlushed++
	w.stats.TotalUpdates += int64(updateCount)
	w.stats.LastFlushedAt = time.Now()
	w.stats.FlushTime = flushTime

	if w.stats.BatchesFlushed > 0 {
		w.stats.AverageSize = float64(w.stats.TotalUpdates) / float64(w.stats.BatchesFlushed)
	}
}
