package services

import (
	"context"
	"errors"
	"log"
	"time"
)

// Sweeper drives batch-sweep mode on a fixed interval. It replaces the
// scattered refresh timers the dashboard surfaces used to carry: one
// explicit interval, one owner, cancellable on shutdown.
type Sweeper struct {
	service  *IngestionService
	interval time.Duration
	limit    int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(service *IngestionService, interval time.Duration, limit int) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		limit:    limit,
	}
}

// Start begins periodic sweeps. Safe to call once.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	log.Printf("Starting batch sweeper (interval: %v, limit: %d)", s.interval, s.limit)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels any in-flight sweep and waits for the loop to exit.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Println("Batch sweeper stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	alerts, err := s.service.RunBatchSweep(sweepCtx, s.limit)
	if err != nil {
		var partial *SweepPartialError
		if errors.As(err, &partial) {
			log.Printf("Batch sweep: %d alert(s) accepted, %d sample(s) failed: %v",
				len(alerts), len(partial.FailedSampleIDs), partial.FailedSampleIDs)
			return
		}
		log.Printf("Batch sweep failed: %v", err)
		return
	}

	if len(alerts) > 0 {
		log.Printf("Batch sweep accepted %d alert(s)", len(alerts))
	}
}
