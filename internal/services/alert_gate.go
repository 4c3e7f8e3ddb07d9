package services

import (
	"context"
	"log"
	"sync"
	"time"

	"fleet-dashboard/internal/models"
	"fleet-dashboard/pkg/cache"
	"fleet-dashboard/pkg/telemetry"
)

// AlertStore is the persistence surface the gate writes through. No other
// component inserts alert rows.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) (*models.Alert, error)
	FindLatestByVehicleAndType(ctx context.Context, vehicleID, alertType string) (*models.Alert, error)
}

// AlertGate decides whether a candidate becomes a persisted alert. It
// suppresses repeats of the same (vehicle, type) pair within the cooldown
// window and serializes decisions per pair, so two samples for the same
// vehicle arriving concurrently cannot both pass the check and
// double-insert.
type AlertGate struct {
	store    AlertStore
	cache    cache.CacheManager
	cooldown time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAlertGate(store AlertStore, cacheManager cache.CacheManager, cooldown time.Duration) *AlertGate {
	if cacheManager == nil {
		cacheManager = cache.NewNoopCacheManager()
	}
	return &AlertGate{
		store:    store,
		cache:    cacheManager,
		cooldown: cooldown,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Submit persists the candidate as a new alert unless a recent alert of
// the same type already exists for the vehicle. It returns (nil, nil) when
// the candidate is suppressed: deduplication is normal control flow, not
// an error. A non-nil error means the insert failed and may be retried.
func (g *AlertGate) Submit(ctx context.Context, vehicleID string, cand *telemetry.Candidate) (*models.Alert, error) {
	key := vehicleID + ":" + cand.Type

	lock := g.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	claimed := false
	if g.cooldown > 0 {
		ok, err := g.cache.AcquireCooldown(key, g.cooldown)
		if err != nil {
			// Cache down: fall through to the authoritative check.
			log.Printf("AlertGate: cooldown marker unavailable for %s: %v", key, err)
			ok = true
		} else {
			claimed = ok
		}
		if !ok {
			return nil, nil
		}

		latest, err := g.store.FindLatestByVehicleAndType(ctx, vehicleID, cand.Type)
		if err != nil {
			g.releaseClaim(key, claimed)
			return nil, err
		}
		if latest != nil && time.Since(latest.Timestamp) < g.cooldown {
			return nil, nil
		}
	}

	alert := &models.Alert{
		VehicleID:   vehicleID,
		Type:        cand.Type,
		Severity:    cand.Severity,
		Description: cand.Description,
		Timestamp:   time.Now(),
	}

	created, err := g.store.Create(ctx, alert)
	if err != nil {
		g.releaseClaim(key, claimed)
		return nil, err
	}

	return created, nil
}

// releaseClaim drops a cooldown marker that has no alert behind it, so a
// failed insert does not suppress the next qualifying sample.
func (g *AlertGate) releaseClaim(key string, claimed bool) {
	if !claimed {
		return
	}
	if err := g.cache.ClearCooldown(key); err != nil {
		log.Printf("AlertGate: failed to release cooldown marker %s: %v", key, err)
	}
}

func (g *AlertGate) lockFor(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}
