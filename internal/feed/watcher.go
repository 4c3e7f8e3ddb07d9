package feed

import (
	"context"
	"log"

	"fleet-dashboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SampleHandler receives each inserted telemetry sample in delivery order.
type SampleHandler func(ctx context.Context, sample *models.TelemetrySample)

// Watcher subscribes to the telemetry collection's change stream and
// pushes every inserted sample to the handler. It is the live-mode event
// source: one consumer goroutine, so samples from the same device are
// handled in the order they arrive. The composition root owns the
// Start/Stop lifecycle.
type Watcher struct {
	collection *mongo.Collection
	handler    SampleHandler

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(db *mongo.Database, handler SampleHandler) *Watcher {
	return &Watcher{
		collection: db.Collection("telemetry"),
		handler:    handler,
	}
}

// Start opens the change stream and begins dispatching samples.
func (w *Watcher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := w.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		cancel()
		return err
	}

	w.cancel = cancel
	w.done = make(chan struct{})

	log.Println("Telemetry feed watcher started")
	go w.run(ctx, stream)

	return nil
}

// Stop tears the subscription down and waits for the consumer to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	log.Println("Telemetry feed watcher stopped")
}

func (w *Watcher) run(ctx context.Context, stream *mongo.ChangeStream) {
	defer close(w.done)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event struct {
			FullDocument models.TelemetrySample `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			log.Printf("Feed watcher: failed to decode change event: %v", err)
			continue
		}

		w.handler(ctx, &event.FullDocument)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Feed watcher: change stream ended with error: %v", err)
	}
}
