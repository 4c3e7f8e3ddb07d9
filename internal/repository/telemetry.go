package repository

import (
	"context"
	"time"

	"fleet-dashboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TelemetryRepository struct {
	collection *mongo.Collection
}

func NewTelemetryRepository(db *mongo.Database) *TelemetryRepository {
	return &TelemetryRepository{
		collection: db.Collection("telemetry"),
	}
}

func (r *TelemetryRepository) Insert(ctx context.Context, sample *models.TelemetrySample) (*models.TelemetrySample, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, sample)
	if err != nil {
		return nil, err
	}

	sample.ID = result.InsertedID.(primitive.ObjectID)
	return sample, nil
}

// FindRecent returns the most recent samples, newest first. The batch
// sweep re-scans these.
func (r *TelemetryRepository) FindRecent(ctx context.Context, limit int) ([]*models.TelemetrySample, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var samples []*models.TelemetrySample
	for cursor.Next(ctx) {
		var sample models.TelemetrySample
		if err := cursor.Decode(&sample); err != nil {
			return nil, err
		}
		samples = append(samples, &sample)
	}

	return samples, nil
}

// DeleteOlderThan prunes samples past the retention window and returns the
// number removed.
func (r *TelemetryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"recorded_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func (r *TelemetryRepository) Count() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{})
}
