package repository

import (
	"context"
	"errors"
	"time"

	"fleet-dashboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrAlertNotFound = errors.New("alert not found")

type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{
		collection: db.Collection("alerts"),
	}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, alert)
	if err != nil {
		return nil, err
	}

	alert.ID = result.InsertedID.(primitive.ObjectID)
	return alert, nil
}

func (r *AlertRepository) FindByID(id string) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid alert ID")
	}

	var alert models.Alert
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	return &alert, nil
}

// FindLatestByVehicleAndType returns the most recent alert of the given
// type for a vehicle, or nil when the vehicle has none. This is the
// authoritative lookup behind the dedup gate.
func (r *AlertRepository) FindLatestByVehicleAndType(ctx context.Context, vehicleID, alertType string) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"vehicle_id": vehicleID, "type": alertType}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var alert models.Alert
	err := r.collection.FindOne(ctx, filter, opts).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &alert, nil
}

func (r *AlertRepository) FindAll() ([]*models.Alert, error) {
	return r.find(bson.M{})
}

func (r *AlertRepository) FindByVehicleID(vehicleID string) ([]*models.Alert, error) {
	return r.find(bson.M{"vehicle_id": vehicleID})
}

func (r *AlertRepository) FindByType(alertType string) ([]*models.Alert, error) {
	return r.find(bson.M{"type": alertType})
}

func (r *AlertRepository) FindBySeverity(severity string) ([]*models.Alert, error) {
	return r.find(bson.M{"severity": severity})
}

func (r *AlertRepository) find(filter bson.M) ([]*models.Alert, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Most recent alerts first
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []*models.Alert
	for cursor.Next(ctx) {
		var alert models.Alert
		if err := cursor.Decode(&alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, &alert)
	}

	return alerts, nil
}

func (r *AlertRepository) Count() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *AlertRepository) CountByType(alertType string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"type": alertType})
}

// DeleteByVehicleID removes a vehicle's alerts. Alerts are immutable and
// are never deleted individually; this exists only for the vehicle delete
// cascade.
func (r *AlertRepository) DeleteByVehicleID(vehicleID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"vehicle_id": vehicleID})
	return err
}
