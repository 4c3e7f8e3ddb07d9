package repository

import (
	"context"
	"errors"
	"time"

	"fleet-dashboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceRepository struct {
	collection *mongo.Collection
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{
		collection: db.Collection("devices"),
	}
}

func (r *DeviceRepository) Create(device *models.Device) (*models.Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}

func (r *DeviceRepository) FindByID(id string) (*models.Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var device models.Device
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&device)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return &device, nil
}

func (r *DeviceRepository) FindByVehicleID(vehicleID string) ([]*models.Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"vehicle_id": vehicleID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []*models.Device
	for cursor.Next(ctx) {
		var device models.Device
		if err := cursor.Decode(&device); err != nil {
			return nil, err
		}
		devices = append(devices, &device)
	}

	return devices, nil
}

// Bind points a device at a vehicle, replacing any previous binding.
func (r *DeviceRepository) Bind(deviceID, vehicleID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"vehicle_id": vehicleID, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": deviceID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Unbind(deviceID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{
		"$unset": bson.M{"vehicle_id": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": deviceID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// DeleteByVehicleID removes all bindings for a vehicle. Part of the
// vehicle delete cascade.
func (r *DeviceRepository) DeleteByVehicleID(vehicleID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"vehicle_id": vehicleID})
	return err
}
