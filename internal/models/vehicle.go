package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle statuses. Transitions between them are unconstrained.
const (
	VehicleStatusActive      = "active"
	VehicleStatusInactive    = "inactive"
	VehicleStatusMaintenance = "maintenance"
)

// MaxLocationHistory caps the per-vehicle location history kept inline.
const MaxLocationHistory = 100

type Vehicle struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlateNumber     string             `bson:"plate_number" json:"plateNumber" validate:"required"`
	Status          string             `bson:"status" json:"status" validate:"required,oneof=active inactive maintenance"`
	OwnerID         string             `bson:"owner_id" json:"ownerId"`
	CurrentLocation *Location          `bson:"current_location,omitempty" json:"currentLocation,omitempty"`
	// LocationHistory is ordered most-recent-first: live updates prepend.
	LocationHistory []Location `bson:"location_history,omitempty" json:"locationHistory,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updatedAt"`
}

type Location struct {
	Lat        float64   `bson:"lat" json:"lat"`
	Lng        float64   `bson:"lng" json:"lng"`
	RecordedAt time.Time `bson:"recorded_at" json:"recordedAt"`
}
