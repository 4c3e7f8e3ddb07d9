package models

import "time"

// Device binds a physical tracking unit to a vehicle. The device serial is
// the document id; a device maps to at most one vehicle at a time.
type Device struct {
	ID        string    `bson:"_id" json:"id" validate:"required"`
	VehicleID string    `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
