package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical alert types. Presentation layers map these into their own
// display vocabularies, never the reverse.
const (
	AlertTypeSpeeding        = "speeding"
	AlertTypeUnusualMovement = "unusual_movement"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Alert is immutable once created. Rows are inserted only by the alert
// gate and removed only when the owning vehicle is deleted.
type Alert struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID   string             `bson:"vehicle_id" json:"vehicleId" validate:"required"`
	Type        string             `bson:"type" json:"type" validate:"required,oneof=speeding unusual_movement"`
	Severity    string             `bson:"severity" json:"severity" validate:"required,oneof=critical warning"`
	Description string             `bson:"description" json:"description" validate:"required"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}
