package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TelemetrySample is one positional/motion reading from a device. All
// motion fields are independently optional: a nil pointer means the device
// did not report that measurement, which is not the same as zero.
type TelemetrySample struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DeviceID  string             `bson:"device_id" json:"deviceId" validate:"required"`
	Latitude  float64            `bson:"latitude" json:"latitude"`
	Longitude float64            `bson:"longitude" json:"longitude"`
	Speed     *float64           `bson:"speed,omitempty" json:"speed,omitempty"`
	AccelX    *float64           `bson:"accel_x,omitempty" json:"accelX,omitempty"`
	AccelY    *float64           `bson:"accel_y,omitempty" json:"accelY,omitempty"`
	AccelZ    *float64           `bson:"accel_z,omitempty" json:"accelZ,omitempty"`
	Pitch     *float64           `bson:"pitch,omitempty" json:"pitch,omitempty"`
	Roll      *float64           `bson:"roll,omitempty" json:"roll,omitempty"`
	RecordedAt time.Time         `bson:"recorded_at" json:"recordedAt"`
}

// SampleID returns a stable identifier for failure reporting. Samples that
// never hit the store have no ObjectID, so fall back to device + time.
func (s *TelemetrySample) SampleID() string {
	if !s.ID.IsZero() {
		return s.ID.Hex()
	}
	return s.DeviceID + "@" + s.RecordedAt.UTC().Format(time.RFC3339Nano)
}
