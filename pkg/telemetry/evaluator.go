package telemetry

import (
	"math"

	"fleet-dashboard/internal/models"
)

// Thresholds holds the numeric limits a telemetry sample is evaluated
// against. Zero-value fields are not meaningful; use DefaultThresholds or
// FromConfig-style construction in the caller.
type Thresholds struct {
	SpeedLimitKmh    float64
	MaxLateralAccel  float64
	MaxVerticalAccel float64
	MaxTiltDegrees   float64
}

// DefaultThresholds returns the stock safety limits: 100 km/h speed limit,
// 20 m/s² lateral, 30 m/s² vertical, 45° tilt.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpeedLimitKmh:    100,
		MaxLateralAccel:  20,
		MaxVerticalAccel: 30,
		MaxTiltDegrees:   45,
	}
}

// Evaluation is the verdict of the threshold evaluator for one sample.
type Evaluation struct {
	IsSpeeding         bool
	HasUnusualMovement bool
}

// Evaluate classifies a single sample against the thresholds. It is pure
// and total: absent fields and NaN readings never trigger, and no input
// panics. Speeding requires strictly greater than the limit.
func Evaluate(sample *models.TelemetrySample, t Thresholds) Evaluation {
	return Evaluation{
		IsSpeeding:         exceeds(sample.Speed, t.SpeedLimitKmh),
		HasUnusualMovement: hasUnusualMovement(sample, t),
	}
}

func hasUnusualMovement(sample *models.TelemetrySample, t Thresholds) bool {
	return exceedsAbs(sample.AccelX, t.MaxLateralAccel) ||
		exceedsAbs(sample.AccelY, t.MaxLateralAccel) ||
		exceedsAbs(sample.AccelZ, t.MaxVerticalAccel) ||
		exceedsAbs(sample.Pitch, t.MaxTiltDegrees) ||
		exceedsAbs(sample.Roll, t.MaxTiltDegrees)
}

func exceeds(v *float64, limit float64) bool {
	if v == nil || math.IsNaN(*v) {
		return false
	}
	return *v > limit
}

func exceedsAbs(v *float64, limit float64) bool {
	if v == nil || math.IsNaN(*v) {
		return false
	}
	return math.Abs(*v) > limit
}
