package telemetry

import (
	"math"
	"testing"

	"fleet-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestEvaluate_SpeedingThreshold(t *testing.T) {
	th := DefaultThresholds()

	t.Run("JustOverLimit", func(t *testing.T) {
		sample := &models.TelemetrySample{DeviceID: "D1", Speed: f(100.01)}
		assert.True(t, Evaluate(sample, th).IsSpeeding)
	})

	t.Run("ExactlyAtLimit", func(t *testing.T) {
		sample := &models.TelemetrySample{DeviceID: "D1", Speed: f(100)}
		assert.False(t, Evaluate(sample, th).IsSpeeding, "limit is strict greater-than")
	})

	t.Run("UnderLimit", func(t *testing.T) {
		sample := &models.TelemetrySample{DeviceID: "D1", Speed: f(99.99)}
		assert.False(t, Evaluate(sample, th).IsSpeeding)
	})

	t.Run("SpeedAbsent", func(t *testing.T) {
		sample := &models.TelemetrySample{DeviceID: "D1"}
		assert.False(t, Evaluate(sample, th).IsSpeeding)
	})
}

func TestEvaluate_UnusualMovement(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name   string
		sample *models.TelemetrySample
		want   bool
	}{
		{"AllFieldsAbsent", &models.TelemetrySample{DeviceID: "D1"}, false},
		{"LateralX", &models.TelemetrySample{DeviceID: "D1", AccelX: f(25)}, true},
		{"LateralXNegative", &models.TelemetrySample{DeviceID: "D1", AccelX: f(-25)}, true},
		{"LateralY", &models.TelemetrySample{DeviceID: "D1", AccelY: f(20.5)}, true},
		{"LateralYAtLimit", &models.TelemetrySample{DeviceID: "D1", AccelY: f(20)}, false},
		{"VerticalZ", &models.TelemetrySample{DeviceID: "D1", AccelZ: f(35)}, true},
		{"VerticalZUnderLimit", &models.TelemetrySample{DeviceID: "D1", AccelZ: f(25)}, false},
		{"Pitch", &models.TelemetrySample{DeviceID: "D1", Pitch: f(-50)}, true},
		{"Roll", &models.TelemetrySample{DeviceID: "D1", Roll: f(46)}, true},
		{"TiltAtLimit", &models.TelemetrySample{DeviceID: "D1", Pitch: f(45), Roll: f(-45)}, false},
		{"OnlyOneFieldNeedsToFire", &models.TelemetrySample{DeviceID: "D1", AccelX: f(1), Roll: f(90)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.sample, th).HasUnusualMovement)
		})
	}
}

func TestEvaluate_NonFiniteInputs(t *testing.T) {
	th := DefaultThresholds()

	t.Run("NaNTreatedAsAbsent", func(t *testing.T) {
		sample := &models.TelemetrySample{
			DeviceID: "D1",
			Speed:    f(math.NaN()),
			AccelX:   f(math.NaN()),
			Pitch:    f(math.NaN()),
		}
		got := Evaluate(sample, th)
		assert.False(t, got.IsSpeeding)
		assert.False(t, got.HasUnusualMovement)
	})

	t.Run("InfinityTriggers", func(t *testing.T) {
		sample := &models.TelemetrySample{
			DeviceID: "D1",
			Speed:    f(math.Inf(1)),
			AccelZ:   f(math.Inf(-1)),
		}
		got := Evaluate(sample, th)
		assert.True(t, got.IsSpeeding)
		assert.True(t, got.HasUnusualMovement)
	})
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	th := Thresholds{SpeedLimitKmh: 50, MaxLateralAccel: 5, MaxVerticalAccel: 10, MaxTiltDegrees: 15}

	sample := &models.TelemetrySample{DeviceID: "D1", Speed: f(51), AccelY: f(6), Roll: f(16)}
	got := Evaluate(sample, th)
	assert.True(t, got.IsSpeeding)
	assert.True(t, got.HasUnusualMovement)
}
