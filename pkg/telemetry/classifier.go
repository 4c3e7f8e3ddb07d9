package telemetry

import (
	"fmt"

	"fleet-dashboard/internal/models"
)

// Candidate is a proposed alert for a sample. It carries no vehicle or
// timestamp yet; those are attached by the gate when the alert is accepted.
type Candidate struct {
	Type        string
	Severity    string
	Description string
}

// Classify maps an evaluation to at most one alert candidate. Speeding
// takes priority over unusual movement: when both conditions fire for the
// same sample only the speeding alert is emitted, so a single extreme
// event cannot flood the alerts table. Returns nil when nothing fired.
func Classify(eval Evaluation, sample *models.TelemetrySample) *Candidate {
	switch {
	case eval.IsSpeeding:
		speed := 0.0
		if sample.Speed != nil {
			speed = *sample.Speed
		}
		return &Candidate{
			Type:        models.AlertTypeSpeeding,
			Severity:    models.SeverityCritical,
			Description: fmt.Sprintf("Vehicle is speeding at %g km/h", speed),
		}
	case eval.HasUnusualMovement:
		return &Candidate{
			Type:        models.AlertTypeUnusualMovement,
			Severity:    models.SeverityWarning,
			Description: "Vehicle has unusual movement pattern - possible accident or rough driving",
		}
	default:
		return nil
	}
}
