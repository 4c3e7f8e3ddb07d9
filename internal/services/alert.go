package services

import (
	"fleet-dashboard/internal/models"
	"fleet-dashboard/internal/repository"
)

// AlertService is the read-only surface over persisted alerts. Alerts are
// created only by the gate and deleted only by the vehicle cascade, so
// there are no update or dismiss paths here.
type AlertService struct {
	alertRepo *repository.AlertRepository
}

func NewAlertService(alertRepo *repository.AlertRepository) *AlertService {
	return &AlertService{alertRepo: alertRepo}
}

func (s *AlertService) GetAllAlerts() ([]*models.Alert, error) {
	return s.alertRepo.FindAll()
}

func (s *AlertService) GetAlertByID(id string) (*models.Alert, error) {
	return s.alertRepo.FindByID(id)
}

func (s *AlertService) GetAlertsByVehicle(vehicleID string) ([]*models.Alert, error) {
	return s.alertRepo.FindByVehicleID(vehicleID)
}

func (s *AlertService) GetAlertsByType(alertType string) ([]*models.Alert, error) {
	return s.alertRepo.FindByType(alertType)
}

func (s *AlertService) GetAlertsBySeverity(severity string) ([]*models.Alert, error) {
	return s.alertRepo.FindBySeverity(severity)
}

func (s *AlertService) GetAlertStatistics() (map[string]interface{}, error) {
	total, err := s.alertRepo.Count()
	if err != nil {
		return nil, err
	}

	speeding, err := s.alertRepo.CountByType(models.AlertTypeSpeeding)
	if err != nil {
		return nil, err
	}

	movement, err := s.alertRepo.CountByType(models.AlertTypeUnusualMovement)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total":            total,
		"speeding":         speeding,
		"unusual_movement": movement,
	}, nil
}
