package services

import (
	"log"

	"fleet-dashboard/internal/models"
	"fleet-dashboard/internal/repository"
	"fleet-dashboard/pkg/cache"
)

type VehicleService struct {
	vehicleRepo *repository.VehicleRepository
	deviceRepo  *repository.DeviceRepository
	alertRepo   *repository.AlertRepository
	cache       cache.CacheManager
}

func NewVehicleService(vehicleRepo *repository.VehicleRepository, deviceRepo *repository.DeviceRepository, alertRepo *repository.AlertRepository, cacheManager cache.CacheManager) *VehicleService {
	if cacheManager == nil {
		cacheManager = cache.NewNoopCacheManager()
	}
	return &VehicleService{
		vehicleRepo: vehicleRepo,
		deviceRepo:  deviceRepo,
		alertRepo:   alertRepo,
		cache:       cacheManager,
	}
}

type CreateVehicleRequest struct {
	PlateNumber string `json:"plateNumber" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=active inactive maintenance"`
	OwnerID     string `json:"ownerId"`
}

func (s *VehicleService) GetAllVehicles() ([]*models.Vehicle, error) {
	return s.vehicleRepo.FindAll()
}

func (s *VehicleService) GetVehicleByID(id string) (*models.Vehicle, error) {
	return s.vehicleRepo.FindByID(id)
}

func (s *VehicleService) CreateVehicle(req *CreateVehicleRequest) (*models.Vehicle, error) {
	return s.vehicleRepo.Create(&models.Vehicle{
		PlateNumber: req.PlateNumber,
		Status:      req.Status,
		OwnerID:     req.OwnerID,
	})
}

func (s *VehicleService) UpdateVehicleStatus(id, status string) (*models.Vehicle, error) {
	return s.vehicleRepo.UpdateStatus(id, status)
}

// DeleteVehicle removes the vehicle and cascades to its device bindings
// and alerts, then drops any cached bindings for those devices.
func (s *VehicleService) DeleteVehicle(id string) error {
	devices, err := s.deviceRepo.FindByVehicleID(id)
	if err != nil {
		return err
	}

	if err := s.vehicleRepo.Delete(id); err != nil {
		return err
	}

	if err := s.deviceRepo.DeleteByVehicleID(id); err != nil {
		log.Printf("VehicleService: failed to cascade device bindings for vehicle %s: %v", id, err)
	}
	if err := s.alertRepo.DeleteByVehicleID(id); err != nil {
		log.Printf("VehicleService: failed to cascade alerts for vehicle %s: %v", id, err)
	}

	for _, device := range devices {
		if err := s.cache.InvalidateDeviceBinding(device.ID); err != nil {
			log.Printf("VehicleService: failed to invalidate binding cache for device %s: %v", device.ID, err)
		}
	}

	return nil
}
