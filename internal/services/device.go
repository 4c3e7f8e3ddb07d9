package services

import (
	"context"
	"errors"

	"fleet-dashboard/internal/models"
	"fleet-dashboard/internal/repository"
	"fleet-dashboard/pkg/cache"
)

// DeviceService resolves devices to vehicles and manages bindings. The
// resolver path is read-heavy (every telemetry sample goes through it), so
// bindings are cached with a short TTL.
type DeviceService struct {
	deviceRepo  *repository.DeviceRepository
	vehicleRepo *repository.VehicleRepository
	cache       cache.CacheManager
	config      cache.CacheConfig
}

func NewDeviceService(deviceRepo *repository.DeviceRepository, vehicleRepo *repository.VehicleRepository, cacheManager cache.CacheManager, config cache.CacheConfig) *DeviceService {
	if cacheManager == nil {
		cacheManager = cache.NewNoopCacheManager()
	}
	return &DeviceService{
		deviceRepo:  deviceRepo,
		vehicleRepo: vehicleRepo,
		cache:       cacheManager,
		config:      config,
	}
}

// ResolveVehicleID implements VehicleResolver. Unknown devices and devices
// without a binding both surface as ErrVehicleNotFound.
func (s *DeviceService) ResolveVehicleID(ctx context.Context, deviceID string) (string, error) {
	if vehicleID, found, err := s.cache.GetDeviceBinding(deviceID); err == nil && found {
		return vehicleID, nil
	}

	device, err := s.deviceRepo.FindByID(deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return "", ErrVehicleNotFound
		}
		return "", err
	}
	if device.VehicleID == "" {
		return "", ErrVehicleNotFound
	}

	// Best effort; a cold cache just means another lookup next time.
	_ = s.cache.SetDeviceBinding(deviceID, device.VehicleID, s.config.BindingTTL)

	return device.VehicleID, nil
}

type CreateDeviceRequest struct {
	ID        string `json:"id" validate:"required"`
	VehicleID string `json:"vehicleId,omitempty"`
}

func (s *DeviceService) CreateDevice(req *CreateDeviceRequest) (*models.Device, error) {
	if req.VehicleID != "" {
		if _, err := s.vehicleRepo.FindByID(req.VehicleID); err != nil {
			return nil, err
		}
	}

	return s.deviceRepo.Create(&models.Device{
		ID:        req.ID,
		VehicleID: req.VehicleID,
	})
}

func (s *DeviceService) GetDevice(id string) (*models.Device, error) {
	return s.deviceRepo.FindByID(id)
}

func (s *DeviceService) BindDevice(deviceID, vehicleID string) error {
	if _, err := s.vehicleRepo.FindByID(vehicleID); err != nil {
		return err
	}
	if err := s.deviceRepo.Bind(deviceID, vehicleID); err != nil {
		return err
	}

	return s.cache.InvalidateDeviceBinding(deviceID)
}

func (s *DeviceService) UnbindDevice(deviceID string) error {
	if err := s.deviceRepo.Unbind(deviceID); err != nil {
		return err
	}

	return s.cache.InvalidateDeviceBinding(deviceID)
}

func (s *DeviceService) DeleteDevice(id string) error {
	if err := s.deviceRepo.Delete(id); err != nil {
		return err
	}

	return s.cache.InvalidateDeviceBinding(id)
}
