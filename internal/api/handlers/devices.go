package handlers

import (
	"errors"
	"net/http"

	"fleet-dashboard/internal/repository"
	"fleet-dashboard/internal/services"
	"fleet-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
	validator     *validator.Validate
}

func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		validator:     validator.New(),
	}
}

// CreateDevice registers a new telemetry device, optionally bound to a vehicle
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req services.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	device, err := h.deviceService.CreateDevice(&req)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Vehicle not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to create device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device created successfully", device)
}

// GetDevice retrieves a specific device by ID
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Device ID is required", nil)
		return
	}

	device, err := h.deviceService.GetDevice(deviceID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", device)
}

type bindDeviceRequest struct {
	VehicleID string `json:"vehicleId" validate:"required"`
}

// BindDevice binds a device to a vehicle
func (h *DeviceHandler) BindDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Device ID is required", nil)
		return
	}

	var req bindDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	if err := h.deviceService.BindDevice(deviceID, req.VehicleID); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) || errors.Is(err, repository.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device or vehicle not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to bind device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device bound successfully", nil)
}

// UnbindDevice removes a device's vehicle binding
func (h *DeviceHandler) UnbindDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Device ID is required", nil)
		return
	}

	if err := h.deviceService.UnbindDevice(deviceID); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to unbind device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unbound successfully", nil)
}

// DeleteDevice removes a device
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Device ID is required", nil)
		return
	}

	if err := h.deviceService.DeleteDevice(deviceID); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device deleted successfully", nil)
}
