package handlers

import (
	"net/http"

	"fleet-dashboard/internal/services"
	"fleet-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AlertHandler exposes read-only access to detected alerts. Alerts are
// created by the detection pipeline, never through the API.
type AlertHandler struct {
	alertService *services.AlertService
}

func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// GetAlerts retrieves all alerts, optionally filtered by type or severity
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	if alertType := c.Query("type"); alertType != "" {
		alerts, err := h.alertService.GetAlertsByType(alertType)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve alerts", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
		return
	}

	if severity := c.Query("severity"); severity != "" {
		alerts, err := h.alertService.GetAlertsBySeverity(severity)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve alerts", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
		return
	}

	alerts, err := h.alertService.GetAllAlerts()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve alerts", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

// GetAlert retrieves a specific alert by ID
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alertID := c.Param("id")
	if alertID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Alert ID is required", nil)
		return
	}

	alert, err := h.alertService.GetAlertByID(alertID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Alert not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert retrieved successfully", alert)
}

// GetAlertsByVehicle retrieves alerts for a specific vehicle
func (h *AlertHandler) GetAlertsByVehicle(c *gin.Context) {
	vehicleID := c.Param("vehicleId")
	if vehicleID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Vehicle ID is required", nil)
		return
	}

	alerts, err := h.alertService.GetAlertsByVehicle(vehicleID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve alerts", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

// GetAlertStatistics retrieves alert counts by type
func (h *AlertHandler) GetAlertStatistics(c *gin.Context) {
	stats, err := h.alertService.GetAlertStatistics()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve alert statistics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert statistics retrieved successfully", stats)
}
