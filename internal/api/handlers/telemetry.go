package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"fleet-dashboard/internal/models"
	"fleet-dashboard/internal/repository"
	"fleet-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SampleProcessor runs the detection pipeline for a single sample.
type SampleProcessor interface {
	ProcessTelemetryEvent(ctx context.Context, sample *models.TelemetrySample) (*models.Alert, error)
}

// TelemetryHandler accepts device readings. Samples are persisted and
// picked up by the change stream feed; when the feed is unavailable the
// handler runs detection inline via the configured processor.
type TelemetryHandler struct {
	telemetryRepo *repository.TelemetryRepository
	processor     SampleProcessor
	validator     *validator.Validate
}

func NewTelemetryHandler(telemetryRepo *repository.TelemetryRepository, processor SampleProcessor) *TelemetryHandler {
	return &TelemetryHandler{
		telemetryRepo: telemetryRepo,
		processor:     processor,
		validator:     validator.New(),
	}
}

// IngestTelemetry accepts a telemetry sample from a device
func (h *TelemetryHandler) IngestTelemetry(c *gin.Context) {
	var sample models.TelemetrySample
	if err := c.ShouldBindJSON(&sample); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&sample); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	stored, err := h.telemetryRepo.Insert(c.Request.Context(), &sample)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to store telemetry", err)
		return
	}

	if h.processor != nil {
		alert, err := h.processor.ProcessTelemetryEvent(c.Request.Context(), stored)
		if err != nil {
			// The sample is stored; the batch sweep re-evaluates it later.
			log.Printf("TelemetryHandler: inline detection failed for sample %s: %v", stored.SampleID(), err)
		} else if alert != nil {
			utils.SuccessResponse(c, http.StatusAccepted, "Telemetry accepted", gin.H{
				"sample": stored,
				"alert":  alert,
			})
			return
		}
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Telemetry accepted", gin.H{"sample": stored})
}

// GetRecentTelemetry returns the most recent samples for dashboard views
func (h *TelemetryHandler) GetRecentTelemetry(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = parsed
	}

	samples, err := h.telemetryRepo.FindRecent(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve telemetry", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Telemetry retrieved successfully", samples)
}
