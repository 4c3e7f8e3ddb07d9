package routes

import (
	"fleet-dashboard/internal/api/handlers"
	"fleet-dashboard/internal/api/middleware"
	"fleet-dashboard/internal/repository"
	"fleet-dashboard/internal/services"
	"fleet-dashboard/internal/websocket"
	"fleet-dashboard/pkg/ratelimit"
	"fleet-dashboard/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies carries the shared components the route handlers need.
// Services are constructed once in main so the telemetry feed and the
// sweeper operate on the same instances as the API.
type Dependencies struct {
	DB             *mongo.Database
	RedisClient    *redis.Client
	VehicleService *services.VehicleService
	DeviceService  *services.DeviceService
	AlertService   *services.AlertService
	TelemetryRepo  *repository.TelemetryRepository
	Processor      handlers.SampleProcessor
	WSManager      *websocket.Manager
	RateLimiter    ratelimit.RateLimiter
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	vehicleHandler := handlers.NewVehicleHandler(deps.VehicleService)
	deviceHandler := handlers.NewDeviceHandler(deps.DeviceService)
	alertHandler := handlers.NewAlertHandler(deps.AlertService)
	telemetryHandler := handlers.NewTelemetryHandler(deps.TelemetryRepo, deps.Processor)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.RedisClient)
	wsHandler := handlers.NewWebSocketHandler(deps.WSManager)

	api := router.Group("/api/v1")

	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.RateLimiter))
	}

	// Public routes
	api.GET("/health", healthHandler.HealthCheck)

	// Device ingest is public; devices authenticate with API keys at the
	// gateway and are rate limited per key here.
	api.POST("/telemetry", telemetryHandler.IngestTelemetry)

	// WebSocket endpoint validates its own token (query param or header)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		// Vehicles
		vehicles := protected.Group("/vehicles")
		{
			vehicles.GET("", vehicleHandler.GetVehicles)
			vehicles.POST("", vehicleHandler.CreateVehicle)
			vehicles.GET("/:id", vehicleHandler.GetVehicle)
			vehicles.PATCH("/:id/status", vehicleHandler.UpdateVehicleStatus)
			vehicles.DELETE("/:id", vehicleHandler.DeleteVehicle)
		}

		// Devices
		devices := protected.Group("/devices")
		{
			devices.POST("", deviceHandler.CreateDevice)
			devices.GET("/:id", deviceHandler.GetDevice)
			devices.PATCH("/:id/bind", deviceHandler.BindDevice)
			devices.PATCH("/:id/unbind", deviceHandler.UnbindDevice)
			devices.DELETE("/:id", deviceHandler.DeleteDevice)
		}

		// Alerts (read-only; created by the detection pipeline)
		alerts := protected.Group("/alerts")
		{
			alerts.GET("", alertHandler.GetAlerts)
			alerts.GET("/statistics", alertHandler.GetAlertStatistics)
			alerts.GET("/:id", alertHandler.GetAlert)
			alerts.GET("/vehicle/:vehicleId", alertHandler.GetAlertsByVehicle)
		}

		// Telemetry reads
		protected.GET("/telemetry", telemetryHandler.GetRecentTelemetry)

		// WebSocket stats
		protected.GET("/ws/clients", wsHandler.GetConnectedClients)
	}
}
