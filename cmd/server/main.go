package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-dashboard/internal/api/routes"
	"fleet-dashboard/internal/config"
	"fleet-dashboard/internal/feed"
	"fleet-dashboard/internal/models"
	"fleet-dashboard/internal/repository"
	"fleet-dashboard/internal/services"
	"fleet-dashboard/internal/websocket"
	"fleet-dashboard/pkg/batch"
	"fleet-dashboard/pkg/cache"
	"fleet-dashboard/pkg/cleanup"
	"fleet-dashboard/pkg/database"
	"fleet-dashboard/pkg/ratelimit"
	"fleet-dashboard/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to MongoDB
	db, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect(db.Client())

	// Initialize Redis client
	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()

	healthStatus := redisClient.HealthCheck()
	if healthStatus.IsConnected {
		log.Printf("Redis connected successfully at %s", healthStatus.Addr)
	} else {
		log.Printf("Redis connection failed: %s (will retry automatically)", healthStatus.Error)
	}

	// Cache layer degrades to a noop manager when Redis is down; the
	// alert gate then relies on database checks alone.
	cacheConfig := cache.DefaultCacheConfig()
	var cacheManager cache.CacheManager
	if healthStatus.IsConnected {
		cacheManager = cache.NewCacheManager(redisClient.GetClient(), cacheConfig)
	} else {
		cacheManager = cache.NewNoopCacheManager()
	}
	defer cacheManager.Close()

	// Repositories
	vehicleRepo := repository.NewVehicleRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)

	// Services
	vehicleService := services.NewVehicleService(vehicleRepo, deviceRepo, alertRepo, cacheManager)
	deviceService := services.NewDeviceService(deviceRepo, vehicleRepo, cacheManager, cacheConfig)
	alertService := services.NewAlertService(alertRepo)

	// Detection pipeline
	alertGate := services.NewAlertGate(alertRepo, cacheManager, cfg.Alerting.Cooldown)
	ingestionService := services.NewIngestionService(deviceService, alertGate, telemetryRepo, cfg.Alerting)

	// WebSocket fan-out
	wsManager := websocket.NewManager()
	if err := wsManager.Start(); err != nil {
		log.Fatal("Failed to start WebSocket manager:", err)
	}
	defer wsManager.Stop()
	ingestionService.SetNotifier(wsManager)

	// Location batch writer
	locationWriter := batch.NewLocationWriter(batch.LoadConfigFromEnv(), vehicleRepo)
	locationWriter.SetBroadcaster(wsManager)
	if err := locationWriter.Start(); err != nil {
		log.Fatal("Failed to start location writer:", err)
	}
	defer locationWriter.Stop()
	ingestionService.SetLocationRecorder(locationWriter)

	// Live feed: consume telemetry inserts through a change stream.
	// Falls back to inline detection in the ingest handler when change
	// streams are unavailable (standalone MongoDB).
	var inlineProcessor *services.IngestionService
	watcher := feed.NewWatcher(db, func(ctx context.Context, sample *models.TelemetrySample) {
		alert, err := ingestionService.ProcessTelemetryEvent(ctx, sample)
		if err != nil {
			log.Printf("Live detection failed for sample %s: %v", sample.SampleID(), err)
			return
		}
		if alert != nil {
			log.Printf("Alert %s raised for vehicle %s", alert.Type, alert.VehicleID)
		}
	})
	if err := watcher.Start(); err != nil {
		log.Printf("Telemetry change stream unavailable, using inline detection: %v", err)
		inlineProcessor = ingestionService
	} else {
		defer watcher.Stop()
	}

	// Batch sweep safety net
	sweeper := services.NewSweeper(ingestionService, cfg.Alerting.SweepInterval, cfg.Alerting.SweepLimit)
	sweeper.Start()
	defer sweeper.Stop()

	// Telemetry retention
	cleanupService := cleanup.NewCleanupService(telemetryRepo, cfg.Alerting.TelemetryRetention, time.Hour)
	go cleanupService.Start()
	defer cleanupService.Stop()

	// Rate limiter: Redis-backed when available, in-memory otherwise
	var limiter ratelimit.RateLimiter
	if healthStatus.IsConnected {
		redisLimiter := ratelimit.NewRedisRateLimiter(redisClient.GetClient(), ratelimit.DefaultConfig())
		if err := redisLimiter.LoadCustomLimits(); err != nil {
			log.Printf("Failed to load custom rate limits: %v", err)
		}
		limiter = redisLimiter
	} else {
		limiter = ratelimit.NewMemoryRateLimiter(ratelimit.DefaultConfig())
	}

	// Setup Gin router
	router := gin.Default()

	// CORS middleware
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		ExposeHeaders: []string{"Content-Length"},
	}

	// Handle wildcard origin for development
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	router.Use(cors.New(corsConfig))

	deps := routes.Dependencies{
		DB:             db,
		RedisClient:    redisClient,
		VehicleService: vehicleService,
		DeviceService:  deviceService,
		AlertService:   alertService,
		TelemetryRepo:  telemetryRepo,
		WSManager:      wsManager,
		RateLimiter:    limiter,
	}
	if inlineProcessor != nil {
		deps.Processor = inlineProcessor
	}
	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, then let the deferred
	// stops drain the pipeline in reverse start order.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
