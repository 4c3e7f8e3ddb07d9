package handlers

import (
	"log"
	"net/http"
	"strings"

	"fleet-dashboard/internal/websocket"
	"fleet-dashboard/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebSocketHandler handles WebSocket connections for real-time updates
type WebSocketHandler struct {
	manager *websocket.Manager
	jwtUtil *jwt.JWTUtil
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(manager *websocket.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		jwtUtil: jwt.NewJWTUtil(),
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket for live alert
// and location updates
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// Browsers cannot set headers on WebSocket requests, so accept the
	// token from a query parameter as well.
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		log.Printf("WebSocket connection rejected: no token provided")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication token required"})
		return
	}

	if _, err := h.jwtUtil.ValidateToken(token); err != nil {
		log.Printf("WebSocket connection rejected: invalid token - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	clientID := uuid.New().String()

	filters := websocket.Filters{}

	if vehicleIDs := c.QueryArray("vehicleIds"); len(vehicleIDs) > 0 {
		filters.VehicleIDs = vehicleIDs
	}

	if severities := c.QueryArray("severities"); len(severities) > 0 {
		filters.Severities = severities
	}

	conn, err := h.manager.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection to WebSocket: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to upgrade to WebSocket"})
		return
	}

	if err := h.manager.RegisterClient(clientID, conn, filters); err != nil {
		log.Printf("Failed to register WebSocket client: %v", err)
		conn.Close()
		return
	}

	log.Printf("WebSocket client %s connected with filters: %+v", clientID, filters)
}

// GetConnectedClients returns the number of connected WebSocket clients
func (h *WebSocketHandler) GetConnectedClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connectedClients": h.manager.GetConnectedClients(),
	})
}
