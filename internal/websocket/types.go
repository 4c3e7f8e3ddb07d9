package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleet-dashboard/internal/models"
)

// Update types pushed to dashboard clients.
const (
	UpdateTypeAlert    = "alert"
	UpdateTypeLocation = "location"
)

// Update is one message pushed to dashboard clients: a newly accepted
// alert (driving toasts) or a vehicle location change (driving the map).
type Update struct {
	Type      string           `json:"type"`
	VehicleID string           `json:"vehicleId"`
	Alert     *models.Alert    `json:"alert,omitempty"`
	Location  *models.Location `json:"location,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Filters restricts which updates a client receives. Empty slices mean
// "everything".
type Filters struct {
	VehicleIDs []string `json:"vehicleIds,omitempty"`
	Severities []string `json:"severities,omitempty"`
}

// Client represents a connected dashboard session.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Filters Filters
	Send    chan Update

	pongMu   sync.Mutex
	lastPong time.Time
}

func (c *Client) markPong() {
	c.pongMu.Lock()
	c.lastPong = time.Now()
	c.pongMu.Unlock()
}

func (c *Client) sincePong(now time.Time) time.Duration {
	c.pongMu.Lock()
	defer c.pongMu.Unlock()
	return now.Sub(c.lastPong)
}

// Manager interface for the fan-out hub.
type UpdateManager interface {
	RegisterClient(clientID string, conn *websocket.Conn, filters Filters) error
	UnregisterClient(clientID string) error
	Broadcast(update Update) error
	GetConnectedClients() int
	Start() error
	Stop() error
}
