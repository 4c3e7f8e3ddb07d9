package websocket

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleet-dashboard/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // Must be shorter than pongWait
	staleAfter = 90 * time.Second
)

// Manager fans newly accepted alerts and vehicle location changes out to
// connected dashboard clients. It implements the ingestion pipeline's
// notifier: notification is fire-and-forget, and a slow or dead client
// only loses its own updates.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Update
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	done       chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Update, 1000), // Buffer for alert bursts
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Origin is enforced by the CORS layer in front
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
	}
}

// Upgrader exposes the configured upgrader to the HTTP handler.
func (m *Manager) Upgrader() *websocket.Upgrader {
	return &m.upgrader
}

// Start begins the manager's event loop.
func (m *Manager) Start() error {
	go m.run()
	log.Println("WebSocket manager started")
	return nil
}

// Stop closes all client connections and halts the event loop.
func (m *Manager) Stop() error {
	close(m.done)

	m.mutex.Lock()
	for _, client := range m.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	m.clients = make(map[string]*Client)
	m.mutex.Unlock()

	log.Println("WebSocket manager stopped")
	return nil
}

func (m *Manager) run() {
	ticker := time.NewTicker(30 * time.Second) // Health check interval
	defer ticker.Stop()

	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			m.mutex.Unlock()
			log.Printf("WebSocket client %s registered", client.ID)
			if client.Conn != nil {
				go m.writePump(client)
				go m.readPump(client)
			}

		case client := <-m.unregister:
			m.mutex.Lock()
			if _, ok := m.clients[client.ID]; ok {
				delete(m.clients, client.ID)
				close(client.Send)
				if client.Conn != nil {
					client.Conn.Close()
				}
			}
			m.mutex.Unlock()
			log.Printf("WebSocket client %s unregistered", client.ID)

		case update := <-m.broadcast:
			m.fanOut(update)

		case <-ticker.C:
			m.healthCheck()

		case <-m.done:
			return
		}
	}
}

// RegisterClient adds a new dashboard session to the fan-out set.
func (m *Manager) RegisterClient(clientID string, conn *websocket.Conn, filters Filters) error {
	client := &Client{
		ID:      clientID,
		Conn:    conn,
		Filters: filters,
		Send:    make(chan Update, 256),
	}
	client.markPong()

	select {
	case m.register <- client:
		return nil
	case <-m.done:
		return fmt.Errorf("websocket manager is stopped")
	}
}

func (m *Manager) UnregisterClient(clientID string) error {
	m.mutex.RLock()
	client, exists := m.clients[clientID]
	m.mutex.RUnlock()

	if exists {
		select {
		case m.unregister <- client:
		case <-m.done:
		}
	}
	return nil
}

// Broadcast queues an update for delivery to all matching clients.
func (m *Manager) Broadcast(update Update) error {
	select {
	case m.broadcast <- update:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, dropping %s update for vehicle %s", update.Type, update.VehicleID)
	}
}

// NotifyAlert implements the pipeline's AlertNotifier.
func (m *Manager) NotifyAlert(alert *models.Alert) {
	update := Update{
		Type:      UpdateTypeAlert,
		VehicleID: alert.VehicleID,
		Alert:     alert,
		Timestamp: time.Now(),
	}
	if err := m.Broadcast(update); err != nil {
		log.Printf("WebSocket: %v", err)
	}
}

// NotifyLocation pushes a vehicle position change to map consumers.
func (m *Manager) NotifyLocation(vehicleID string, loc models.Location) {
	update := Update{
		Type:      UpdateTypeLocation,
		VehicleID: vehicleID,
		Location:  &loc,
		Timestamp: time.Now(),
	}
	if err := m.Broadcast(update); err != nil {
		log.Printf("WebSocket: %v", err)
	}
}

func (m *Manager) GetConnectedClients() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

func (m *Manager) fanOut(update Update) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.clients {
		if !matchesFilters(update, client.Filters) {
			continue
		}
		select {
		case client.Send <- update:
		default:
			// Client is not draining its queue; drop rather than block
			log.Printf("WebSocket client %s send buffer full, dropping update", client.ID)
		}
	}
}

func matchesFilters(update Update, filters Filters) bool {
	if len(filters.VehicleIDs) > 0 && !contains(filters.VehicleIDs, update.VehicleID) {
		return false
	}
	if update.Type == UpdateTypeAlert && len(filters.Severities) > 0 {
		if update.Alert == nil || !contains(filters.Severities, update.Alert.Severity) {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// writePump is the connection's only writer: it drains the client's
// queue and sends the periodic pings itself, so no other goroutine ever
// touches the conn for writing.
func (m *Manager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		m.UnregisterClient(client.ID)
	}()

	for {
		select {
		case update, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(update); err != nil {
				log.Printf("WebSocket client %s write failed: %v", client.ID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket client %s ping failed: %v", client.ID, err)
				return
			}
		}
	}
}

// readPump consumes everything the client sends. Dashboards push no
// data upstream; the loop exists to surface close frames promptly and
// to keep pong responses flowing into the read deadline.
func (m *Manager) readPump(client *Client) {
	defer m.UnregisterClient(client.ID)

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.markPong()
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket client %s read error: %v", client.ID, err)
			}
			return
		}
	}
}

// healthCheck prunes clients whose connection stopped answering pings.
// It never writes to a conn; pinging belongs to writePump.
func (m *Manager) healthCheck() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for id, client := range m.clients {
		if client.Conn == nil {
			continue
		}
		if client.sincePong(now) > staleAfter {
			log.Printf("WebSocket client %s timed out, removing", id)
			delete(m.clients, id)
			close(client.Send)
			client.Conn.Close()
		}
	}
}
