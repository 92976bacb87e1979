package socket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is the envelope pushed to an employee's connection.
type Event struct {
	Event   string    `json:"event"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer.
	wmu sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub keeps one websocket per employee.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Register replaces any previous connection of the employee.
func (h *Hub) Register(employeeRef string, conn *websocket.Conn) {
	h.mu.Lock()
	old, ok := h.clients[employeeRef]
	h.clients[employeeRef] = &client{conn: conn}
	h.mu.Unlock()
	if ok && old.conn != conn {
		_ = old.conn.Close()
	}
	h.log.Info("websocket client registered", "employee", employeeRef)
}

// Unregister drops conn if it is still the employee's current connection.
func (h *Hub) Unregister(employeeRef string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[employeeRef]; ok && c.conn == conn {
		delete(h.clients, employeeRef)
		h.log.Info("websocket client unregistered", "employee", employeeRef)
	}
}

func (h *Hub) Connected(employeeRef string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[employeeRef]
	return ok
}

// Send writes a raw message. An offline employee is not an error.
func (h *Hub) Send(employeeRef string, message []byte) error {
	h.mu.RLock()
	c, ok := h.clients[employeeRef]
	h.mu.RUnlock()
	if !ok {
		h.log.Debug("websocket client not connected", "employee", employeeRef)
		return nil
	}
	return c.write(message)
}

// Publish pushes event to the employee. Delivery is best effort.
func (h *Hub) Publish(employeeRef, event string, payload any) {
	msg, err := json.Marshal(Event{Event: event, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.log.Error("failed to encode websocket event", "event", event, "error", err)
		return
	}
	if err := h.Send(employeeRef, msg); err != nil {
		h.log.Warn("websocket push failed", "employee", employeeRef, "event", event, "error", err)
	}
}
