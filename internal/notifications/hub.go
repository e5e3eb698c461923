// Package notifications fans application events out to connected websocket
// clients so open browser tabs can refresh their lists.
package notifications

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Event names published by the handlers.
const (
	EventBlogCreated    = "blog.created"
	EventBlogUpdated    = "blog.updated"
	EventBlogDeleted    = "blog.deleted"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
)

// Hub is a minimal broadcast hub over the connected websocket clients.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish sends an event envelope to every connected client. Write failures
// are logged and the connection is left for its reader loop to reap.
func (h *Hub) Publish(event string, payload any) {
	envelope, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
		"at":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("notification marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, envelope); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}
}
