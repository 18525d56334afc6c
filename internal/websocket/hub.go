package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/rbac"
	"saasbackend/internal/token"
	"saasbackend/pkg/response"
)

// EventMatrixUpdated is sent after an access matrix entry was written.
const EventMatrixUpdated = "access_matrix.updated"

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer; browsers do not preflight upgrades.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON payload pushed to subscribers.
type Event struct {
	Type     string     `json:"type"`
	TenantID *uuid.UUID `json:"tenant_id"`
	Role     string     `json:"role"`
}

// Identifier turns a raw access token into a resolved principal.
type Identifier interface {
	Identify(ctx context.Context, raw string) (rbac.Principal, error)
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	principal rbac.Principal
}

// receives reports whether an event of tenantID is visible to the client.
func (c *Client) receives(tenantID *uuid.UUID) bool {
	if c.principal.PlatformWide() {
		return true
	}
	return tenantID != nil && c.principal.TenantID != nil && *tenantID == *c.principal.TenantID
}

// Hub keeps the connected clients and fans matrix events out to those whose
// scope matches.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        logrus.FieldLogger
}

// NewHub initializes a new WS Hub instance
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run dispatches hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.WithField("subject", client.principal.SubjectID).Debug("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.WithField("subject", client.principal.SubjectID).Debug("websocket client disconnected")
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).Error("failed to encode websocket event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.receives(event.TenantID) {
					continue
				}
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// MatrixChanged queues an update event. It never blocks the caller; events
// are dropped when the queue is full.
func (h *Hub) MatrixChanged(tenantID *uuid.UUID, role string) {
	select {
	case h.broadcast <- Event{Type: EventMatrixUpdated, TenantID: tenantID, Role: role}:
	default:
		h.log.WithField("role", role).Warn("websocket event queue full, dropping event")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("websocket read failed")
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades tenant owners
// and platform admins to a matrix event stream.
func ServeWs(hub *Hub, identifier Identifier, c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.Abort(c, http.StatusUnauthorized, "Authorization token is missing")
		return
	}

	principal, err := identifier.Identify(c.Request.Context(), raw)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrTokenExpired), errors.Is(err, token.ErrTokenMalformed):
		hub.log.WithError(err).Debug("websocket connection rejected")
		response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	case errors.Is(err, rbac.ErrRoleUnresolvable):
		hub.log.WithError(err).Info("websocket role unresolvable")
		response.Abort(c, http.StatusForbidden, "Unable to determine user role")
		return
	default:
		hub.log.WithError(err).Error("websocket role resolution failed")
		response.Abort(c, http.StatusInternalServerError, "Failed to resolve user role")
		return
	}
	if !principal.PlatformWide() && principal.Role != rbac.RoleTenantAdmin {
		response.Abort(c, http.StatusForbidden, "Unauthorized access")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), principal: principal}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
