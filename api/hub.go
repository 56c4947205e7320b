package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"weatherbet/events"
)

const writeTimeout = 5 * time.Second

// Message is pushed to websocket clients for every bet event
type Message struct {
	Type events.EventType `json:"type"`
	Data events.Event     `json:"data"`
}

type client struct {
	owner string
	conn  *websocket.Conn
	mu    sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub pushes bet events to connected clients. A client only receives events
// for the owner it connected as.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach broadcasts every bus event through the hub
func (h *Hub) Attach(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		h.Broadcast(event)
	})
}

// HandleWebSocket upgrades the request and keeps the connection until it closes
func (h *Hub) HandleWebSocket(c *gin.Context) {
	owner := c.GetHeader(OwnerHeader)
	if owner == "" {
		owner = c.Query("owner")
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	cl := &client{owner: owner, conn: conn}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	log.WithField("owner", owner).Debug("WebSocket client connected")

	defer func() {
		h.remove(cl)
		conn.Close()
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket read failed")
			}
			return
		}
		if msg.Type == "ping" {
			_ = cl.write([]byte(`{"type":"pong"}`))
		}
	}
}

// Broadcast sends the event to every client of its owner. Clients connected
// without an owner receive everything.
func (h *Hub) Broadcast(event events.Event) {
	payload, err := json.Marshal(Message{Type: event.Type(), Data: event})
	if err != nil {
		log.WithError(err).Error("Failed to encode websocket message")
		return
	}

	owner := eventOwner(event)
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		if cl.owner == "" || cl.owner == owner {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.write(payload); err != nil {
			log.WithError(err).Debug("Dropping websocket client")
			h.remove(cl)
			cl.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for cl := range clients {
		cl.conn.Close()
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
}

func eventOwner(event events.Event) string {
	switch e := event.(type) {
	case events.BetPlacedEvent:
		return e.Owner
	case events.BetSettledEvent:
		return e.Owner
	case events.BetRetryScheduledEvent:
		return e.Owner
	}
	return ""
}
