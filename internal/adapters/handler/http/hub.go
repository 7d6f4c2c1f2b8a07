package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
)

// Message represents a message to be sent to connected clients
type Message struct {
	Type    string        `json:"type"` // "upsert" or "evict"
	Payload domain.Change `json:"payload"`
}

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages from the system to be broadcasted to clients.
	broadcast chan Message

	register   chan *Client
	unregister chan *Client

	// done is closed once Run returns.
	done chan struct{}

	// Lock for client map safety
	mu sync.Mutex

	pubsub ports.ChangePubSub
}

func NewHub(pubsub ports.ChangePubSub) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		pubsub:     pubsub,
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			SetWSClients(len(h.clients))
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			SetWSClients(len(h.clients))
			h.mu.Unlock()
		case message := <-h.broadcast:
			RecordChangeBroadcast(message.Type, string(message.Payload.Type))
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(message.Payload.Type) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every interested client. It reports false when
// ctx ends or the hub stops first.
func (h *Hub) Broadcast(ctx context.Context, msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ChangeConsumer forwards store changes from the pub/sub port to clients.
func (h *Hub) ChangeConsumer(ctx context.Context) {
	ch, err := h.pubsub.SubscribeChanges(ctx)
	if err != nil {
		logger.Error("Failed to subscribe to changes", "error", err)
		return
	}

	logger.Info("Change consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Change consumer shutting down")
			return
		case c, ok := <-ch:
			if !ok {
				logger.Warn("Change channel closed, consumer exiting")
				return
			}
			if !h.Broadcast(ctx, Message{Type: string(c.Op), Payload: c}) {
				return
			}
		}
	}
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message

	// types limits the entity types sent to this client. Empty means all.
	types map[domain.EntityType]bool
}

func (c *Client) wants(t domain.EntityType) bool {
	return len(c.types) == 0 || c.types[t]
}

// readPump discards client messages and unregisters the client once the
// connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			enc := json.NewEncoder(w)
			enc.Encode(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				enc.Encode(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from the peer. Repeated "type" query
// parameters restrict the entity types the client receives.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	types := make(map[domain.EntityType]bool)
	for _, t := range r.URL.Query()["type"] {
		if et := domain.EntityType(t); et.Valid() {
			types[et] = true
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan Message, 256), types: types}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}
	logger.DebugContext(r.Context(), "Websocket client connected", "types", len(types))

	go client.writePump()
	go client.readPump()
}
