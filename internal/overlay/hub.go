package overlay

import (
	"log"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Message is one overlay event on the wire.
type Message struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

// Hub broadcasts overlay events to WebSocket subscribers, so an OBS browser
// source or a second monitor can render the same state as the app window.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

// client buffers outbound messages so one stalled subscriber cannot block
// the broadcaster.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Overlay sources load from file:// or OBS, not from our origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades incoming connections and registers them as subscribers.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[Overlay] upgrade failed: %v", err)
			return
		}

		c := &client{conn: conn, send: make(chan []byte, 32)}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		go h.writePump(c)
		go h.readPump(c)
	})
}

// Broadcast sends one event to every subscriber. Subscribers whose buffer
// is full are dropped rather than waited on.
func (h *Hub) Broadcast(topic string, data interface{}) {
	payload, err := json.Marshal(Message{Topic: topic, Data: data})
	if err != nil {
		log.Printf("[Overlay] marshal %s: %v", topic, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Clients reports the current subscriber count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
}

// readPump drains the connection so pings and close frames are processed,
// and unregisters the client when it goes away.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
