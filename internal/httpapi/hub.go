package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// event is one message pushed to connected clients.
type event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub maintains the set of connected websocket clients and broadcasts
// service events to them. It implements service.EventEmitter, so the
// services stay ignorant of the transport.
type Hub struct {
	logger     hclog.Logger
	register   chan *client
	unregister chan *client
	broadcast  chan event
	done       chan struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub(logger hclog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan event, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. It exits when Stop is called.
func (h *Hub) Run() {
	clients := make(map[*client]struct{})
	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("hub: marshal event", "event", ev.Event, "error", err)
				continue
			}
			for c := range clients {
				select {
				case c.send <- payload:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range clients {
				close(c.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Emit broadcasts a service event to every connected client.
func (h *Hub) Emit(_ context.Context, name string, data any) {
	select {
	case h.broadcast <- event{Event: name, Data: data}:
	case <-h.done:
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("hub: upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// writePump forwards hub broadcasts to the socket.
func (c *client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// readPump drains the socket so close frames are processed; the stream is
// push-only and inbound messages are discarded.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
