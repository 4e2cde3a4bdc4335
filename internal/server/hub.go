package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stylecanvas/internal/service"
)

// ─────────────────────────────────────────────────────────────
// WebSocket hub — fans coordinator messages out to observers
// ─────────────────────────────────────────────────────────────

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Local design tooling: the canvas UI and editors connect from
	// file:// or localhost origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MessageHandler processes one inbound observer message and returns the
// direct reply, if any. The sync coordinator satisfies this.
type MessageHandler interface {
	HandleMessage(msg service.Message) *service.Message
}

// Hub tracks connected observers and broadcasts coordinator messages to all
// of them. Broadcast never blocks: a full outbound queue means the hub
// disconnects that observer rather than stalling everyone else.
type Hub struct {
	handler MessageHandler

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates a hub that routes inbound messages to handler.
func NewHub(handler MessageHandler) *Hub {
	return &Hub{
		handler: handler,
		clients: map[*client]bool{},
	}
}

// Broadcast implements service.Broadcaster.
func (h *Hub) Broadcast(msg service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("server: encode broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Observer can't keep up. Drop it; it can reconnect and
			// request fresh design data.
			log.Printf("server: dropping slow observer %s", c.conn.RemoteAddr())
			delete(h.clients, c)
			c.close()
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket observer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	log.Printf("server: observer connected from %s", conn.RemoteAddr())

	go c.writePump()
	go c.readPump()
}

// Shutdown closes all observer connections.
func (h *Hub) Shutdown(ctx context.Context) {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			deadline)
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// client is one connected observer.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// close releases the connection and signals both pumps. The send channel is
// never closed: reply and Broadcast can race a disconnect, and a send on a
// closed channel would take the whole coordinator down.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump decodes inbound envelopes and routes them to the handler. A
// malformed frame or unknown type gets an ERROR reply, not a disconnect.
func (c *client) readPump() {
	defer c.hub.remove(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: observer read error: %v", err)
			}
			return
		}

		var msg service.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(&service.Message{Type: service.MsgError, Payload: map[string]any{
				"error": "malformed message envelope: " + err.Error(),
			}})
			continue
		}
		if reply := c.hub.handler.HandleMessage(msg); reply != nil {
			c.reply(reply)
		}
	}
}

func (c *client) reply(msg *service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("server: encode reply: %v", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("server: reply dropped, observer queue full")
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
