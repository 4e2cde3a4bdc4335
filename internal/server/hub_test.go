package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stylecanvas/internal/service"
)

// ─────────────────────────────────────────────────────────────
// WebSocket hub tests
// ─────────────────────────────────────────────────────────────

type nopHandler struct{}

func (nopHandler) HandleMessage(service.Message) *service.Message { return nil }

// dialTestConn returns the server side of a real websocket connection.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		upgraded <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { clientSide.Close() })

	select {
	case conn := <-upgraded:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("server side never upgraded")
		return nil
	}
}

// Dropping a slow observer must not crash a reply racing in from its still
// running read pump: the send channel stays open, only the connection closes.
func TestHub_DroppedSlowObserverSurvivesReply(t *testing.T) {
	h := NewHub(nopHandler{})
	c := &client{
		hub:  h,
		conn: dialTestConn(t),
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	// Nothing drains the queue, so the second broadcast finds it full and
	// drops the observer.
	h.Broadcast(service.Message{Type: service.MsgError})
	h.Broadcast(service.Message{Type: service.MsgError})

	h.mu.Lock()
	registered := h.clients[c]
	h.mu.Unlock()
	if registered {
		t.Fatal("slow observer still registered after full queue")
	}
	select {
	case <-c.done:
	default:
		t.Error("dropped observer was not signalled closed")
	}

	c.reply(&service.Message{Type: service.MsgError})

	// Broadcasting again with the dead client gone must also be safe.
	h.Broadcast(service.Message{Type: service.MsgError})
}

func TestHub_RemoveIsIdempotent(t *testing.T) {
	h := NewHub(nopHandler{})
	c := &client{
		hub:  h,
		conn: dialTestConn(t),
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.remove(c)
	h.remove(c)
}
