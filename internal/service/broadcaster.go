package service

import "sync"

// ─────────────────────────────────────────────────────────────
// Observer protocol — envelope and message types
// ─────────────────────────────────────────────────────────────

// Message is the transport-agnostic observer envelope. Every message the
// coordinator emits or accepts uses this shape.
type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Message types the coordinator emits and accepts. Unknown inbound types get
// an explicit ERROR reply, never a silent drop.
const (
	MsgCanvasUpdatedFromCSS = "CANVAS_UPDATED_FROM_CSS"
	MsgCSSParseError        = "CSS_PARSE_ERROR"
	MsgCanvasShapeDrawn     = "CANVAS_SHAPE_DRAWN"
	MsgCanvasShapeUpdated   = "CANVAS_SHAPE_UPDATED"
	MsgCanvasShapeDeleted   = "CANVAS_SHAPE_DELETED"
	MsgRequestDesignData    = "REQUEST_DESIGN_DATA"
	MsgDesignDataResponse   = "DESIGN_DATA_RESPONSE"
	MsgError                = "ERROR"
)

// Broadcaster fans a message out to all connected observers. Implementations
// must never block the caller: a slow observer is the transport's problem,
// not the coordinator's. The coordinator tolerates a nil Broadcaster.
type Broadcaster interface {
	Broadcast(msg Message)
}

// MockBroadcaster is a test-friendly Broadcaster that records all messages.
type MockBroadcaster struct {
	mu       sync.Mutex
	Messages []Message
}

func (m *MockBroadcaster) Broadcast(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
}

// Sent returns a copy of the recorded messages for assertions.
func (m *MockBroadcaster) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// CountType returns how many recorded messages have the given type.
func (m *MockBroadcaster) CountType(msgType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.Messages {
		if msg.Type == msgType {
			n++
		}
	}
	return n
}
