package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512

	// Queued events per client before it is dropped as too slow
	sendBuffer = 256

	// DefaultMaxFrames bounds the history served on /frames
	DefaultMaxFrames = 10000
)

// Event types.
const (
	EventFrame = "frame"
	EventReset = "reset"
)

// Event is the message sent to every client.
type Event struct {
	Type     string                `json:"type"`
	Seq      int64                 `json:"seq"`
	Entry    *codec.Entry          `json:"entry,omitempty"`
	Spans    *highlight.FrameSpans `json:"spans,omitempty"`
	Boundary int                   `json:"boundary,omitempty"`
}

// client is one WebSocket connection.
type client struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Hub fans events out to connected clients and keeps the recent frame
// history.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	frames    []codec.Entry
	maxFrames int
	seq       int64
	closed    bool
}

// NewHub creates a hub keeping at most maxFrames frames of history. Zero
// uses DefaultMaxFrames.
func NewHub(maxFrames int) *Hub {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &Hub{
		clients:   make(map[*client]struct{}),
		maxFrames: maxFrames,
	}
}

// PublishFrame records entry and sends it to every client with its spans
// and the cumulative bit count at its end.
func (h *Hub) PublishFrame(entry codec.Entry, spans highlight.FrameSpans, boundary int) {
	h.mu.Lock()
	h.frames = append(h.frames, entry)
	if over := len(h.frames) - h.maxFrames; over > 0 {
		h.frames = append(h.frames[:0:0], h.frames[over:]...)
	}
	h.seq++
	ev := Event{Type: EventFrame, Seq: h.seq, Entry: &entry, Spans: &spans, Boundary: boundary}
	h.broadcastLocked(ev)
	h.mu.Unlock()
}

// Reset forgets the frame history and tells clients to clear their view.
func (h *Hub) Reset() {
	h.mu.Lock()
	h.frames = nil
	h.seq++
	h.broadcastLocked(Event{Type: EventReset, Seq: h.seq})
	h.mu.Unlock()
}

// Frames returns a copy of the frame history.
func (h *Hub) Frames() []codec.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]codec.Entry, len(h.frames))
	copy(out, h.frames)
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcastLocked(ev Event) {
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Failed to marshal event", zap.Error(err))
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Client too slow, dropping",
				zap.String("remote_addr", c.remoteAddr),
			)
			delete(h.clients, c)
			c.close()
		}
	}
}

// register adds c unless the hub has been shut down.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "feed_subscribed")
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// closeAll disconnects every client and refuses new ones.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		logging.Info("Closing active connection", zap.String("remote_addr", c.remoteAddr))
		delete(h.clients, c)
		c.close()
	}
}

// writePump sends queued events and keepalive pings until the send channel
// is closed or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logging.Debug("Write failed",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and returns when the peer goes away.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed or error reading frame",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
	}
}
