package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"accidentwatch/internal/logger"
	"accidentwatch/internal/metrics"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is the number of messages queued per viewer before new ones are dropped.
	sendBuffer = 16
)

type client struct {
	conn    *websocket.Conn
	session string
	send    chan []byte
}

type message struct {
	session string
	data    []byte
}

// HubService fans messages out to the viewers of a session. Each viewer has its
// own queue and writer goroutine; a viewer that falls behind loses messages
// without delaying anyone else.
type HubService struct {
	clients    map[*websocket.Conn]*client
	broadcast  chan message
	register   chan *client
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewHubService creates a hub. Run must be started before clients register.
func NewHubService(logger *logger.Logger, m *metrics.Metrics) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan message, 64),
		register:   make(chan *client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes all viewers.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn, c := range h.clients {
				close(c.send)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			h.metrics.ActiveViewers.Store(0)
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c.conn] = c
			total := len(h.clients)
			h.mutex.Unlock()
			go h.writePump(c)
			h.metrics.ActiveViewers.Store(int64(total))
			h.logger.Info("Viewer connected for session %s. Total: %d", shortID(c.session), total)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			for _, c := range h.sessionClients(msg.session) {
				select {
				case c.send <- msg.data:
				default:
					h.metrics.ViewerMessagesDropped.Add(1)
				}
			}
		}
	}
}

// writePump writes queued messages to one viewer until its queue is closed.
// A failed write unregisters the viewer.
func (h *HubService) writePump(c *client) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Error("Error sending message: %v", err)
			h.Unregister(c.conn)
			// Drain until Run closes the queue.
			for range c.send {
			}
			return
		}
	}
}

func (h *HubService) sessionClients(session string) []*client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var out []*client
	for _, c := range h.clients {
		if c.session == session {
			out = append(out, c)
		}
	}
	return out
}

func (h *HubService) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(c.send)
		conn.Close()
	}
	total := len(h.clients)
	h.mutex.Unlock()

	if ok {
		h.metrics.ActiveViewers.Store(int64(total))
		h.logger.Info("Viewer disconnected. Total: %d", total)
	}
}

// Register adds a viewer connection for session.
func (h *HubService) Register(conn *websocket.Conn, session string) {
	select {
	case h.register <- &client{conn: conn, session: session, send: make(chan []byte, sendBuffer)}:
	case <-h.done:
		conn.Close()
	}
}

// Unregister removes and closes a viewer connection.
func (h *HubService) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Send encodes v as JSON and queues it for every viewer of session.
func (h *HubService) Send(session string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{session: session, data: data}:
	case <-h.done:
	}
	return nil
}

// GetClientCount returns the number of connected viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// GetSessionClientCount returns the number of viewers connected for session.
func (h *HubService) GetSessionClientCount(session string) int {
	return len(h.sessionClients(session))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
