package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/dossier/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

// WSMessage is a client-to-server WebSocket message.
type WSMessage struct {
	Type       string `json:"type"` // subscribe, unsubscribe, ping
	WorkflowID string `json:"workflow_id,omitempty"`
}

// WSHandler streams workflow events to WebSocket clients.
type WSHandler struct {
	upgrader    websocket.Upgrader
	publisher   events.Publisher
	connections map[*websocket.Conn]*wsConnection
	mu          sync.RWMutex
	logger      *slog.Logger
}

type wsConnection struct {
	conn *websocket.Conn
	// mu protects workflowID and eventChan.
	mu         sync.Mutex
	workflowID string
	eventChan  <-chan events.Event
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewWSHandler creates a WebSocket handler fed by pub.
func NewWSHandler(pub events.Publisher, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		publisher:   pub,
		connections: make(map[*websocket.Conn]*wsConnection),
		logger:      logger,
	}
}

// ServeHTTP upgrades the request and starts the connection's pumps.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConnection{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn] = c
	h.mu.Unlock()

	go h.readPump(c)
	go h.writePump(c)
}

func (h *WSHandler) readPump(c *wsConnection) {
	defer h.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		h.handleMessage(c, message)
	}
}

func (h *WSHandler) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			// One frame per message so every frame is a complete JSON document.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (h *WSHandler) handleMessage(c *wsConnection, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		h.subscribe(c, msg.WorkflowID)
	case "unsubscribe":
		h.unsubscribe(c)
		h.sendJSON(c, map[string]any{"type": "unsubscribed"})
	case "ping":
		h.sendJSON(c, map[string]any{"type": "pong"})
	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// subscribe replaces the connection's subscription. Use "*" for every
// workflow.
func (h *WSHandler) subscribe(c *wsConnection, workflowID string) {
	if workflowID == "" {
		h.sendError(c, `workflow_id required for subscribe (use "*" for all workflows)`)
		return
	}
	h.unsubscribe(c)

	ch := h.publisher.Subscribe(workflowID)
	c.mu.Lock()
	c.workflowID = workflowID
	c.eventChan = ch
	c.mu.Unlock()

	go h.forwardEvents(c, ch)

	h.logger.Debug("websocket subscribed", "workflow_id", workflowID)
	h.sendJSON(c, map[string]any{
		"type":        "subscribed",
		"workflow_id": workflowID,
	})
}

func (h *WSHandler) unsubscribe(c *wsConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eventChan != nil {
		h.publisher.Unsubscribe(c.workflowID, c.eventChan)
		c.workflowID = ""
		c.eventChan = nil
	}
}

// forwardEvents relays ch until it is closed by Unsubscribe or the
// connection ends.
func (h *WSHandler) forwardEvents(c *wsConnection, ch <-chan events.Event) {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			h.sendJSON(c, map[string]any{
				"type":        "event",
				"event":       string(event.Type),
				"workflow_id": event.WorkflowID,
				"data":        event.Data,
				"time":        event.Time,
			})
		}
	}
}

func (h *WSHandler) closeConnection(c *wsConnection) {
	h.mu.Lock()
	if _, ok := h.connections[c.conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, c.conn)
	h.mu.Unlock()

	h.unsubscribe(c)
	c.closeOnce.Do(func() { close(c.done) })
}

// sendJSON queues data for the write pump. Messages are dropped when the
// client falls behind.
func (h *WSHandler) sendJSON(c *wsConnection, data any) {
	msg, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("marshal websocket message", "error", err)
		return
	}

	select {
	case c.send <- msg:
	case <-c.done:
	default:
		h.logger.Warn("websocket send buffer full, dropping message")
	}
}

func (h *WSHandler) sendError(c *wsConnection, message string) {
	h.sendJSON(c, map[string]any{
		"type":  "error",
		"error": message,
	})
}

// ConnectionCount returns the number of open connections.
func (h *WSHandler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close closes every connection.
func (h *WSHandler) Close() {
	h.mu.RLock()
	conns := make([]*wsConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.closeConnection(c)
	}
}
