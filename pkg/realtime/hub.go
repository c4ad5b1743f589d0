// Package realtime pushes ledger updates to connected websocket clients.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MessageType string

const (
	TypeTransaction   MessageType = "transaction"
	TypeBalance       MessageType = "balance"
	TypeLeaderboard   MessageType = "leaderboard"
	TypeStallStats    MessageType = "stall-stats"
	TypeParticipation MessageType = "participation"
	TypePing          MessageType = "ping"
	TypePong          MessageType = "pong"
)

type Message struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Notifier is what the services see of the hub.
type Notifier interface {
	NotifyUser(userID string, msg Message)
	NotifyRole(role string, msg Message)
	Broadcast(msg Message)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 32
)

type client struct {
	userID string
	role   string
	conn   *websocket.Conn
	send   chan []byte
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
	onChange func(total int)
}

func NewHub(log *zap.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("realtime"),
	}
}

// OnConnectionsChanged registers a callback fired with the new connection
// total after every register/unregister.
func (h *Hub) OnConnectionsChanged(fn func(total int)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and blocks until the connection is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID, role string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{userID: userID, role: role, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.deliver(c, Message{Type: TypePing, Data: map[string]string{
		"message": "Connected to WebSocket server",
		"userId":  userID,
	}})

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	total, fn := h.countLocked(), h.onChange
	h.mu.Unlock()

	h.log.Debug("client connected", zap.String("user_id", c.userID), zap.String("role", c.role))
	if fn != nil {
		fn(total)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	total, fn := h.countLocked(), h.onChange
	h.mu.Unlock()

	h.log.Debug("client disconnected", zap.String("user_id", c.userID))
	if fn != nil {
		fn(total)
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == TypePong {
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// deliver queues the message without blocking; a client whose buffer is
// full is dropped.
func (h *Hub) deliver(c *client, msg Message) {
	h.fanout(func(t *client) bool { return t == c }, msg)
}

// fanout sends under the read lock so unregister cannot close a channel
// mid-send.
func (h *Hub) fanout(match func(*client) bool, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for _, set := range h.clients {
		for c := range set {
			if !match(c) {
				continue
			}
			select {
			case c.send <- payload:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client", zap.String("user_id", c.userID))
		h.unregister(c)
	}
}

func (h *Hub) NotifyUser(userID string, msg Message) {
	h.fanout(func(c *client) bool { return c.userID == userID }, msg)
}

func (h *Hub) NotifyRole(role string, msg Message) {
	h.fanout(func(c *client) bool { return c.role == role }, msg)
}

func (h *Hub) Broadcast(msg Message) {
	h.fanout(func(*client) bool { return true }, msg)
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

// Close drops every client. Used on shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.unregister(c)
	}
}
