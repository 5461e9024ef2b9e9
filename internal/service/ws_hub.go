package service

import (
	"net/http"
	"sync"
	"time"

	"tradepulse/backend/internal/model"
	"tradepulse/backend/internal/util"
	"tradepulse/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Client represents a connected dashboard over WebSocket
type Client struct {
	Hub    *WSHub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

// WSHub re-broadcasts reconciler updates to connected dashboards
type WSHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex

	snapMu   sync.RWMutex
	snapshot func() *model.TradingSnapshot

	log *logger.Logger
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		log:        logger.GetLogger(),
	}
}

// SetSnapshotSource installs the provider used to greet new connections
// with the full current state. A nil provider disables the greeting.
func (h *WSHub) SetSnapshotSource(fn func() *model.TradingSnapshot) {
	h.snapMu.Lock()
	h.snapshot = fn
	h.snapMu.Unlock()
}

func (h *WSHub) snapshotSource() func() *model.TradingSnapshot {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.snapshot
}

func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Infof("WS Client registered: UserID=%s", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Infof("WS Client unregistered: UserID=%s", client.UserID)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *WSHub) Broadcast(msg model.WSMessage) {
	data, err := fastJSON.Marshal(msg)
	if err != nil {
		h.log.Errorf("Failed to marshal WS broadcast message: %v", err)
		return
	}
	h.broadcast <- data
}

// ClientCount returns the number of connected dashboards
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReadPump handles messages from the client. Dashboards only ever send
// application-level pings, everything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Errorf("WS error: %v", err)
			}
			break
		}

		var inbound model.WSMessage
		if err := fastJSON.Unmarshal(message, &inbound); err != nil {
			continue
		}
		if inbound.Type == "ping" {
			if data, err := fastJSON.Marshal(model.WSMessage{Type: model.MessageTypePong}); err == nil {
				select {
				case c.Send <- data:
				default:
				}
			}
		}
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain anything queued behind this write
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, check origin
	},
}

// ServeWS handles WebSocket upgrade requests
func (h *WSHub) ServeWS(c *gin.Context) {
	u, exists := c.Get("user_id")
	if !exists {
		util.SendError(c, util.ErrUnauthorized("User not authenticated"))
		return
	}
	userID := u.(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
	}

	h.register <- client

	// Greet with the full snapshot so the dashboard renders immediately
	// instead of waiting for the next delta.
	if source := h.snapshotSource(); source != nil {
		greeting := model.WSMessage{Type: model.MessageTypeSnapshot, Data: source()}
		if data, err := fastJSON.Marshal(greeting); err == nil {
			client.Send <- data
		}
	}

	go client.WritePump()
	go client.ReadPump()
}
