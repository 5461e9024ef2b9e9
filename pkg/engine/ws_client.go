package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"tradepulse/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

// ConnState represents the lifecycle state of the engine connection
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateClosing      ConnState = "closing"
)

// Listener receives classified engine frames
type Listener func(category string, data []byte)

type listenerEntry struct {
	id int64
	fn Listener
}

// WSClientConfig tunes the engine connection
type WSClientConfig struct {
	URL                  string
	Token                string
	ReconnectBaseDelay   time.Duration
	ReconnectGrowth      float64
	MaxReconnectAttempts int
}

// WSClient owns the single duplex WebSocket connection to the engine.
// Incoming frames are classified and fanned out to subscribed listeners
// per category, in registration order.
type WSClient struct {
	url   string
	token string

	mu          sync.Mutex
	conn        *websocket.Conn
	done        chan struct{}
	state       ConnState
	manualClose bool
	listeners   map[string][]*listenerEntry
	listenerSeq int64

	writeChan chan interface{}

	reconnectMu     sync.Mutex
	reconnecting    bool
	attempts        int
	reconnectCancel chan struct{}

	baseDelay   time.Duration
	growth      float64
	maxAttempts int
}

// NewWSClient creates a new engine WebSocket client
func NewWSClient(cfg WSClientConfig) *WSClient {
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = 3 * time.Second
	}
	if cfg.ReconnectGrowth < 1 {
		cfg.ReconnectGrowth = 1.5
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}

	return &WSClient{
		url:         cfg.URL,
		token:       cfg.Token,
		state:       StateDisconnected,
		listeners:   make(map[string][]*listenerEntry),
		writeChan:   make(chan interface{}, 100),
		baseDelay:   cfg.ReconnectBaseDelay,
		growth:      cfg.ReconnectGrowth,
		maxAttempts: cfg.MaxReconnectAttempts,
	}
}

// Connect establishes the connection. Any pending reconnect timer is
// cancelled and the attempt counter starts fresh. A failed handshake
// arms the automatic retry loop and returns the transport error.
func (c *WSClient) Connect() error {
	c.cancelReconnect()

	c.mu.Lock()
	c.manualClose = false
	if c.conn != nil {
		// one live connection at a time, drop the old transport
		conn, done := c.conn, c.done
		c.conn = nil
		conn.Close()
		close(done)
	}
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.scheduleReconnect()
		return err
	}
	return nil
}

// Disconnect closes the connection with a normal-closure code, suppresses
// automatic reconnection and clears all registered listeners. Idempotent.
func (c *WSClient) Disconnect() {
	c.mu.Lock()
	c.manualClose = true
	c.listeners = make(map[string][]*listenerEntry)
	conn, done := c.conn, c.done
	c.conn = nil
	if conn != nil {
		c.state = StateClosing
	} else {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	c.cancelReconnect()

	if conn == nil {
		return
	}

	deadline := time.Now().Add(time.Second)
	if err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil {
		logger.Debugf("engine ws close frame not delivered: %v", err)
	}
	conn.Close()
	close(done)

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	logger.Infof("Disconnected from engine WebSocket")
}

// Subscribe registers a listener for a message category and returns an
// unsubscribe handle. CategoryAll receives every frame.
func (c *WSClient) Subscribe(category string, fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listenerSeq++
	id := c.listenerSeq
	c.listeners[category] = append(c.listeners[category], &listenerEntry{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.listeners[category]
		for i, e := range entries {
			if e.id == id {
				c.listeners[category] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Send marshals and transmits a payload while the connection is open.
// Otherwise it logs a warning and drops the payload, it never fails.
func (c *WSClient) Send(v interface{}) {
	c.mu.Lock()
	open := c.state == StateConnected
	c.mu.Unlock()

	if !open {
		logger.Warnf("engine ws send skipped, connection not open")
		return
	}

	select {
	case c.writeChan <- v:
	default:
		logger.Warnf("engine ws write buffer full, dropping payload")
	}
}

// Status returns the current lifecycle state
func (c *WSClient) Status() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempts returns how many reconnect attempts have run since
// the last successful connection
func (c *WSClient) ReconnectAttempts() int {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()
	return c.attempts
}

// ReconnectDelay returns the backoff delay ahead of the given attempt:
// the base delay grown by the configured factor per prior attempt.
func (c *WSClient) ReconnectDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return c.baseDelay
	}
	return time.Duration(float64(c.baseDelay) * math.Pow(c.growth, float64(attempt-1)))
}

func (c *WSClient) dial() error {
	c.mu.Lock()
	if c.manualClose {
		c.mu.Unlock()
		return errors.New("connection closed by caller")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		c.mu.Lock()
		if c.conn == nil {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return fmt.Errorf("engine websocket dial: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		// a competing connect won, keep its transport
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	done := make(chan struct{})
	c.conn = conn
	c.done = done
	c.state = StateConnected
	c.mu.Unlock()

	c.resetAttempts()

	go c.readPump(conn, done)
	go c.writePump(conn, done)
	go c.pingPump(done)

	if c.token != "" {
		c.Send(map[string]string{"authorize": c.token})
	}

	logger.Infof("Connected to engine WebSocket at %s", c.url)
	return nil
}

func (c *WSClient) readPump(conn *websocket.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				logger.Warnf("engine ws closed: code=%d reason=%s", closeErr.Code, closeErr.Text)
			} else {
				logger.Warnf("engine ws read failed: %v", err)
			}

			c.teardownConn(conn, done)

			if !c.isManualClose() && isAbnormalClosure(err) {
				c.scheduleReconnect()
			}
			return
		}

		c.dispatch(message)
	}
}

func (c *WSClient) dispatch(message []byte) {
	category, data, err := Classify(message)
	if err != nil {
		logger.Warnf("engine ws dropping frame: %v", err)
		return
	}

	c.mu.Lock()
	entries := append([]*listenerEntry(nil), c.listeners[category]...)
	wildcard := append([]*listenerEntry(nil), c.listeners[CategoryAll]...)
	c.mu.Unlock()

	for _, e := range entries {
		e.fn(category, data)
	}
	for _, e := range wildcard {
		e.fn(category, data)
	}
}

func (c *WSClient) writePump(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case msg := <-c.writeChan:
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warnf("engine ws write failed: %v", err)
				c.teardownConn(conn, done)
				if !c.isManualClose() {
					c.scheduleReconnect()
				}
				return
			}
		case <-done:
			return
		}
	}
}

func (c *WSClient) pingPump(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Send(map[string]int{"ping": 1})
		case <-done:
			return
		}
	}
}

// teardownConn retires a transport if it is still the current one
func (c *WSClient) teardownConn(conn *websocket.Conn, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	conn.Close()
	close(done)
}

func (c *WSClient) isManualClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualClose
}

func (c *WSClient) resetAttempts() {
	c.reconnectMu.Lock()
	c.attempts = 0
	c.reconnectMu.Unlock()
}

func (c *WSClient) cancelReconnect() {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()
	c.attempts = 0
	if c.reconnectCancel != nil {
		close(c.reconnectCancel)
		c.reconnectCancel = nil
	}
}

func (c *WSClient) scheduleReconnect() {
	c.mu.Lock()
	if c.manualClose || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	if c.reconnecting {
		return
	}
	if c.attempts >= c.maxAttempts {
		logger.Warnf("engine ws reconnect attempts exhausted, staying disconnected")
		return
	}

	c.reconnecting = true
	cancel := make(chan struct{})
	c.reconnectCancel = cancel

	go c.retryLoop(cancel)
}

func (c *WSClient) retryLoop(cancel chan struct{}) {
	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	for {
		if c.isManualClose() {
			return
		}

		c.reconnectMu.Lock()
		if c.attempts >= c.maxAttempts {
			c.reconnectMu.Unlock()
			logger.Errorf("engine ws gave up after %d reconnect attempts", c.maxAttempts)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.reconnectMu.Unlock()

		delay := c.ReconnectDelay(attempt)
		logger.Infof("engine ws reconnect attempt %d/%d in %s", attempt, c.maxAttempts, delay)

		select {
		case <-time.After(delay):
		case <-cancel:
			logger.Infof("engine ws reconnect cancelled")
			return
		}

		if c.isManualClose() {
			return
		}

		if err := c.dial(); err != nil {
			logger.Warnf("engine ws reconnect attempt %d/%d failed: %v", attempt, c.maxAttempts, err)
			continue
		}

		logger.Infof("engine ws reconnected after attempt %d", attempt)
		return
	}
}

// isAbnormalClosure reports whether a read error represents anything other
// than a clean normal-closure handshake
func isAbnormalClosure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code != websocket.CloseNormalClosure
	}
	return true
}
