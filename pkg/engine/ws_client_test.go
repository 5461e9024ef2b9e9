package engine_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradepulse/backend/pkg/engine"

	"github.com/gorilla/websocket"
	"gotest.tools/assert"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// feedServer is a minimal engine stand-in accepting WebSocket upgrades
type feedServer struct {
	srv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFeedServer(t *testing.T) *feedServer {
	f := &feedServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		// drain inbound frames so pings do not back up
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *feedServer) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *feedServer) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *feedServer) send(t *testing.T, payload string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		t.Fatal("no connection to send on")
	}
	conn := f.conns[len(f.conns)-1]
	assert.NilError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (f *feedServer) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		conn.Close()
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWSClient_ConnectAndDispatch(t *testing.T) {
	srv := newFeedServer(t)
	client := engine.NewWSClient(engine.WSClientConfig{URL: srv.url()})

	var mu sync.Mutex
	var ticks []string
	var order []string
	client.Subscribe(engine.CategoryTick, func(_ string, data []byte) {
		mu.Lock()
		ticks = append(ticks, string(data))
		mu.Unlock()
	})
	client.Subscribe(engine.CategoryAll, func(category string, _ []byte) {
		mu.Lock()
		order = append(order, category)
		mu.Unlock()
	})

	assert.NilError(t, client.Connect())
	defer client.Disconnect()
	assert.Equal(t, client.Status(), engine.StateConnected)

	srv.send(t, `{"type":"tick","data":{"symbol":"R_100","quote":123.45,"epoch":1700000000}}`)
	srv.send(t, `{"balance":1000.5}`)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, "frames were not dispatched")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(ticks), 1, "tick listener sees only tick frames")
	assert.Equal(t, ticks[0], `{"symbol":"R_100","quote":123.45,"epoch":1700000000}`, "tagged frames deliver the inner payload")
	assert.Equal(t, order[0], engine.CategoryTick)
	assert.Equal(t, order[1], engine.CategoryBalance, "wildcard sees every category")
}

func TestWSClient_DisconnectSuppressesReconnect(t *testing.T) {
	srv := newFeedServer(t)
	client := engine.NewWSClient(engine.WSClientConfig{
		URL:                srv.url(),
		ReconnectBaseDelay: 20 * time.Millisecond,
	})

	assert.NilError(t, client.Connect())
	waitFor(t, func() bool { return srv.connCount() == 1 }, "server never saw the connection")

	client.Disconnect()
	assert.Equal(t, client.Status(), engine.StateDisconnected)

	// several backoff periods with no new connection
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, srv.connCount(), 1, "manual close must not trigger reconnection")
	assert.Equal(t, client.ReconnectAttempts(), 0)
}

func TestWSClient_ReconnectsAfterDrop(t *testing.T) {
	srv := newFeedServer(t)
	client := engine.NewWSClient(engine.WSClientConfig{
		URL:                  srv.url(),
		ReconnectBaseDelay:   20 * time.Millisecond,
		ReconnectGrowth:      1.1,
		MaxReconnectAttempts: 10,
	})

	assert.NilError(t, client.Connect())
	defer client.Disconnect()
	waitFor(t, func() bool { return srv.connCount() == 1 }, "first connection never arrived")

	srv.dropAll()

	waitFor(t, func() bool { return srv.connCount() >= 2 }, "client never reconnected")
	waitFor(t, func() bool { return client.Status() == engine.StateConnected }, "client not connected after retry")
}

func TestWSClient_ConnectFailureArmsRetry(t *testing.T) {
	client := engine.NewWSClient(engine.WSClientConfig{
		URL:                  "ws://127.0.0.1:1",
		ReconnectBaseDelay:   10 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})

	err := client.Connect()
	assert.ErrorContains(t, err, "dial")

	waitFor(t, func() bool { return client.ReconnectAttempts() == 2 }, "retry loop never exhausted")
	assert.Equal(t, client.Status(), engine.StateDisconnected)
}

func TestWSClient_ConnectResetsAttempts(t *testing.T) {
	client := engine.NewWSClient(engine.WSClientConfig{
		URL:                  "ws://127.0.0.1:1",
		ReconnectBaseDelay:   10 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})

	assert.Assert(t, client.Connect() != nil)
	waitFor(t, func() bool { return client.ReconnectAttempts() == 2 }, "retry loop never exhausted")

	// a fresh connect resets the counter, so a whole new retry round runs
	// where an exhausted counter would have allowed none
	assert.Assert(t, client.Connect() != nil)
	waitFor(t, func() bool { return client.ReconnectAttempts() == 2 }, "second retry round never ran")
}

func TestWSClient_ReconnectDelayGrowth(t *testing.T) {
	client := engine.NewWSClient(engine.WSClientConfig{
		URL:                "ws://unused",
		ReconnectBaseDelay: 3 * time.Second,
		ReconnectGrowth:    1.5,
	})

	assert.Equal(t, client.ReconnectDelay(1), 3*time.Second)
	assert.Equal(t, client.ReconnectDelay(2), 4500*time.Millisecond)
	assert.Equal(t, client.ReconnectDelay(3), 6750*time.Millisecond)
}

func TestWSClient_SendRequiresOpenConnection(t *testing.T) {
	client := engine.NewWSClient(engine.WSClientConfig{URL: "ws://unused"})

	// dropped with a warning, never panics or blocks
	client.Send(map[string]int{"ping": 1})
	assert.Equal(t, client.Status(), engine.StateDisconnected)
}

func TestWSClient_DisconnectClearsListeners(t *testing.T) {
	srv := newFeedServer(t)
	client := engine.NewWSClient(engine.WSClientConfig{URL: srv.url()})

	var mu sync.Mutex
	frames := 0
	client.Subscribe(engine.CategoryBalance, func(string, []byte) {
		mu.Lock()
		frames++
		mu.Unlock()
	})

	assert.NilError(t, client.Connect())
	srv.send(t, `{"balance":1}`)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return frames == 1
	}, "frame not delivered before disconnect")

	client.Disconnect()

	// listeners registered before disconnect are gone on the next connect
	assert.NilError(t, client.Connect())
	defer client.Disconnect()
	waitFor(t, func() bool { return srv.connCount() == 2 }, "second connection never arrived")
	srv.send(t, `{"balance":2}`)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, frames, 1, "disconnect must clear registered listeners")
}
