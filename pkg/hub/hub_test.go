package hub

import (
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facemetrics/internal/log"
)

func startMonitor(t *testing.T, h *Hub) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/monitor", h.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/monitor"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNew(t *testing.T) {
	h := New("test", nil)

	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("Hub should not be running before Run")
	}
}

func TestBroadcastToClients(t *testing.T) {
	h := New("monitor", log.Discard())
	go h.Run()
	defer h.Stop()

	url := startMonitor(t, h)

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("WebSocket dial error: %v", err)
		}
		defer ws.Close()
		conns = append(conns, ws)
	}

	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]float64{"smile_level": 0.5}); err != nil {
		t.Fatalf("BroadcastJSON error: %v", err)
	}

	for i, ws := range conns {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read error: %v", i, err)
		}
		if msgType != websocket.TextMessage {
			t.Errorf("client %d: expected text message, got %d", i, msgType)
		}
		if string(data) != `{"smile_level":0.5}` {
			t.Errorf("client %d: unexpected payload %s", i, data)
		}
	}
}

func TestClientDisconnect(t *testing.T) {
	h := New("monitor", log.Discard())
	go h.Run()
	defer h.Stop()

	url := startMonitor(t, h)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	ws.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestStop(t *testing.T) {
	h := New("monitor", log.Discard())
	go h.Run()

	waitFor(t, h.IsRunning)
	h.Stop()
	h.Stop() // idempotent
	waitFor(t, func() bool { return !h.IsRunning() })
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := New("monitor", log.Discard())

	// Not running: the buffer fills and later messages are dropped
	for i := 0; i < 300; i++ {
		h.Broadcast([]byte("{}"))
	}
	if h.Dropped() != 300-256 {
		t.Errorf("Expected %d dropped, got %d", 300-256, h.Dropped())
	}
}

func TestBroadcastJSON_Error(t *testing.T) {
	h := New("monitor", log.Discard())
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("Expected marshal error")
	}
}
