package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facemetrics/internal/log"
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/hub"
	"github.com/teslashibe/go-facemetrics/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.Discard()

	sessions, err := session.NewHub(session.Options{
		Engine: expression.DefaultConfig(),
		Logger: logger,
	})
	require.NoError(t, err)

	return NewServer(sessions, hub.New("monitor", logger), Config{Version: "test", Logger: logger})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(0), body["sessions"])
	assert.Equal(t, false, body["chat"])
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/sessions", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/plain"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# TYPE facemetrics_sessions gauge\nfacemetrics_sessions 1\n")
	assert.Contains(t, text, "# TYPE facemetrics_frames_processed_total counter\nfacemetrics_frames_processed_total 0\n")
	assert.Contains(t, text, "facemetrics_monitor_dropped_total 0")
}

func TestWebSocketRoutesRequireUpgrade(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/ws/session", "/ws/monitor"} {
		resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode, path)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/monitor", nil)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for s.monitor.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, s.monitor.ClientCount())
	conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
