package session

import (
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facemetrics/internal/log"
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/hub"
	"github.com/teslashibe/go-facemetrics/pkg/protocol"
)

// startServer serves h's WebSocket routes and returns the base ws:// URL.
func startServer(t *testing.T, h *Hub, monitor *hub.Hub) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.RegisterRoutes(app)
	if monitor != nil {
		app.Get("/ws/monitor", monitor.Handler())
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String()
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg *protocol.Message, err error) {
	t.Helper()
	require.NoError(t, err)
	data, err := msg.Bytes()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func receive(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	return msg
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

func TestWebSocketSessionFlow(t *testing.T) {
	h := newTestHub(t, nil)
	base := startServer(t, h, nil)
	conn := dial(t, base+"/ws/session/cam-1")

	for i := 1; i <= testSamples; i++ {
		msg, err := protocol.NewLandmarksMessage(uint64(i), face(40, 5, 10), nil)
		send(t, conn, msg, err)

		// The completing frame announces calibration ahead of its metrics
		if i == testSamples {
			calibrated := receive(t, conn)
			require.Equal(t, protocol.TypeCalibrated, calibrated.Type)
			cd, err := calibrated.GetCalibratedData()
			require.NoError(t, err)
			assert.Equal(t, "cam-1", cd.SessionID)
			assert.InDelta(t, 5.0, cd.Baseline.MouthHeight, 1e-9)
			assert.True(t, cd.Baseline.Calibrated)
		}

		reply := receive(t, conn)
		require.Equal(t, protocol.TypeMetrics, reply.Type)
		md, err := reply.GetMetricsData()
		require.NoError(t, err)
		assert.Equal(t, "cam-1", md.SessionID)
		assert.Equal(t, uint64(i), md.FrameID)
		assert.Equal(t, i, md.Samples)
		assert.True(t, md.Metrics.IsNeutral())
	}

	msg, err := protocol.NewLandmarksMessage(10, face(40, 10, 10), nil)
	send(t, conn, msg, err)
	reply := receive(t, conn)
	md, err := reply.GetMetricsData()
	require.NoError(t, err)
	assert.True(t, md.Calibrated)
	assert.Equal(t, "calibrated", md.State)
	assert.InDelta(t, 2.0, md.Metrics.MouthOpenness, 1e-9)
	require.NotNil(t, md.Describe)
	assert.Equal(t, expression.BandWide, md.Describe.Mouth)
}

func TestWebSocketInvalidFrame(t *testing.T) {
	h := newTestHub(t, nil)
	base := startServer(t, h, nil)
	conn := dial(t, base+"/ws/session")

	msg, err := protocol.NewLandmarksMessage(42, face(40, 5, 10)[:10], nil)
	send(t, conn, msg, err)

	reply := receive(t, conn)
	require.Equal(t, protocol.TypeError, reply.Type)
	ed, err := reply.GetErrorData()
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeInvalidInput, ed.Code)
	assert.Equal(t, uint64(42), ed.FrameID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	reply = receive(t, conn)
	ed, err = reply.GetErrorData()
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeBadMessage, ed.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	reply = receive(t, conn)
	ed, err = reply.GetErrorData()
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeBadMessage, ed.Code)
	assert.Contains(t, ed.Message, "teleport")

	stats := h.GetStats()
	assert.Equal(t, uint64(1), stats.FramesRejected)
	assert.Equal(t, uint64(3), stats.MessagesReceived)
}

func TestWebSocketPingAndReset(t *testing.T) {
	h := newTestHub(t, nil)
	base := startServer(t, h, nil)
	conn := dial(t, base+"/ws/session/pinger")

	ping, err := protocol.NewPingMessage("p1", time.Now().UnixMilli())
	send(t, conn, ping, err)
	reply := receive(t, conn)
	require.Equal(t, protocol.TypePong, reply.Type)
	pong, err := reply.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "p1", pong.ID)
	assert.GreaterOrEqual(t, pong.LatencyMs, int64(0))

	s, err := h.Get("pinger")
	require.NoError(t, err)
	calibrateSession(t, h, s)

	reset, err := protocol.NewResetMessage()
	send(t, conn, reset, err)
	reply = receive(t, conn)
	require.Equal(t, protocol.TypeReset, reply.Type)
	assert.Equal(t, "uncalibrated", s.State().String())
	assert.Equal(t, 1, s.Info().Epoch)
}

func TestWebSocketOwnedSessionRemovedOnClose(t *testing.T) {
	h := newTestHub(t, nil)
	base := startServer(t, h, nil)
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/session", nil)
	require.NoError(t, err)

	ping, err := protocol.NewPingMessage("", 0)
	send(t, conn, ping, err)
	receive(t, conn)
	assert.Equal(t, 1, h.SessionCount())

	conn.Close()
	waitFor(t, func() bool { return h.SessionCount() == 0 })
}

func TestWebSocketSessionBusy(t *testing.T) {
	h := newTestHub(t, nil)
	base := startServer(t, h, nil)

	first := dial(t, base+"/ws/session/shared")
	ping, err := protocol.NewPingMessage("", 0)
	send(t, first, ping, err)
	receive(t, first)

	second := dial(t, base+"/ws/session/shared")
	reply := receive(t, second)
	require.Equal(t, protocol.TypeError, reply.Type)
	ed, err := reply.GetErrorData()
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeSessionBusy, ed.Code)
}

func TestMonitorReceivesMetrics(t *testing.T) {
	monitor := hub.New("monitor", log.Discard())
	go monitor.Run()
	defer monitor.Stop()

	h := newTestHub(t, func(o *Options) { o.Monitor = monitor })
	base := startServer(t, h, monitor)

	watcher := dial(t, base+"/ws/monitor")
	waitFor(t, func() bool { return monitor.ClientCount() == 1 })

	conn := dial(t, base+"/ws/session/watched")
	msg, err := protocol.NewLandmarksMessage(1, face(40, 5, 10), nil)
	send(t, conn, msg, err)
	receive(t, conn)

	update := receive(t, watcher)
	require.Equal(t, protocol.TypeMetrics, update.Type)
	md, err := update.GetMetricsData()
	require.NoError(t, err)
	assert.Equal(t, "watched", md.SessionID)
	assert.Equal(t, 1, h.GetStats().MonitorClients)
}

func TestUpgradeRequired(t *testing.T) {
	h := newTestHub(t, nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.RegisterRoutes(app)

	req, err := newRequest(fiber.MethodGet, "/ws/session", nil)
	require.NoError(t, err)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
