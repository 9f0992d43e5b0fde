package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/protocol"
)

// connection is a live WebSocket bound to a session.
type connection struct {
	session *Session
	conn    *websocket.Conn

	mu sync.Mutex
}

// Send writes a message to the connection.
func (c *connection) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/session", websocket.New(h.handleSession))
	app.Get("/ws/session/:id", websocket.New(h.handleSession))
}

// handleSession handles a landmark producer's WebSocket connection
func (h *Hub) handleSession(c *websocket.Conn) {
	id := c.Params("id")

	s, owned, err := h.attach(id)
	if err != nil {
		h.logger.Warn("session attach failed", "session", id, "error", err)
		code := protocol.CodeBadMessage
		if errors.Is(err, ErrSessionBusy) {
			code = protocol.CodeSessionBusy
		}
		if msg, merr := protocol.NewErrorMessage(0, code, err.Error()); merr == nil {
			conn := &connection{conn: c}
			conn.Send(msg)
		}
		return
	}

	conn := &connection{session: s, conn: c}
	h.logger.Info("session connected", "session", s.ID, "owned", owned)

	defer func() {
		h.detach(s, owned)
		h.logger.Info("session disconnected", "session", s.ID)
	}()

	ctx := context.Background()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("session read ended", "session", s.ID, "error", err)
			return
		}

		s.touch()
		h.messagesReceived.Add(1)
		h.handleMessage(ctx, conn, data)
	}
}

// handleMessage processes an incoming message from a producer
func (h *Hub) handleMessage(ctx context.Context, conn *connection, data []byte) {
	s := conn.session

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.sendError(conn, 0, protocol.CodeBadMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		frame, err := msg.GetLandmarksData()
		if err != nil {
			h.sendError(conn, 0, protocol.CodeBadMessage, err.Error())
			return
		}

		md, res, err := h.Process(ctx, s, frame)
		if err != nil {
			code := protocol.CodeBadMessage
			if errors.Is(err, expression.ErrInvalidInput) {
				code = protocol.CodeInvalidInput
			}
			h.sendError(conn, frame.FrameID, code, err.Error())
			return
		}

		// calibrated goes first so a client waiting on the frame's metrics
		// has already seen it
		if res.JustCalibrated {
			if out, err := protocol.NewCalibratedMessage(s.ID, s.Baseline()); err == nil {
				h.send(conn, out)
			}
		}

		out, err := protocol.NewMessage(protocol.TypeMetrics, md)
		if err != nil {
			h.logger.Error("encode metrics failed", "session", s.ID, "error", err)
			return
		}
		h.send(conn, out)

	case protocol.TypeReset:
		if err := s.Reset(); err != nil {
			h.sendError(conn, 0, protocol.CodeInternal, err.Error())
			return
		}
		h.logger.Info("session reset", "session", s.ID)
		if out, err := protocol.NewResetAckMessage(s.ID); err == nil {
			h.send(conn, out)
		}

	case protocol.TypePing:
		var pingID string
		pingTS := msg.Timestamp
		if ping, err := msg.GetPingData(); err == nil {
			pingID = ping.ID
			if ping.Timestamp != 0 {
				pingTS = ping.Timestamp
			}
		}
		if out, err := protocol.NewPongMessage(pingID, pingTS, time.Now().UnixMilli()); err == nil {
			h.send(conn, out)
		}

	default:
		h.sendError(conn, 0, protocol.CodeBadMessage, "unknown message type: "+string(msg.Type))
	}
}

func (h *Hub) sendError(conn *connection, frameID uint64, code, text string) {
	msg, err := protocol.NewErrorMessage(frameID, code, text)
	if err != nil {
		return
	}
	h.send(conn, msg)
}

func (h *Hub) send(conn *connection, msg *protocol.Message) {
	h.messagesSent.Add(1)
	if err := conn.Send(msg); err != nil {
		h.logger.Debug("send failed", "session", conn.session.ID, "type", msg.Type, "error", err)
	}
}
