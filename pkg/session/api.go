package session

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-facemetrics/pkg/chat"
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/protocol"
)

// ChatRequest is the body of POST /sessions/:id/chat.
type ChatRequest struct {
	Message string `json:"message"`

	// IncludeMetrics attaches the latest calibrated metrics. Defaults to true.
	IncludeMetrics *bool `json:"include_metrics,omitempty"`
}

// ChatReply is the response of POST /sessions/:id/chat.
type ChatReply struct {
	SessionID string              `json:"session_id"`
	Reply     string              `json:"reply"`
	Metrics   *expression.Metrics `json:"metrics,omitempty"`
}

// DescribeReply is the response of GET /sessions/:id/describe.
type DescribeReply struct {
	SessionID string                  `json:"session_id"`
	State     string                  `json:"state"`
	Metrics   *expression.Metrics     `json:"metrics,omitempty"`
	Describe  *expression.Description `json:"describe,omitempty"`
}

// RegisterAPIRoutes registers API routes for session management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	// List sessions
	sessions.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": h.Sessions(),
			"count":    h.SessionCount(),
		})
	})

	// Create a session fed over HTTP
	sessions.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			ID string `json:"id"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errorJSON(c, fiber.StatusBadRequest, err)
			}
		}

		s, err := h.Create(strings.TrimSpace(req.ID))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.Status(fiber.StatusCreated).JSON(s.Info())
	})

	// Get hub stats
	sessions.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	sessions.Get("/:id", func(c *fiber.Ctx) error {
		s, err := h.Get(c.Params("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.JSON(s.Info())
	})

	sessions.Delete("/:id", func(c *fiber.Ctx) error {
		if err := h.Remove(c.Params("id")); err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Process one landmark frame
	sessions.Post("/:id/frames", func(c *fiber.Ctx) error {
		s, err := h.Get(c.Params("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}

		var frame protocol.LandmarksData
		if err := c.BodyParser(&frame); err != nil {
			h.framesRejected.Add(1)
			return errorJSON(c, fiber.StatusBadRequest, err)
		}

		md, _, err := h.Process(c.UserContext(), s, &frame)
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.JSON(md)
	})

	sessions.Post("/:id/reset", func(c *fiber.Ctx) error {
		s, err := h.Get(c.Params("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		if err := s.Reset(); err != nil {
			return errorJSON(c, fiber.StatusInternalServerError, err)
		}
		h.logger.Info("session reset", "session", s.ID)
		return c.JSON(protocol.ResetData{SessionID: s.ID})
	})

	// Human-readable bands for the latest metrics
	sessions.Get("/:id/describe", func(c *fiber.Ctx) error {
		s, err := h.Get(c.Params("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}

		reply := DescribeReply{SessionID: s.ID, State: s.State().String()}
		if m, ok := s.Last(); ok {
			d := expression.Describe(m)
			reply.Metrics = &m
			reply.Describe = &d
		}
		return c.JSON(reply)
	})

	sessions.Get("/:id/history", func(c *fiber.Ctx) error {
		id := c.Params("id")
		samples, err := h.History(c.UserContext(), id, c.QueryInt("limit", 0))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.JSON(fiber.Map{
			"session_id": id,
			"samples":    samples,
			"count":      len(samples),
		})
	})

	// Chat with the latest expression attached
	sessions.Post("/:id/chat", func(c *fiber.Ctx) error {
		s, err := h.Get(c.Params("id"))
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}

		var req ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err)
		}
		include := req.IncludeMetrics == nil || *req.IncludeMetrics

		resp, metrics, err := s.Chat(c.UserContext(), req.Message, include)
		if err != nil {
			return errorJSON(c, statusFor(err), err)
		}
		return c.JSON(ChatReply{
			SessionID: s.ID,
			Reply:     resp.Message.Content,
			Metrics:   metrics,
		})
	})
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var apiErr *chat.APIError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrSessionExists), errors.Is(err, ErrSessionBusy):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, chat.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, expression.ErrInvalidInput):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrChatDisabled), errors.Is(err, chat.ErrNoAPIKey):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
