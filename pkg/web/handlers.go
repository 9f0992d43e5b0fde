package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"sessions": s.sessions.SessionCount(),
		"chat":     s.sessions.ChatEnabled(),
	})
}

type metric struct {
	name  string
	help  string
	kind  string
	value interface{}
}

// handleMetrics renders hub statistics in the Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.sessions.GetStats()

	metrics := []metric{
		{"facemetrics_sessions", "Active session count", "gauge", stats.Sessions},
		{"facemetrics_monitor_clients", "Connected monitor clients", "gauge", stats.MonitorClients},
		{"facemetrics_messages_received_total", "Total WebSocket messages received", "counter", stats.MessagesReceived},
		{"facemetrics_messages_sent_total", "Total WebSocket messages sent", "counter", stats.MessagesSent},
		{"facemetrics_frames_processed_total", "Total landmark frames processed", "counter", stats.FramesProcessed},
		{"facemetrics_frames_rejected_total", "Total landmark frames rejected", "counter", stats.FramesRejected},
		{"facemetrics_calibrations_total", "Total completed calibrations", "counter", stats.Calibrations},
		{"facemetrics_record_errors_total", "Total failed history writes", "counter", stats.RecordErrors},
		{"facemetrics_monitor_dropped_total", "Monitor messages dropped", "counter", s.monitor.Dropped()},
	}

	var b strings.Builder
	for i, m := range metrics {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}
