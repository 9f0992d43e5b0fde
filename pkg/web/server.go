// Package web serves the facemetrics HTTP API, WebSocket endpoints and
// monitor feed.
package web

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-facemetrics/pkg/hub"
	"github.com/teslashibe/go-facemetrics/pkg/session"
)

// Config configures the server.
type Config struct {
	Version string

	// Debug enables per-request logging.
	Debug bool

	Logger *slog.Logger
}

// Server is the facemetrics HTTP server
type Server struct {
	app      *fiber.App
	sessions *session.Hub
	monitor  *hub.Hub
	logger   *slog.Logger
	version  string
	started  time.Time
}

// NewServer builds the fiber app around a session hub and monitor hub.
// The monitor hub is run by Start and stopped by Shutdown.
func NewServer(sessions *session.Hub, monitor *hub.Hub, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		sessions: sessions,
		monitor:  monitor,
		logger:   cfg.Logger.With("component", "web"),
		version:  cfg.Version,
		started:  time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facemetrics",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	// WebSocket routes (registers the /ws upgrade guard)
	sessions.RegisterRoutes(app)
	app.Get("/ws/monitor", monitor.Handler())

	// API routes
	api := app.Group("/api")
	sessions.RegisterAPIRoutes(api)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the monitor hub and listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	go s.monitor.Run()
	s.logger.Info("listening", "addr", addr, "version", s.version)
	return s.app.Listen(addr)
}

// Serve is like Start but uses an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	go s.monitor.Run()
	s.logger.Info("listening", "addr", ln.Addr().String(), "version", s.version)
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server and disconnects monitor clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.monitor.Stop()
	return s.app.ShutdownWithContext(ctx)
}
