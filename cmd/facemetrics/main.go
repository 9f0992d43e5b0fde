// facemetrics: facial expression metrics service.
// Accepts landmark frames over WebSocket or HTTP and returns calibrated
// mouth, eye, smile and head pose metrics per session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-facemetrics/internal/config"
	"github.com/teslashibe/go-facemetrics/internal/log"
	"github.com/teslashibe/go-facemetrics/pkg/chat"
	"github.com/teslashibe/go-facemetrics/pkg/hub"
	"github.com/teslashibe/go-facemetrics/pkg/recorder"
	"github.com/teslashibe/go-facemetrics/pkg/session"
	"github.com/teslashibe/go-facemetrics/pkg/web"
)

var (
	version = "1.0.0"
	port    = flag.String("port", "", "HTTP server port (overrides FACEMETRICS_PORT)")
	debug   = flag.Bool("debug", false, "Enable debug logging")
	dbPath  = flag.String("db", "", "SQLite history path (overrides FACEMETRICS_DB_PATH)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "facemetrics: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}

	var rec recorder.Recorder = recorder.Nop{}
	if cfg.DBPath != "" {
		db, err := recorder.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		rec = db
		logger.Info("history enabled", "path", cfg.DBPath)
	}
	defer rec.Close()

	var completer chat.Completer
	if cfg.ChatEnabled() {
		client, err := chat.NewClient(
			chat.WithBaseURL(cfg.ChatBaseURL),
			chat.WithAPIKey(cfg.OpenAIKey),
			chat.WithModel(cfg.ChatModel),
			chat.WithMaxTokens(cfg.ChatMaxTokens),
			chat.WithTimeout(cfg.ChatTimeout),
			chat.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		defer client.Close()
		completer = client
		logger.Info("chat enabled", "model", cfg.ChatModel)
	}

	monitor := hub.New("monitor", logger)

	sessions, err := session.NewHub(session.Options{
		Engine:       engineCfg,
		Recorder:     rec,
		Monitor:      monitor,
		Chat:         completer,
		SystemPrompt: cfg.ChatSystemText,
		HistoryLimit: cfg.HistoryLimit,
		IdleTimeout:  cfg.SessionIdle,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	server := web.NewServer(sessions, monitor, web.Config{
		Version: version,
		Debug:   cfg.Debug,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.RunReaper(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting facemetrics",
			"version", version,
			"websocket", "ws://localhost:"+cfg.Port+"/ws/session",
			"monitor", "ws://localhost:"+cfg.Port+"/ws/monitor",
			"api", "http://localhost:"+cfg.Port+"/api/sessions",
		)
		errc <- server.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	return nil
}
