// facereplay: streams recorded landmark frames to a facemetrics service.
// Frames are read as JSON lines, one LandmarksData object per line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facemetrics/pkg/protocol"
)

var (
	serverURL = flag.String("url", "ws://localhost:8090/ws/session", "Session WebSocket endpoint")
	sessionID = flag.String("session", "", "Session ID to attach to (default: new session)")
	file      = flag.String("file", "-", "JSON-lines frame file, - for stdin")
	fps       = flag.Float64("fps", 0, "Frames per second (0 = as fast as replies arrive)")
	reset     = flag.Bool("reset", false, "Reset the session before replaying")
	quiet     = flag.Bool("quiet", false, "Only print calibrated frames")
	timeout   = flag.Duration("timeout", 5*time.Second, "Per-message read/write timeout")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "facereplay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	url := *serverURL
	if *sessionID != "" {
		url = strings.TrimRight(url, "/") + "/" + *sessionID
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &replayer{
		conn:    conn,
		out:     os.Stdout,
		timeout: *timeout,
		quiet:   *quiet,
	}
	if *fps > 0 {
		r.interval = time.Duration(float64(time.Second) / *fps)
	}

	if *reset {
		if err := r.reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	start := time.Now()
	sum, err := r.run(ctx, protocol.NewFrameReader(in))

	fmt.Printf("\nsession %s: %d frames sent, %d metrics, %d rejected, calibrated=%v (%s)\n",
		sum.SessionID, sum.Frames, sum.Metrics, sum.Rejected, sum.Calibrated,
		time.Since(start).Round(time.Millisecond))

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
