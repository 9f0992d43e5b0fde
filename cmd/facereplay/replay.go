package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facemetrics/pkg/protocol"
)

// summary totals one replay run.
type summary struct {
	SessionID  string
	Frames     int
	Metrics    int
	Rejected   int
	Calibrated bool
}

// replayer streams frames over a session connection and prints each reply.
type replayer struct {
	conn     *websocket.Conn
	out      io.Writer
	interval time.Duration
	timeout  time.Duration
	quiet    bool
}

// run sends every frame from fr and waits for its reply before sending the
// next one.
func (r *replayer) run(ctx context.Context, fr *protocol.FrameReader) (summary, error) {
	var sum summary

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		frame, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, err
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		msg, err := protocol.NewLandmarksMessage(frame.FrameID, frame.Frame(), frame.Expressions)
		if err != nil {
			return sum, err
		}
		if err := r.write(msg); err != nil {
			return sum, fmt.Errorf("send frame %d: %w", frame.FrameID, err)
		}
		sum.Frames++

		if err := r.await(&sum); err != nil {
			return sum, fmt.Errorf("frame %d: %w", frame.FrameID, err)
		}
	}
}

// reset asks the service to recalibrate and waits for the acknowledgement.
func (r *replayer) reset() error {
	msg, err := protocol.NewResetMessage()
	if err != nil {
		return err
	}
	if err := r.write(msg); err != nil {
		return err
	}
	for {
		reply, err := r.read()
		if err != nil {
			return err
		}
		if reply.Type == protocol.TypeReset {
			return nil
		}
	}
}

// await reads until the reply to the last frame arrives.
func (r *replayer) await(sum *summary) error {
	for {
		reply, err := r.read()
		if err != nil {
			return err
		}

		switch reply.Type {
		case protocol.TypeMetrics:
			md, err := reply.GetMetricsData()
			if err != nil {
				return err
			}
			sum.Metrics++
			sum.SessionID = md.SessionID
			r.printMetrics(md)
			return nil

		case protocol.TypeError:
			ed, err := reply.GetErrorData()
			if err != nil {
				return err
			}
			sum.Rejected++
			fmt.Fprintf(r.out, "frame %-6d rejected  %s: %s\n", ed.FrameID, ed.Code, ed.Message)
			if ed.Code == protocol.CodeSessionBusy {
				return errors.New(ed.Message)
			}
			return nil

		case protocol.TypeCalibrated:
			cd, err := reply.GetCalibratedData()
			if err != nil {
				return err
			}
			sum.Calibrated = true
			b := cd.Baseline
			fmt.Fprintf(r.out, "calibrated baseline: mouth %.2fx%.2f, eyes %.2f (%d samples)\n",
				b.MouthWidth, b.MouthHeight, b.EyeHeight, b.Samples)
		}
	}
}

func (r *replayer) printMetrics(md *protocol.MetricsData) {
	if md.Describe == nil {
		if !r.quiet {
			fmt.Fprintf(r.out, "frame %-6d %s (%d samples)\n", md.FrameID, md.State, md.Samples)
		}
		return
	}

	m := md.Metrics
	fmt.Fprintf(r.out, "frame %-6d mouth %.2f  eyes %.2f  smile %.2f  pose %.1f/%.1f/%.1f  %s\n",
		md.FrameID, m.MouthOpenness, m.EyeOpenness, m.SmileLevel,
		m.HeadPose.Pitch, m.HeadPose.Yaw, m.HeadPose.Roll, md.Describe)
}

func (r *replayer) write(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.conn.SetWriteDeadline(time.Now().Add(r.timeout))
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *replayer) read() (*protocol.Message, error) {
	r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	_, data, err := r.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.ParseMessage(data)
}
