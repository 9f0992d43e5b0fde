// Package protocol defines the WebSocket message types exchanged between
// landmark producers, the facemetrics service and dashboard monitors.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Service messages
	TypeLandmarks MessageType = "landmarks" // One tracked face frame
	TypeReset     MessageType = "reset"     // Discard the baseline and recalibrate

	// Service → Client messages
	TypeMetrics    MessageType = "metrics"    // Per-frame expression metrics
	TypeCalibrated MessageType = "calibrated" // Baseline frozen (sent once)
	TypeError      MessageType = "error"      // Frame or message rejected

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Error codes carried in ErrorData.
const (
	CodeInvalidInput = "invalid_input" // Frame could not be measured
	CodeBadMessage   = "bad_message"   // Envelope or payload did not parse
	CodeSessionBusy  = "session_busy"  // Session already has a live connection
	CodeInternal     = "internal"      // Server side failure
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Service Message Types
// =============================================================================

// LandmarksData carries one frame of tracked face landmarks and, when an
// expression classifier ran on the frame, its confidence scores.
type LandmarksData struct {
	FrameID     uint64                `json:"frame_id,omitempty"`
	Points      []landmark.Point      `json:"points"`
	Expressions expression.Confidence `json:"expressions,omitempty"`
}

// Frame returns the points as a landmark frame.
func (l *LandmarksData) Frame() landmark.Frame {
	return landmark.Frame(l.Points)
}

// =============================================================================
// Service → Client Message Types
// =============================================================================

// MetricsData contains the expression metrics for one processed frame
type MetricsData struct {
	FrameID    uint64                  `json:"frame_id,omitempty"`
	SessionID  string                  `json:"session_id"`
	Sequence   uint64                  `json:"seq"`     // Frames accepted by the engine
	State      string                  `json:"state"`   // "uncalibrated", "calibrated"
	Samples    int                     `json:"samples"` // Calibration samples collected
	Calibrated bool                    `json:"calibrated"`
	Metrics    expression.Metrics      `json:"metrics"`
	Describe   *expression.Description `json:"describe,omitempty"`
}

// CalibratedData announces the frozen neutral baseline
type CalibratedData struct {
	SessionID string              `json:"session_id"`
	Baseline  expression.Baseline `json:"baseline"`
}

// ErrorData describes a rejected frame or message
type ErrorData struct {
	FrameID uint64 `json:"frame_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResetData acknowledges a reset
type ResetData struct {
	SessionID string `json:"session_id"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
