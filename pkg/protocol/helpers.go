package protocol

import (
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message. conf may be nil.
func NewLandmarksMessage(frameID uint64, frame landmark.Frame, conf expression.Confidence) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksData{
		FrameID:     frameID,
		Points:      frame,
		Expressions: conf,
	})
}

// NewResetMessage creates a reset request
func NewResetMessage() (*Message, error) {
	return NewMessage(TypeReset, nil)
}

// NewResetAckMessage acknowledges a reset for a session
func NewResetAckMessage(sessionID string) (*Message, error) {
	return NewMessage(TypeReset, ResetData{SessionID: sessionID})
}

// NewMetricsData builds the metrics payload for an engine result
func NewMetricsData(sessionID string, frameID uint64, res expression.Result) MetricsData {
	d := MetricsData{
		FrameID:    frameID,
		SessionID:  sessionID,
		Sequence:   res.Frame,
		State:      res.State.String(),
		Samples:    res.Samples,
		Calibrated: res.State == expression.StateCalibrated,
		Metrics:    res.Metrics,
	}
	if !res.Suppressed() {
		desc := expression.Describe(res.Metrics)
		d.Describe = &desc
	}
	return d
}

// NewMetricsMessage creates a metrics message for an engine result
func NewMetricsMessage(sessionID string, frameID uint64, res expression.Result) (*Message, error) {
	return NewMessage(TypeMetrics, NewMetricsData(sessionID, frameID, res))
}

// NewCalibratedMessage creates a calibration-complete message
func NewCalibratedMessage(sessionID string, b expression.Baseline) (*Message, error) {
	return NewMessage(TypeCalibrated, CalibratedData{
		SessionID: sessionID,
		Baseline:  b,
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(frameID uint64, code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{
		FrameID: frameID,
		Code:    code,
		Message: message,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: ts,
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts landmark data from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMetricsData extracts metrics data from a message
func (m *Message) GetMetricsData() (*MetricsData, error) {
	var data MetricsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCalibratedData extracts calibration data from a message
func (m *Message) GetCalibratedData() (*CalibratedData, error) {
	var data CalibratedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
