// Package recorder persists calibrated expression metrics per session so
// that dashboards and chat enrichment can look back over a session.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
)

var (
	// ErrDuplicate is returned when a sample with the same session, epoch
	// and sequence is already stored.
	ErrDuplicate = errors.New("recorder: duplicate sample")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("recorder: closed")
)

// Sample is one recorded metrics frame.
type Sample struct {
	SessionID string `json:"session_id"`

	// Epoch counts engine resets within the session; Sequence restarts at 1
	// in every epoch.
	Epoch    int    `json:"epoch"`
	Sequence uint64 `json:"seq"`
	FrameID  uint64 `json:"frame_id,omitempty"`

	RecordedAt time.Time          `json:"recorded_at"`
	Metrics    expression.Metrics `json:"metrics"`
}

// Recorder stores and retrieves samples.
type Recorder interface {
	// Record stores one sample.
	Record(ctx context.Context, s Sample) error

	// History returns up to limit of the most recent samples for a session,
	// oldest first. A non-positive limit returns every sample.
	History(ctx context.Context, sessionID string, limit int) ([]Sample, error)

	// Close releases the underlying storage.
	Close() error
}

// Nop discards samples. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Sample) error { return nil }

func (Nop) History(context.Context, string, int) ([]Sample, error) { return nil, nil }

func (Nop) Close() error { return nil }
