// Package session runs one expression engine per tracked face and exposes
// sessions over WebSocket and REST.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-facemetrics/pkg/chat"
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// Session is one face being tracked. Frames for a session are processed
// one at a time.
type Session struct {
	ID      string
	Created time.Time

	mu           sync.Mutex
	engine       *expression.Engine
	newEngine    func() (*expression.Engine, error)
	conversation *chat.Conversation
	lastSeen     time.Time
	epoch        int
	live         bool
}

// Info is a snapshot of a session for listings.
type Info struct {
	ID         string    `json:"id"`
	Created    time.Time `json:"created"`
	LastSeen   time.Time `json:"last_seen"`
	State      string    `json:"state"`
	Samples    int       `json:"samples"`
	Frames     uint64    `json:"frames"`
	Epoch      int       `json:"epoch"`
	Live       bool      `json:"live"`
	Calibrated bool      `json:"calibrated"`
}

func newSession(id string, newEngine func() (*expression.Engine, error), conv *chat.Conversation, now time.Time) (*Session, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:           id,
		Created:      now,
		engine:       engine,
		newEngine:    newEngine,
		conversation: conv,
		lastSeen:     now,
	}, nil
}

// Process runs a frame through the session's engine. The returned epoch
// identifies the calibration the result belongs to.
func (s *Session) Process(frame landmark.Frame, conf expression.Confidence) (expression.Result, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	res, err := s.engine.Process(frame, conf)
	return res, s.epoch, err
}

// Reset replaces the engine with a fresh, uncalibrated one and starts a new
// epoch. The old engine is dropped.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, err := s.newEngine()
	if err != nil {
		return err
	}
	s.engine = engine
	s.epoch++
	s.lastSeen = time.Now()
	return nil
}

// Last returns the most recent calibrated metrics.
func (s *Session) Last() (expression.Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Last()
}

// State returns the engine's calibration state.
func (s *Session) State() expression.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// Baseline returns the frozen baseline, or the partial one while calibrating.
func (s *Session) Baseline() expression.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Baseline()
}

// Chat sends text to the session's conversation, enriched with the latest
// calibrated metrics when include is set.
func (s *Session) Chat(ctx context.Context, text string, include bool) (*chat.Response, *expression.Metrics, error) {
	if s.conversation == nil {
		return nil, nil, ErrChatDisabled
	}

	var metrics *expression.Metrics
	if include {
		if m, ok := s.Last(); ok {
			metrics = &m
		}
	}

	resp, err := s.conversation.Send(ctx, text, metrics)
	return resp, metrics, err
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.State()
	return Info{
		ID:         s.ID,
		Created:    s.Created,
		LastSeen:   s.lastSeen,
		State:      state.String(),
		Samples:    s.engine.Baseline().Samples,
		Frames:     s.engine.Frames(),
		Epoch:      s.epoch,
		Live:       s.live,
		Calibrated: state == expression.StateCalibrated,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// acquire marks the session as held by a live connection.
func (s *Session) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		return false
	}
	s.live = true
	s.lastSeen = time.Now()
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	s.live = false
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// idleSince reports whether the session has no live connection and has not
// been used since before cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.live && s.lastSeen.Before(cutoff)
}
