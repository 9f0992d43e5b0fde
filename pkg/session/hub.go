package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facemetrics/pkg/chat"
	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/hub"
	"github.com/teslashibe/go-facemetrics/pkg/protocol"
	"github.com/teslashibe/go-facemetrics/pkg/recorder"
)

const maxIDLength = 128

// Options configures a Hub.
type Options struct {
	// Engine is the configuration every new session's engine starts from.
	Engine expression.Config

	// Recorder stores calibrated metrics. Nil disables recording.
	Recorder recorder.Recorder

	// Monitor receives a copy of every metrics message. Nil disables it.
	Monitor *hub.Hub

	// Chat enables per-session conversations when non-nil.
	Chat         chat.Completer
	SystemPrompt string
	ChatHistory  int

	// HistoryLimit caps samples returned by the history endpoint.
	HistoryLimit int

	// IdleTimeout is how long a session without a live connection is kept.
	// Zero keeps sessions until they are deleted.
	IdleTimeout time.Duration

	Logger *slog.Logger
}

// Hub manages expression sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	engineCfg    expression.Config
	recorder     recorder.Recorder
	monitor      *hub.Hub
	completer    chat.Completer
	systemPrompt string
	chatHistory  int
	historyLimit int
	idleTimeout  time.Duration
	logger       *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesProcessed  atomic.Uint64
	framesRejected   atomic.Uint64
	calibrations     atomic.Uint64
	recordErrors     atomic.Uint64
}

// NewHub creates a session hub.
func NewHub(opts Options) (*Hub, error) {
	if err := opts.Engine.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.Nop{}
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = chat.DefaultSystemPrompt
	}
	if opts.ChatHistory <= 0 {
		opts.ChatHistory = chat.DefaultConfig().HistoryLimit
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}

	return &Hub{
		sessions:     make(map[string]*Session),
		engineCfg:    opts.Engine,
		recorder:     opts.Recorder,
		monitor:      opts.Monitor,
		completer:    opts.Chat,
		systemPrompt: opts.SystemPrompt,
		chatHistory:  opts.ChatHistory,
		historyLimit: opts.HistoryLimit,
		idleTimeout:  opts.IdleTimeout,
		logger:       opts.Logger.With("component", "session.hub"),
	}, nil
}

// Create starts a new session. An empty id generates one.
func (h *Hub) Create(id string) (*Session, error) {
	if id == "" {
		id = generateSessionID()
	}
	if len(id) > maxIDLength {
		return nil, ErrInvalidID
	}

	var conv *chat.Conversation
	if h.completer != nil {
		conv = chat.NewConversation(h.completer, h.systemPrompt, h.chatHistory)
	}

	engineLogger := h.logger.With("session", id)
	s, err := newSession(id, func() (*expression.Engine, error) {
		return expression.NewEngine(h.engineCfg, expression.WithLogger(engineLogger))
	}, conv, time.Now())
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if _, ok := h.sessions[id]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	h.sessions[id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("session created", "session", id, "total", count)
	return s, nil
}

// Get returns a session by ID.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove deletes a session.
func (h *Hub) Remove(id string) error {
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	count := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	h.logger.Info("session removed", "session", id, "total", count)
	return nil
}

// attach binds a live connection to the session with the given id,
// creating it when needed. owned reports whether the session was created
// for this connection and should be removed with it.
func (h *Hub) attach(id string) (s *Session, owned bool, err error) {
	if id != "" {
		if s, err = h.Get(id); err == nil {
			if !s.acquire() {
				return nil, false, fmt.Errorf("%w: %s", ErrSessionBusy, id)
			}
			return s, false, nil
		}
	}

	s, err = h.Create(id)
	if errors.Is(err, ErrSessionExists) {
		// Lost a race with another creator; attach to theirs.
		return h.attach(id)
	}
	if err != nil {
		return nil, false, err
	}
	s.acquire()
	return s, true, nil
}

func (h *Hub) detach(s *Session, owned bool) {
	s.release()
	if owned {
		h.Remove(s.ID)
	}
}

// Process runs a landmark frame through a session and fans the result out
// to the recorder and monitors.
func (h *Hub) Process(ctx context.Context, s *Session, data *protocol.LandmarksData) (protocol.MetricsData, expression.Result, error) {
	res, epoch, err := s.Process(data.Frame(), data.Expressions)
	if err != nil {
		h.framesRejected.Add(1)
		h.logger.Debug("frame rejected", "session", s.ID, "frame_id", data.FrameID, "error", err)
		return protocol.MetricsData{}, res, err
	}
	h.framesProcessed.Add(1)

	md := protocol.NewMetricsData(s.ID, data.FrameID, res)

	if res.JustCalibrated {
		h.calibrations.Add(1)
		h.logger.Info("session calibrated", "session", s.ID, "epoch", epoch)
		if msg, err := protocol.NewCalibratedMessage(s.ID, s.Baseline()); err == nil {
			h.publish(msg)
		}
	}

	if !res.Suppressed() {
		sample := recorder.Sample{
			SessionID:  s.ID,
			Epoch:      epoch,
			Sequence:   res.Frame,
			FrameID:    data.FrameID,
			RecordedAt: time.Now().UTC(),
			Metrics:    res.Metrics,
		}
		if err := h.recorder.Record(ctx, sample); err != nil {
			h.recordErrors.Add(1)
			h.logger.Warn("record sample failed", "session", s.ID, "seq", res.Frame, "error", err)
		}
	}

	msg, err := protocol.NewMessage(protocol.TypeMetrics, md)
	if err == nil {
		h.publish(msg)
	}

	return md, res, nil
}

// publish forwards a message to monitor clients.
func (h *Hub) publish(msg *protocol.Message) {
	if h.monitor == nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		h.logger.Warn("encode monitor message failed", "type", msg.Type, "error", err)
		return
	}
	h.monitor.Broadcast(data)
}

// History returns recorded samples for a session, oldest first.
func (h *Hub) History(ctx context.Context, id string, limit int) ([]recorder.Sample, error) {
	if _, err := h.Get(id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}
	return h.recorder.History(ctx, id, limit)
}

// ChatEnabled reports whether sessions carry a conversation.
func (h *Hub) ChatEnabled() bool {
	return h.completer != nil
}

// Reap removes sessions that have been idle longer than the idle timeout
// and returns how many were removed.
func (h *Hub) Reap(now time.Time) int {
	if h.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-h.idleTimeout)

	h.mu.Lock()
	var reaped []string
	for id, s := range h.sessions {
		if s.idleSince(cutoff) {
			delete(h.sessions, id)
			reaped = append(reaped, id)
		}
	}
	h.mu.Unlock()

	for _, id := range reaped {
		h.logger.Info("session expired", "session", id)
	}
	return len(reaped)
}

// RunReaper calls Reap every interval until ctx is done.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) {
	if h.idleTimeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = h.idleTimeout / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Reap(now)
		}
	}
}

// SessionCount returns the number of sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions returns info about every session, ordered by creation time.
func (h *Hub) Sessions() []Info {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Stats contains hub statistics
type Stats struct {
	Sessions         int    `json:"sessions"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesProcessed  uint64 `json:"frames_processed"`
	FramesRejected   uint64 `json:"frames_rejected"`
	Calibrations     uint64 `json:"calibrations"`
	RecordErrors     uint64 `json:"record_errors"`
	MonitorClients   int    `json:"monitor_clients"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	st := Stats{
		Sessions:         h.SessionCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesProcessed:  h.framesProcessed.Load(),
		FramesRejected:   h.framesRejected.Load(),
		Calibrations:     h.calibrations.Load(),
		RecordErrors:     h.recordErrors.Load(),
	}
	if h.monitor != nil {
		st.MonitorClients = h.monitor.ClientCount()
	}
	return st
}

func generateSessionID() string {
	return uuid.NewString()
}
