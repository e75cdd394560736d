package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ondrejvana/rollcall/internal/attendance"
)

// maxConsecutiveFailures is the number of back-to-back frame failures
// tolerated before the session gives up.
const maxConsecutiveFailures = 5

// Status represents the lifecycle state of a capture session.
type Status string

// Status constants define the capture session lifecycle.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// Recognizer matches faces in a frame and records attendance.
type Recognizer interface {
	RecognizeAndMark(ctx context.Context, imageData []byte) ([]attendance.RecognitionResult, error)
}

// Session is a capture loop with an explicit start/stop lifecycle. It
// polls a frame source on a fixed interval, runs recognition on every
// frame, and broadcasts events to listeners.
type Session struct {
	EventBroadcaster

	ID              string
	Status          Status
	StartedAt       time.Time
	StoppedAt       *time.Time
	FramesProcessed int
	FacesSeen       int
	MarkedCount     int
	MarkedIDs       []string
	Error           string

	source     FrameSource
	recognizer Recognizer
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSession creates a capture session. It does not start polling;
// call Start for that.
func NewSession(id string, source FrameSource, recognizer Recognizer, interval time.Duration) *Session {
	return &Session{
		ID:         id,
		Status:     StatusPending,
		source:     source,
		recognizer: recognizer,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// GetStatus returns the current session status.
func (s *Session) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// IsTerminal returns true once the session has stopped or failed.
func (s *Session) IsTerminal() bool {
	status := s.GetStatus()
	return status == StatusStopped || status == StatusFailed
}

// Info is a point-in-time copy of a session's counters, safe to
// serialize while the capture loop keeps running.
type Info struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	FramesProcessed int        `json:"frames_processed"`
	FacesSeen       int        `json:"faces_seen"`
	MarkedCount     int        `json:"marked_count"`
	MarkedIDs       []string   `json:"marked_ids"`
	Error           string     `json:"error,omitempty"`
}

// Snapshot returns a copy of the session's current counters for status
// responses.
func (s *Session) Snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:              s.ID,
		Status:          s.Status,
		StartedAt:       s.StartedAt,
		StoppedAt:       s.StoppedAt,
		FramesProcessed: s.FramesProcessed,
		FacesSeen:       s.FacesSeen,
		MarkedCount:     s.MarkedCount,
		MarkedIDs:       append([]string(nil), s.MarkedIDs...),
		Error:           s.Error,
	}
}

// Start launches the capture loop in a background goroutine. It returns
// an error if the session was already started.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.Status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.ID)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.Status = StatusRunning
	s.StartedAt = time.Now()
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop cancels the capture loop and waits for it to exit. Stopping a
// session that never started or already finished is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

// Wait blocks until the capture loop exits.
func (s *Session) Wait() {
	<-s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.closeListeners()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			s.finish(StatusStopped, "")
			return
		case <-ticker.C:
			err := s.processFrame(ctx)
			if err == nil {
				failures = 0
				continue
			}
			if errors.Is(err, context.Canceled) {
				s.finish(StatusStopped, "")
				return
			}

			failures++
			s.SendEvent(Event{Type: "error", Message: err.Error()})
			if failures >= maxConsecutiveFailures {
				s.finish(StatusFailed, fmt.Sprintf("giving up after %d consecutive failures: %v", failures, err))
				return
			}
		}
	}
}

func (s *Session) processFrame(ctx context.Context) error {
	frame, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching frame: %w", err)
	}

	results, err := s.recognizer.RecognizeAndMark(ctx, frame)
	if err != nil {
		return fmt.Errorf("recognizing frame: %w", err)
	}

	s.mu.Lock()
	s.FramesProcessed++
	s.FacesSeen += len(results)
	for _, r := range results {
		if r.Marked {
			s.MarkedCount++
			s.MarkedIDs = append(s.MarkedIDs, r.StudentID)
		}
	}
	s.mu.Unlock()

	for _, r := range results {
		switch {
		case r.Marked:
			s.SendEvent(Event{Type: "marked", Message: r.Name, Data: r})
		case r.Matched:
			s.SendEvent(Event{Type: "recognized", Message: r.Name, Data: r})
		default:
			s.SendEvent(Event{Type: "unknown_face", Data: r})
		}
	}
	return nil
}

func (s *Session) finish(status Status, errMsg string) {
	now := time.Now()
	s.mu.Lock()
	s.Status = status
	s.StoppedAt = &now
	s.Error = errMsg
	s.mu.Unlock()

	if status == StatusFailed {
		s.SendEvent(Event{Type: "failed", Message: errMsg})
	} else {
		s.SendEvent(Event{Type: "stopped"})
	}
}

// Manager tracks capture sessions by ID.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Add registers a session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get retrieves a session by ID or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Delete removes a session from the manager.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Running returns the first session still in a running state, or nil.
func (m *Manager) Running() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.GetStatus() == StatusRunning {
			return s
		}
	}
	return nil
}
