package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"live-interview-service/internal/observability/logging"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager keeps at most one live session per meeting.
type Manager struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session // meeting id -> session
	closed   bool

	// retiring tracks Ended sessions replaced by Open whose teardown is
	// still running.
	retiring sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.WithComponent("session-manager"),
		sessions: make(map[string]*Session),
	}
}

// Open returns the meeting's session, creating a new Idle one when none
// exists or the previous one has Ended. A replaced session is closed in the
// background; Shutdown waits for it.
func (m *Manager) Open(meetingID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionEnded
	}
	prev, ok := m.sessions[meetingID]
	if ok && prev.Status() != StatusEnded {
		return prev, nil
	}

	s := New(uuid.NewString(), meetingID, m.cfg, m.deps)
	m.sessions[meetingID] = s
	if prev != nil {
		m.retire(prev)
	}
	m.logger.Info().
		Str("sessionId", s.ID()).
		Str("meetingId", meetingID).
		Msg("Session created")
	return s, nil
}

// retire tears down a replaced session. Called with m.mu held; Close runs
// on its own goroutine so Open does not wait for the final segment.
func (m *Manager) retire(s *Session) {
	m.retiring.Add(1)
	go func() {
		defer m.retiring.Done()
		s.Close()
		m.logger.Debug().
			Str("sessionId", s.ID()).
			Str("meetingId", s.MeetingID()).
			Msg("Replaced session closed")
	}()
}

// Get returns the meeting's current session, live or Ended.
func (m *Manager) Get(meetingID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[meetingID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Snapshot returns a view of the meeting's current session.
func (m *Manager) Snapshot(meetingID string) (Snapshot, error) {
	s, err := m.Get(meetingID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Close tears the meeting's session down and forgets it.
func (m *Manager) Close(meetingID string) error {
	m.mu.Lock()
	s, ok := m.sessions[meetingID]
	delete(m.sessions, meetingID)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.logger.Info().
		Str("sessionId", s.ID()).
		Str("meetingId", meetingID).
		Msg("Session closed")
	return nil
}

// List returns a snapshot of every session ordered by meeting id.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingID < out[j].MeetingID })
	return out
}

// Shutdown closes every session in parallel, including replaced sessions
// still tearing down. It returns ctx.Err() if ctx is done before all
// sessions have drained; the closes keep running.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		g.Go(func() error {
			s.Close()
			return nil
		})
	}
	g.Go(func() error {
		m.retiring.Wait()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		m.logger.Info().Int("sessions", len(sessions)).Msg("All sessions closed")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
