package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager() (*Manager, *harness) {
	h := newHarness(Config{})
	cfg := h.session.cfg
	return NewManager(cfg, h.session.deps), h
}

func TestManager_OpenReusesLiveSession(t *testing.T) {
	m, _ := newTestManager()

	a, err := m.Open("meeting-1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	b, _ := m.Open("meeting-1")
	if a != b {
		t.Error("Open() returned a different session for a live meeting")
	}
	c, _ := m.Open("meeting-2")
	if c == a {
		t.Error("Open() shared a session across meetings")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	a.Stop()

	d, _ := m.Open("meeting-1")
	if d == a {
		t.Error("Open() returned an Ended session")
	}
	if d.Status() != StatusIdle {
		t.Errorf("new session status = %v, want IDLE", d.Status())
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestManager_GetAndClose(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
	if err := m.Close("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close() error = %v, want ErrSessionNotFound", err)
	}

	s, _ := m.Open("meeting-1")
	got, err := m.Get("meeting-1")
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if err := m.Close("meeting-1"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.Status() != StatusEnded {
		t.Errorf("closed session status = %v, want ENDED", s.Status())
	}
	if _, err := m.Get("meeting-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after Close error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	m, _ := newTestManager()

	var sessions []*Session
	for _, id := range []string{"b", "a", "c"} {
		s, _ := m.Open(id)
		sessions = append(sessions, s)
	}
	if err := sessions[0].Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	list := m.List()
	if len(list) != 3 || list[0].MeetingID != "a" || list[2].MeetingID != "c" {
		t.Errorf("List() = %+v, want 3 sessions ordered by meeting", list)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	for _, s := range sessions {
		if s.Status() != StatusEnded {
			t.Errorf("session %s status = %v, want ENDED", s.MeetingID(), s.Status())
		}
	}
	if _, err := m.Open("a"); err == nil {
		t.Error("Open() after Shutdown should fail")
	}
}

func TestManager_ReopenClosesReplacedSession(t *testing.T) {
	m, h := newTestManager()
	h.adapter.block = true

	old, _ := m.Open("meeting-1")
	if err := old.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.device.push([]byte("tail"))
	old.Stop()
	waitFor(t, "final upload", func() bool { return h.adapter.uploadCount() == 1 })

	next, err := m.Open("meeting-1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if next == old {
		t.Fatal("Open() returned the Ended session")
	}
	if got, _ := m.Get("meeting-1"); got != next {
		t.Error("Get() should return the replacement session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer drainCancel()
	if err := old.Drain(drainCtx); err != nil {
		t.Errorf("replaced session still transcribing after Shutdown: %v", err)
	}
	if n := old.feed.CountTitle(TitleTranscriptionFailed); n != 0 {
		t.Errorf("teardown produced %d failure notifications", n)
	}
}

func TestManager_Snapshot(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.Snapshot("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot() error = %v, want ErrSessionNotFound", err)
	}
	s, _ := m.Open("meeting-1")
	snap, err := m.Snapshot("meeting-1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.ID != s.ID() || snap.Status != "IDLE" {
		t.Errorf("Snapshot() = %+v, want id %s IDLE", snap, s.ID())
	}
}
