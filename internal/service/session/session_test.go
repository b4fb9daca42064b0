package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"live-interview-service/internal/models"
	"live-interview-service/internal/service/audio"
	"live-interview-service/internal/service/metadata"
	"live-interview-service/internal/service/segment"
	"live-interview-service/internal/service/stt"
	"live-interview-service/internal/service/suggestion"
)

// stubContext hands out a single controllable device
type stubContext struct {
	dev *stubDevice
}

func (c *stubContext) Devices() ([]audio.DeviceInfo, error) { return nil, nil }

func (c *stubContext) NewCapture(_ *audio.DeviceInfo, _ audio.CaptureConfig) (audio.CaptureDevice, error) {
	return c.dev, nil
}

func (c *stubContext) Close() {}

type stubDevice struct {
	mu      sync.Mutex
	cb      audio.DataCallback
	running bool
	closed  bool
}

func (d *stubDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	return nil
}

func (d *stubDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
}

func (d *stubDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *stubDevice) SetCallback(cb audio.DataCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

func (d *stubDevice) ClearCallback() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = nil
}

// push delivers audio if the device is running
func (d *stubDevice) push(data []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.cb == nil {
		return false
	}
	d.cb(data, uint32(len(data)/2))
	return true
}

func (d *stubDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// scriptedAdapter names uploads after the audio bytes, so a test can script
// outcomes per segment
type scriptedAdapter struct {
	mu      sync.Mutex
	failJob map[string]bool
	block   bool // Poll waits for ctx
	uploads []string
}

func (a *scriptedAdapter) Name() string { return "scripted" }

func (a *scriptedAdapter) Upload(ctx context.Context, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, string(data))
	return "ref:" + string(data), nil
}

func (a *scriptedAdapter) Submit(ctx context.Context, ref string) (string, error) {
	return "job:" + strings.TrimPrefix(ref, "ref:"), nil
}

func (a *scriptedAdapter) Poll(ctx context.Context, jobID string) (stt.JobStatus, error) {
	name := strings.TrimPrefix(jobID, "job:")
	a.mu.Lock()
	block, fail := a.block, a.failJob[name]
	a.mu.Unlock()

	if block {
		<-ctx.Done()
		return stt.JobStatus{}, ctx.Err()
	}
	if fail {
		return stt.JobStatus{State: stt.JobFailed, Error: "bad audio"}, nil
	}
	return stt.JobStatus{State: stt.JobCompleted, Text: "text " + name}, nil
}

func (a *scriptedAdapter) uploadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.uploads)
}

// countingSuggester records requests and answers with one question each
type countingSuggester struct {
	mu       sync.Mutex
	requests []suggestion.Request
	err      error
}

func (c *countingSuggester) Suggest(ctx context.Context, req suggestion.Request) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return []string{fmt.Sprintf("Follow-up %d?", len(c.requests))}, nil
}

func (c *countingSuggester) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// failingPublisher rejects every event
type failingPublisher struct {
	mu    sync.Mutex
	calls []string
}

func (p *failingPublisher) record(kind string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, kind)
	return errors.New("broker unavailable")
}

func (p *failingPublisher) PublishTranscript(context.Context, models.SegmentTranscribed) error {
	return p.record("transcript")
}

func (p *failingPublisher) PublishSuggestions(context.Context, models.SuggestionsAppended) error {
	return p.record("suggestions")
}

func (p *failingPublisher) PublishSession(context.Context, models.SessionStatus) error {
	return p.record("session")
}

func (p *failingPublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == kind {
			n++
		}
	}
	return n
}

type harness struct {
	session   *Session
	device    *stubDevice
	adapter   *scriptedAdapter
	suggester *countingSuggester
}

func newHarness(cfg Config) *harness {
	h := &harness{
		device:    &stubDevice{},
		adapter:   &scriptedAdapter{failJob: map[string]bool{}},
		suggester: &countingSuggester{},
	}
	if cfg.Audio.SegmentInterval == 0 {
		cfg.Audio.SegmentInterval = time.Hour
	}
	if cfg.Audio.Format == "" {
		cfg.Audio.Format = audio.FormatPCM
	}
	if cfg.SuggestionInterval == 0 {
		cfg.SuggestionInterval = time.Hour
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	meta := metadata.NewStatic(metadata.DemoMeeting)

	h.session = New("session-1", "meeting-1", cfg, Deps{
		Audio: func() (audio.Context, error) {
			return &stubContext{dev: h.device}, nil
		},
		STT:         stt.NewClient(h.adapter, time.Millisecond),
		Suggestions: h.suggester,
		Metadata:    meta,
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func drain(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
}

func seg(index int, final bool) segment.AudioSegment {
	return segment.AudioSegment{
		SequenceIndex: index,
		Bytes:         []byte(fmt.Sprintf("seg%d", index)),
		CapturedAt:    time.Now(),
		IsFinal:       final,
	}
}

func TestSession_StartStop(t *testing.T) {
	h := newHarness(Config{})
	s := h.session

	if s.Status() != StatusIdle {
		t.Fatalf("new session status = %v, want IDLE", s.Status())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Status() != StatusRecording {
		t.Errorf("status = %v, want RECORDING", s.Status())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}

	s.Stop()
	if s.Status() != StatusEnded {
		t.Errorf("status = %v, want ENDED", s.Status())
	}
	if !h.device.isClosed() {
		t.Error("device should be released after Stop")
	}
	s.Stop()

	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Start() after Stop error = %v, want ErrSessionEnded", err)
	}
	s.Close()
	s.Close()
}

func TestSession_StopIdleIsNoop(t *testing.T) {
	h := newHarness(Config{})
	h.session.Stop()
	if h.session.Status() != StatusIdle {
		t.Errorf("status = %v, want IDLE", h.session.Status())
	}
	h.session.Close()
	if h.session.Status() != StatusEnded {
		t.Errorf("status after Close = %v, want ENDED", h.session.Status())
	}
}

func TestSession_DeviceUnavailable(t *testing.T) {
	h := newHarness(Config{})
	h.session.deps.Audio = func() (audio.Context, error) {
		return nil, errors.New("permission denied")
	}

	err := h.session.Start(context.Background())
	if !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
	if h.session.Status() != StatusIdle {
		t.Errorf("status = %v, want IDLE", h.session.Status())
	}
	if n := h.session.feed.CountTitle(TitleDeviceUnavailable); n != 1 {
		t.Errorf("device notifications = %d, want 1", n)
	}
	if snap := h.session.Snapshot(); snap.Segments != 0 {
		t.Errorf("segments = %d, want 0", snap.Segments)
	}

	time.Sleep(20 * time.Millisecond)
	if n := h.adapter.uploadCount(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
	if n := h.suggester.count(); n != 0 {
		t.Errorf("suggestion requests = %d, want 0", n)
	}
	h.session.Close()
}

func TestSession_StartThenStopIssuesNoRequests(t *testing.T) {
	h := newHarness(Config{})
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
	drain(t, s)
	time.Sleep(20 * time.Millisecond)

	if n := h.suggester.count(); n != 0 {
		t.Errorf("suggestion requests = %d, want 0", n)
	}
	// The final segment is empty and never sent.
	if n := h.adapter.uploadCount(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
	if n := s.Snapshot().Segments; n != 1 {
		t.Errorf("segments = %d, want only the final flush", n)
	}
	s.Close()
}

func TestSession_ElapsedClampsAtLimit(t *testing.T) {
	h := newHarness(Config{DurationLimitSeconds: 3})
	s := h.session

	s.Tick()
	if s.Elapsed() != 0 {
		t.Errorf("Tick() while Idle advanced the clock to %d", s.Elapsed())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		s.Tick()
	}

	snap := s.Snapshot()
	if snap.ElapsedSeconds != 3 {
		t.Errorf("elapsed = %d, want 3", snap.ElapsedSeconds)
	}
	if snap.Status != "RECORDING" {
		t.Errorf("status = %s, want RECORDING past the limit", snap.Status)
	}
	if snap.Elapsed != "00:03 / 00:03" {
		t.Errorf("elapsed display = %q", snap.Elapsed)
	}
	if snap.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", snap.RemainingSeconds)
	}

	s.Stop()
	s.Tick()
	if s.Elapsed() != 3 {
		t.Errorf("Tick() after Stop changed elapsed to %d", s.Elapsed())
	}
	s.Close()
}

func TestSession_TickTimer(t *testing.T) {
	h := newHarness(Config{TickInterval: 5 * time.Millisecond, DurationLimitSeconds: 1800})
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "elapsed to advance", func() bool { return s.Elapsed() >= 3 })
	s.Stop()

	frozen := s.Elapsed()
	time.Sleep(30 * time.Millisecond)
	if s.Elapsed() != frozen {
		t.Errorf("elapsed moved after Stop: %d -> %d", frozen, s.Elapsed())
	}
	s.Close()
}

func TestSession_FailedSegmentLeavesGap(t *testing.T) {
	h := newHarness(Config{})
	h.adapter.failJob["seg2"] = true
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Results land out of order.
	for _, i := range []int{4, 1, 3, 0, 2} {
		s.onSegment(seg(i, false))
	}

	waitFor(t, "segments to settle", func() bool {
		snap := s.Transcript()
		return len(snap.Segments) == 4 && len(snap.Failed) == 1
	})

	snap := s.Transcript()
	want := "text seg0 text seg1 text seg3 text seg4"
	if snap.FullText != want {
		t.Errorf("FullText = %q, want %q", snap.FullText, want)
	}
	if len(snap.Failed) != 1 || snap.Failed[0] != 2 {
		t.Errorf("Failed = %v, want [2]", snap.Failed)
	}

	var failures []string
	for _, n := range s.Notifications(0) {
		if n.Title == TitleTranscriptionFailed {
			failures = append(failures, n.Description)
		}
	}
	if len(failures) != 1 {
		t.Fatalf("transcription failure notifications = %d, want 1", len(failures))
	}
	if !strings.Contains(failures[0], "Segment 2") || !strings.Contains(failures[0], "job") {
		t.Errorf("failure description = %q, want segment 2 at job stage", failures[0])
	}
	if s.Status() != StatusRecording {
		t.Errorf("status = %v, want RECORDING after a segment failure", s.Status())
	}
	s.Close()
}

func TestSession_EmptySegmentNotSent(t *testing.T) {
	h := newHarness(Config{})
	s := h.session
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.onSegment(segment.AudioSegment{SequenceIndex: 0})
	time.Sleep(20 * time.Millisecond)
	if n := h.adapter.uploadCount(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
	s.Close()
}

func TestSession_NonFinalDiscardedAfterStop(t *testing.T) {
	h := newHarness(Config{})
	h.adapter.block = true
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.onSegment(seg(0, false))
	waitFor(t, "upload", func() bool { return h.adapter.uploadCount() == 1 })

	s.Stop()
	drain(t, s)

	if text := s.Transcript().FullText; text != "" {
		t.Errorf("FullText = %q, want empty", text)
	}
	if n := s.feed.CountTitle(TitleTranscriptionFailed); n != 0 {
		t.Errorf("cancellation produced %d failure notifications", n)
	}
	s.Close()
}

func TestSession_FinalSegmentResolvesAfterStop(t *testing.T) {
	h := newHarness(Config{})
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.device.push([]byte("tail")) {
		t.Fatal("device not running")
	}
	s.Stop()
	drain(t, s)

	text, ok := s.transcript.Text(0)
	if !ok || text != "text tail" {
		t.Errorf("final segment text = %q, %v, want %q", text, ok, "text tail")
	}
	s.Close()
}

func TestSession_PublishFailuresDoNotAffectSession(t *testing.T) {
	h := newHarness(Config{})
	pub := &failingPublisher{}
	h.session.deps.Events = pub
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.device.push([]byte("tail"))
	s.Stop()
	drain(t, s)

	if s.Status() != StatusEnded {
		t.Errorf("status = %v, want ENDED", s.Status())
	}
	if text := s.Transcript().FullText; text != "text tail" {
		t.Errorf("FullText = %q, want %q", text, "text tail")
	}
	if pub.count("transcript") != 1 {
		t.Errorf("transcript events attempted = %d, want 1", pub.count("transcript"))
	}
	if pub.count("session") == 0 {
		t.Error("expected session status events to be attempted")
	}
	if n := s.feed.CountTitle(TitleTranscriptionFailed); n != 0 {
		t.Errorf("publish failures produced %d transcription notifications", n)
	}
	s.Close()
}

func TestSession_CloseCancelsFinalSegment(t *testing.T) {
	h := newHarness(Config{})
	h.adapter.block = true
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.device.push([]byte("tail"))
	s.Stop()
	waitFor(t, "final upload", func() bool { return h.adapter.uploadCount() == 1 })

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}

	if text := s.Transcript().FullText; text != "" {
		t.Errorf("FullText = %q, want empty after teardown", text)
	}
	if n := s.feed.CountTitle(TitleTranscriptionFailed); n != 0 {
		t.Errorf("teardown produced %d failure notifications", n)
	}
}

func TestSession_SegmentsAfterStop(t *testing.T) {
	h := newHarness(Config{Audio: audio.Config{SegmentInterval: 10 * time.Millisecond}})
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stop := make(chan struct{})
	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		for {
			select {
			case <-stop:
				return
			default:
				h.device.push([]byte("ab"))
				time.Sleep(time.Millisecond)
			}
		}
	}()

	waitFor(t, "a few segments", func() bool { return s.Snapshot().Segments >= 3 })
	s.Stop()
	close(stop)
	<-pushed
	drain(t, s)

	segments := s.Snapshot().Segments
	uploads := h.adapter.uploadCount()
	time.Sleep(50 * time.Millisecond)

	if got := s.Snapshot().Segments; got != segments {
		t.Errorf("segments grew after Stop: %d -> %d", segments, got)
	}
	if got := h.adapter.uploadCount(); got != uploads {
		t.Errorf("uploads grew after Stop: %d -> %d", uploads, got)
	}
	if uploads > segments {
		t.Errorf("uploads = %d, more than %d segments", uploads, segments)
	}

	// Every merged index is one the capture loop issued.
	for _, e := range s.Transcript().Segments {
		if e.SequenceIndex < 0 || e.SequenceIndex >= segments {
			t.Errorf("merged index %d outside [0, %d)", e.SequenceIndex, segments)
		}
	}
	s.Close()
}

func TestSession_SuggestionsOnGrowth(t *testing.T) {
	h := newHarness(Config{})
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	seeded := len(metadata.DemoMeeting.ExpectedQuestions)
	if got := len(s.Suggestions()); got != seeded {
		t.Fatalf("seeded suggestions = %d, want %d", got, seeded)
	}

	s.onSegment(seg(0, false))
	waitFor(t, "suggestion", func() bool { return len(s.Suggestions()) > seeded })

	h.suggester.mu.Lock()
	req := h.suggester.requests[0]
	h.suggester.mu.Unlock()
	if req.Role != metadata.DemoMeeting.Title {
		t.Errorf("request role = %q, want %q", req.Role, metadata.DemoMeeting.Title)
	}
	if req.Transcript != "text seg0" {
		t.Errorf("request transcript = %q, want %q", req.Transcript, "text seg0")
	}
	if got := s.Suggestions()[seeded]; got != "Follow-up 1?" {
		t.Errorf("appended suggestion = %q", got)
	}
	s.Close()
}

func TestSession_SuggestionFailureNotified(t *testing.T) {
	h := newHarness(Config{SuggestionInterval: 5 * time.Millisecond})
	h.suggester.err = errors.New("upstream 502")
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "failure notification", func() bool {
		return s.feed.CountTitle(TitleSuggestionsFailed) > 0
	})
	if s.Status() != StatusRecording {
		t.Errorf("status = %v, want RECORDING", s.Status())
	}
	s.Close()
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, id string) (metadata.Meeting, error) {
	return metadata.Meeting{}, metadata.ErrMeetingNotFound
}

func TestSession_MetadataFailureIsNotFatal(t *testing.T) {
	h := newHarness(Config{})
	h.session.deps.Metadata = failingFetcher{}
	s := h.session

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Status() != StatusRecording {
		t.Errorf("status = %v, want RECORDING", s.Status())
	}
	if n := s.feed.CountTitle(TitleMetadataUnavailable); n != 1 {
		t.Errorf("metadata notifications = %d, want 1", n)
	}
	s.Close()
}

func TestSession_QuestionCursorAndNotes(t *testing.T) {
	h := newHarness(Config{})
	s := h.session
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	total := len(metadata.DemoMeeting.ExpectedQuestions)
	if q := s.PrevQuestion(); q.Index != 0 {
		t.Errorf("Prev at start index = %d, want 0", q.Index)
	}
	for i := 0; i < total+2; i++ {
		s.NextQuestion()
	}
	q := s.CurrentQuestion()
	if q.Index != total-1 || q.Total != total {
		t.Errorf("cursor = %d/%d, want %d/%d", q.Index, q.Total, total-1, total)
	}
	if q.Text != metadata.DemoMeeting.ExpectedQuestions[total-1] {
		t.Errorf("current question = %q", q.Text)
	}

	s.SetNotes("strong on testing")
	if s.Notes() != "strong on testing" {
		t.Errorf("Notes() = %q", s.Notes())
	}
	if n := s.feed.CountTitle(TitleNotesSaved); n != 1 {
		t.Errorf("notes notifications = %d, want 1", n)
	}
	s.Close()
}
