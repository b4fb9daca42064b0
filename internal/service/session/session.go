// Package session implements the live interview session: the
// Idle/Recording/Ended lifecycle that owns the microphone, the timers and
// every in-flight transcription and suggestion request.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-interview-service/internal/models"
	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/observability/metrics"
	"live-interview-service/internal/service/audio"
	"live-interview-service/internal/service/metadata"
	"live-interview-service/internal/service/notify"
	"live-interview-service/internal/service/segment"
	"live-interview-service/internal/service/stt"
	"live-interview-service/internal/service/suggestion"
	"live-interview-service/internal/service/transcript"
)

// Notification titles.
const (
	TitleDeviceUnavailable   = "Microphone unavailable"
	TitleTranscriptionFailed = "Transcription failed"
	TitleSuggestionsFailed   = "Suggestions unavailable"
	TitleMetadataUnavailable = "Interview details unavailable"
	TitleRecordingStarted    = "Recording started"
	TitleRecordingStopped    = "Recording stopped"
	TitleNotesSaved          = "Notes saved"
)

const (
	DefaultDurationLimit      = 30 * 60
	DefaultTickInterval       = time.Second
	DefaultSuggestionInterval = suggestion.DefaultInterval
)

// Config holds the cadences and limits of a session.
type Config struct {
	TickInterval         time.Duration
	SuggestionInterval   time.Duration
	DurationLimitSeconds int
	Audio                audio.Config
}

// Publisher is the subset of events.Publisher a session emits to.
type Publisher interface {
	PublishTranscript(ctx context.Context, ev models.SegmentTranscribed) error
	PublishSuggestions(ctx context.Context, ev models.SuggestionsAppended) error
	PublishSession(ctx context.Context, ev models.SessionStatus) error
}

// Deps are the collaborators of a session. Metadata, Notifier and Events
// are optional.
type Deps struct {
	Audio       audio.Opener
	STT         *stt.Client
	Suggestions suggestion.Client
	Metadata    metadata.Fetcher
	Notifier    notify.Sink
	Events      Publisher
}

// Session is one live interview. All methods are safe for concurrent use.
type Session struct {
	id        string
	meetingID string
	cfg       Config
	deps      Deps
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	transcript  *transcript.State
	suggestions *suggestion.List
	feed        *notify.Feed
	notifier    notify.Sink

	// lifecycleMu serializes Start, Stop and Close.
	lifecycleMu sync.Mutex

	// mu guards the fields below.
	mu         sync.RWMutex
	status     Status
	startedAt  time.Time
	endedAt    time.Time
	elapsed    int
	meeting    metadata.Meeting
	metaLoaded bool
	notes      string
	tornDown   bool
	liveCtx    context.Context
	liveCancel context.CancelFunc
	capture    *audio.Loop
	refresher  *suggestion.Refresher

	// finalCtx outlives Stop so the final segment can still resolve.
	finalCtx    context.Context
	finalCancel context.CancelFunc

	timers   sync.WaitGroup // tick and refresher goroutines
	inflight sync.WaitGroup // segment transcriptions
}

// New creates an Idle session for a meeting.
func New(id, meetingID string, cfg Config, deps Deps) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.SuggestionInterval <= 0 {
		cfg.SuggestionInterval = DefaultSuggestionInterval
	}
	if cfg.DurationLimitSeconds <= 0 {
		cfg.DurationLimitSeconds = DefaultDurationLimit
	}

	s := &Session{
		id:          id,
		meetingID:   meetingID,
		cfg:         cfg,
		deps:        deps,
		logger:      logging.WithSession("session", id),
		metrics:     metrics.DefaultMetrics,
		transcript:  transcript.New(),
		suggestions: suggestion.NewList(),
		feed:        notify.NewFeed(),
		status:      StatusIdle,
	}

	base := deps.Notifier
	if base == nil {
		base = notify.LogSink{}
	}
	s.notifier = notify.Multi{base, s.feed}
	s.finalCtx, s.finalCancel = context.WithCancel(context.Background())
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) MeetingID() string { return s.meetingID }

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start begins recording. It fetches the meeting metadata on first use,
// acquires the microphone and spawns the tick, segment and suggestion timers.
// Start on a Recording session is a no-op; on an Ended session it returns
// ErrSessionEnded. When the device cannot be acquired the session stays Idle
// and the error wraps audio.ErrDeviceUnavailable.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.RLock()
	current, tornDown := s.status, s.tornDown
	s.mu.RUnlock()
	if tornDown {
		return ErrSessionEnded
	}
	next, changed, err := Transition(current, EventStart)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.loadMetadata(ctx)

	liveCtx, liveCancel := context.WithCancel(s.finalCtx)
	capture := audio.NewLoop(s.id, s.deps.Audio, s.cfg.Audio, s.onSegment)

	// Segments are emitted only after capture.Start and read liveCtx.
	s.mu.Lock()
	s.liveCtx, s.liveCancel = liveCtx, liveCancel
	s.capture = capture
	s.mu.Unlock()

	if err := capture.Start(liveCtx); err != nil {
		liveCancel()
		s.mu.Lock()
		s.liveCtx, s.liveCancel = nil, nil
		s.capture = nil
		s.mu.Unlock()

		s.metrics.RecordSessionRejected("device_unavailable")
		s.logger.Error().Err(err).Msg("Failed to acquire audio device")
		s.notify(notify.SeverityError, TitleDeviceUnavailable,
			"Could not access the microphone. Check permissions and try again.")
		return err
	}

	refresher := suggestion.NewRefresher(suggestion.Options{
		SessionID: s.id,
		Client:    s.deps.Suggestions,
		List:      s.suggestions,
		Interval:  s.cfg.SuggestionInterval,
		Active:    s.recording,
		Snapshot:  s.suggestionRequest,
		OnAppend:  s.onSuggestions,
		OnError:   s.onSuggestionError,
	})

	s.mu.Lock()
	s.status = next
	s.startedAt = time.Now()
	s.refresher = refresher
	s.mu.Unlock()

	s.timers.Add(2)
	go func() {
		defer s.timers.Done()
		s.tickLoop(liveCtx)
	}()
	go func() {
		defer s.timers.Done()
		refresher.Run(liveCtx)
	}()

	s.metrics.RecordSessionStart()
	s.logger.Info().
		Str("meetingId", s.meetingID).
		Dur("segmentInterval", s.cfg.Audio.SegmentInterval).
		Int("durationLimitSeconds", s.cfg.DurationLimitSeconds).
		Msg("Session recording")
	s.publishStatus()
	s.notify(notify.SeverityInfo, TitleRecordingStarted, "")
	return nil
}

func (s *Session) loadMetadata(ctx context.Context) {
	s.mu.RLock()
	loaded := s.metaLoaded
	s.mu.RUnlock()
	if loaded || s.deps.Metadata == nil {
		return
	}

	m, err := s.deps.Metadata.Fetch(ctx, s.meetingID)
	if err != nil {
		s.logger.Warn().Err(err).Str("meetingId", s.meetingID).Msg("Failed to fetch meeting metadata")
		s.notify(notify.SeverityWarning, TitleMetadataUnavailable,
			"Suggestions will use the transcript only.")
		return
	}

	s.mu.Lock()
	s.meeting = m
	s.metaLoaded = true
	s.mu.Unlock()
	s.suggestions.Append(m.ExpectedQuestions...)
}

// Tick advances the elapsed clock by one second while Recording. The clock
// stops at the duration limit; recording does not.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRecording {
		return
	}
	if s.elapsed < s.cfg.DurationLimitSeconds {
		s.elapsed++
	}
}

func (s *Session) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Tick()
		}
	}
}

// Stop ends recording: the timers are cancelled, the capture loop flushes
// its final segment and releases the device, and the status becomes Ended.
// In-flight non-final transcriptions are cancelled; the final segment keeps
// resolving until Close. Stop is idempotent and a no-op on an Idle session.
func (s *Session) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	s.stop()
}

func (s *Session) stop() {
	s.mu.Lock()
	next, changed, _ := Transition(s.status, EventStop)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.status = next
	s.endedAt = time.Now()
	cancel := s.liveCancel
	capture := s.capture
	s.mu.Unlock()

	cancel()
	s.timers.Wait()
	capture.Stop()

	s.mu.RLock()
	duration := s.endedAt.Sub(s.startedAt).Seconds()
	elapsed := s.elapsed
	s.mu.RUnlock()

	s.metrics.RecordSessionEnd(duration)
	s.logger.Info().
		Int("elapsedSeconds", elapsed).
		Int("segments", capture.Segments()).
		Msg("Session ended")
	s.publishStatus()
	s.notify(notify.SeverityInfo, TitleRecordingStopped, "")
}

// Close stops the session if needed, cancels the final segment's
// transcription and waits for every in-flight operation to return. Nothing
// fires after Close returns. Close is idempotent.
func (s *Session) Close() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.stop()

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	if s.status == StatusIdle {
		s.status = StatusEnded
	}
	refresher := s.refresher
	s.mu.Unlock()

	s.finalCancel()
	s.inflight.Wait()
	if refresher != nil {
		refresher.Wait()
	}
	s.logger.Debug().Msg("Session torn down")
}

// Drain waits until every submitted segment has resolved, failed or been
// discarded, or until ctx is done. Call it after Stop.
func (s *Session) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) currentLiveCtx() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.liveCtx != nil {
		return s.liveCtx
	}
	return s.finalCtx
}

func (s *Session) recording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusRecording && !s.tornDown
}

// onSegment hands a captured segment to the transcription client. It runs
// under the capture loop's lock, so it must not wait on anything that Stop
// holds, and returns immediately.
func (s *Session) onSegment(seg segment.AudioSegment) {
	lc := segment.NewLifecycle(seg.SequenceIndex, seg.IsFinal)
	logger := logging.WithSegment("session", s.id, seg.SequenceIndex, seg.IsFinal)

	if seg.Empty() {
		lc.Discard()
		s.metrics.RecordSegmentDiscarded("empty")
		logger.Debug().Msg("Empty segment, not sent")
		return
	}

	ctx := s.currentLiveCtx()
	if seg.IsFinal {
		ctx = s.finalCtx
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.transcribe(ctx, lc, seg, logger)
	}()
}

func (s *Session) transcribe(ctx context.Context, lc *segment.Lifecycle, seg segment.AudioSegment, logger zerolog.Logger) {
	text, err := s.deps.STT.Transcribe(ctx, s.id, lc, seg.Bytes)
	if err != nil {
		var terr *stt.TranscriptionError
		if !errors.As(err, &terr) {
			lc.Discard()
			s.metrics.RecordSegmentDiscarded("cancelled")
			logger.Debug().Err(err).Msg("Segment transcription cancelled")
			return
		}
		if !lc.Fail() {
			return
		}
		s.transcript.MarkFailed(seg.SequenceIndex)
		logger.Error().Err(err).Str("stage", string(terr.Stage)).Msg("Segment transcription failed")
		s.notify(notify.SeverityError, TitleTranscriptionFailed,
			fmt.Sprintf("Segment %d failed at the %s stage.", terr.SegmentIndex, terr.Stage))
		return
	}

	// The merge guard is checked under mu so Stop and Close cannot slip in
	// between the check and the merge.
	s.mu.RLock()
	allowed := !s.tornDown && (seg.IsFinal || s.status == StatusRecording)
	changed := false
	if allowed {
		changed = s.transcript.Merge(seg.SequenceIndex, text)
	}
	s.mu.RUnlock()

	if !allowed {
		lc.Discard()
		s.metrics.RecordSegmentDiscarded("session_ended")
		logger.Debug().Msg("Session no longer live, dropping transcript")
		return
	}
	if err := lc.MarkResolved(); err != nil {
		logger.Warn().Err(err).Msg("Segment already terminal")
		return
	}
	s.metrics.RecordSegmentResolved()
	logger.Info().Int("chars", len(text)).Msg("Segment transcribed")

	if s.deps.Events != nil {
		err := s.deps.Events.PublishTranscript(context.WithoutCancel(ctx), models.SegmentTranscribed{
			SessionID:     s.id,
			Timestamp:     time.Now().UnixMilli(),
			SequenceIndex: seg.SequenceIndex,
			Text:          text,
			IsFinal:       seg.IsFinal,
			FullText:      s.transcript.FullText(),
		})
		if err != nil {
			// The publisher logs and counts the failure; the transcript is already merged.
			logger.Debug().Err(err).Msg("Transcript event not published")
		}
	}

	if changed && s.recording() {
		s.mu.RLock()
		refresher := s.refresher
		s.mu.RUnlock()
		if refresher != nil {
			refresher.NotifyGrowth()
		}
	}
}

func (s *Session) suggestionRequest() suggestion.Request {
	s.mu.RLock()
	m := s.meeting
	s.mu.RUnlock()
	return suggestion.Request{
		SessionID:      s.id,
		Role:           m.Title,
		JobDescription: m.JobDescription,
		Experience:     m.ExperienceLevel,
		Skills:         m.Skills,
		Transcript:     s.transcript.FullText(),
	}
}

func (s *Session) onSuggestions(trigger string, added []string) {
	if s.deps.Events == nil {
		return
	}
	err := s.deps.Events.PublishSuggestions(context.Background(), models.SuggestionsAppended{
		SessionID: s.id,
		Timestamp: time.Now().UnixMilli(),
		Trigger:   trigger,
		Questions: added,
		Total:     s.suggestions.Len(),
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("trigger", trigger).Msg("Suggestions event not published")
	}
}

func (s *Session) onSuggestionError(err error) {
	s.notify(notify.SeverityWarning, TitleSuggestionsFailed, err.Error())
}

func (s *Session) publishStatus() {
	if s.deps.Events == nil {
		return
	}
	s.mu.RLock()
	ev := models.SessionStatus{
		SessionID:      s.id,
		Timestamp:      time.Now().UnixMilli(),
		Status:         s.status.String(),
		ElapsedSeconds: s.elapsed,
	}
	capture := s.capture
	s.mu.RUnlock()
	if capture != nil {
		ev.Segments = capture.Segments()
	}
	if err := s.deps.Events.PublishSession(context.Background(), ev); err != nil {
		s.logger.Debug().Err(err).Str("status", ev.Status).Msg("Session event not published")
	}
}

func (s *Session) notify(severity notify.Severity, title, description string) {
	s.Notify(context.Background(), severity, title, description)
}
