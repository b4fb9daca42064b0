package session

import (
	"context"
	"time"

	"live-interview-service/internal/service/metadata"
	"live-interview-service/internal/service/notify"
	"live-interview-service/internal/service/transcript"
)

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID                   string           `json:"id"`
	MeetingID            string           `json:"meetingId"`
	Status               string           `json:"status"`
	StartedAt            *time.Time       `json:"startedAt,omitempty"`
	EndedAt              *time.Time       `json:"endedAt,omitempty"`
	ElapsedSeconds       int              `json:"elapsedSeconds"`
	DurationLimitSeconds int              `json:"durationLimitSeconds"`
	RemainingSeconds     int              `json:"remainingSeconds"`
	Elapsed              string           `json:"elapsed"`
	Segments             int              `json:"segments"`
	Meeting              metadata.Meeting `json:"meeting"`
	Question             Question         `json:"question"`
	Notes                string           `json:"notes"`
	Notifications        int              `json:"notifications"`
}

// Question is the suggestion cursor position.
type Question struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		ID:                   s.id,
		MeetingID:            s.meetingID,
		Status:               s.status.String(),
		ElapsedSeconds:       s.elapsed,
		DurationLimitSeconds: s.cfg.DurationLimitSeconds,
		RemainingSeconds:     s.cfg.DurationLimitSeconds - s.elapsed,
		Elapsed:              FormatElapsed(s.elapsed, s.cfg.DurationLimitSeconds),
		Meeting:              s.meeting,
		Notes:                s.notes,
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		snap.StartedAt = &t
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		snap.EndedAt = &t
	}
	capture := s.capture
	s.mu.RUnlock()

	if capture != nil {
		snap.Segments = capture.Segments()
	}
	snap.Question = s.question()
	snap.Notifications = s.feed.Count()
	return snap
}

// Elapsed returns the elapsed seconds.
func (s *Session) Elapsed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsed
}

// Transcript returns the merged transcript.
func (s *Session) Transcript() transcript.Snapshot {
	return s.transcript.Snapshot()
}

// Suggestions returns every suggested question in order.
func (s *Session) Suggestions() []string {
	return s.suggestions.Items()
}

// CurrentQuestion returns the question under the cursor.
func (s *Session) CurrentQuestion() Question {
	return s.question()
}

// NextQuestion moves the cursor forward, stopping at the last question.
func (s *Session) NextQuestion() Question {
	s.suggestions.Next()
	return s.question()
}

// PrevQuestion moves the cursor back, stopping at the first question.
func (s *Session) PrevQuestion() Question {
	s.suggestions.Prev()
	return s.question()
}

func (s *Session) question() Question {
	text, _ := s.suggestions.Current()
	return Question{
		Text:  text,
		Index: s.suggestions.Cursor(),
		Total: s.suggestions.Len(),
	}
}

// SetNotes replaces the interviewer's notes.
func (s *Session) SetNotes(notes string) {
	s.mu.Lock()
	s.notes = notes
	s.mu.Unlock()
	s.notify(notify.SeverityInfo, TitleNotesSaved, "Your interview notes have been saved.")
}

// Notes returns the interviewer's notes.
func (s *Session) Notes() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notes
}

// Notifications returns the notifications after the first n.
func (s *Session) Notifications(n int) []notify.Notification {
	return s.feed.Since(n)
}

// Notify sends a notification on behalf of the session.
func (s *Session) Notify(ctx context.Context, severity notify.Severity, title, description string) {
	s.notifier.Notify(ctx, notify.Notification{
		SessionID:   s.id,
		Title:       title,
		Description: description,
		Severity:    severity,
	})
}
