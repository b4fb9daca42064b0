// Package models defines the events a live session emits.
package models

import (
	"errors"
	"fmt"
)

// Event types.
const (
	EventSegmentTranscribed  = "interview.transcript.segment"
	EventSuggestionsAppended = "interview.suggestions.appended"
	EventNotification        = "interview.notification"
	EventSessionStatus       = "interview.session.status"
)

var errMissingSession = errors.New("sessionId is required")

// SegmentTranscribed is emitted when a segment's text is merged.
type SegmentTranscribed struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	Timestamp     int64  `json:"timestamp"`
	SequenceIndex int    `json:"sequenceIndex"`
	Text          string `json:"text"`
	IsFinal       bool   `json:"isFinal"`
	FullText      string `json:"fullText"`
}

func (e SegmentTranscribed) Validate() error {
	if e.SessionID == "" {
		return errMissingSession
	}
	if e.SequenceIndex < 0 {
		return fmt.Errorf("sequenceIndex must be >= 0, got %d", e.SequenceIndex)
	}
	return nil
}

// SuggestionsAppended is emitted when suggested questions are appended.
type SuggestionsAppended struct {
	EventType string   `json:"eventType"`
	SessionID string   `json:"sessionId"`
	Timestamp int64    `json:"timestamp"`
	Trigger   string   `json:"trigger"`
	Questions []string `json:"questions"`
	Total     int      `json:"total"`
}

func (e SuggestionsAppended) Validate() error {
	if e.SessionID == "" {
		return errMissingSession
	}
	if len(e.Questions) == 0 {
		return errors.New("questions must not be empty")
	}
	return nil
}

// Notification mirrors a user-facing notification.
type Notification struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func (e Notification) Validate() error {
	if e.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

// SessionStatus is emitted on every session status transition.
type SessionStatus struct {
	EventType      string `json:"eventType"`
	SessionID      string `json:"sessionId"`
	Timestamp      int64  `json:"timestamp"`
	Status         string `json:"status"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Segments       int    `json:"segments"`
}

func (e SessionStatus) Validate() error {
	if e.SessionID == "" {
		return errMissingSession
	}
	if e.Status == "" {
		return errors.New("status is required")
	}
	return nil
}
