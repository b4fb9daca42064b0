// Package notify delivers user-facing notifications. Delivery is
// fire-and-forget: sinks never return errors to the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-interview-service/internal/models"
	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/observability/metrics"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one message shown to the user.
type Notification struct {
	SessionID   string    `json:"sessionId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Time        time.Time `json:"time"`
}

// Sink accepts notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// LogSink writes notifications to the structured log.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, n Notification) {
	logger := logging.WithSession("notify", n.SessionID)
	var ev *zerolog.Event
	switch n.Severity {
	case SeverityError:
		ev = logger.Error()
	case SeverityWarning:
		ev = logger.Warn()
	default:
		ev = logger.Info()
	}
	ev.Str("title", n.Title).Str("description", n.Description).Msg("Notification")
	metrics.DefaultMetrics.RecordNotification(string(n.Severity), n.Title)
}

// Publisher is the subset of events.Publisher the event sink needs.
type Publisher interface {
	PublishNotification(ctx context.Context, ev models.Notification) error
}

// EventSink forwards notifications to the event stream. Publish errors are
// already logged by the publisher and are dropped here.
type EventSink struct {
	Publisher Publisher
}

func (s EventSink) Notify(ctx context.Context, n Notification) {
	_ = s.Publisher.PublishNotification(context.WithoutCancel(ctx), models.Notification{
		SessionID:   n.SessionID,
		Timestamp:   n.Time.UnixMilli(),
		Title:       n.Title,
		Description: n.Description,
		Severity:    string(n.Severity),
	})
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

// Feed keeps the notifications of one session in memory for the API.
type Feed struct {
	mu    sync.RWMutex
	items []Notification
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Notify(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	f.mu.Lock()
	f.items = append(f.items, n)
	f.mu.Unlock()
}

// Since returns the notifications after the first n.
func (f *Feed) Since(n int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(f.items) {
		return []Notification{}
	}
	return append([]Notification(nil), f.items[n:]...)
}

// All returns every notification.
func (f *Feed) All() []Notification {
	return f.Since(0)
}

// Count returns how many notifications have been received.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// CountTitle returns how many notifications carry a title.
func (f *Feed) CountTitle(title string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := 0
	for _, n := range f.items {
		if n.Title == title {
			c++
		}
	}
	return c
}
