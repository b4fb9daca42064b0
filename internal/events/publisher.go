// Package events publishes session events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"live-interview-service/internal/models"
	"live-interview-service/internal/observability/metrics"
	"live-interview-service/internal/schema"
)

// Publisher publishes session events to one Kafka topic per event kind.
// With Kafka disabled it only logs.
type Publisher struct {
	writers   map[string]*kafka.Writer // topic -> writer
	principal string
	topics    Topics
	enabled   bool
	metrics   *metrics.Metrics
	validator *schema.Validator
}

// Topics names the topic of each event kind.
type Topics struct {
	Transcript   string
	Suggestion   string
	Notification string
	Session      string
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers   []string
	Topics    Topics
	Principal string
	Enabled   bool
}

// New creates a new Kafka event publisher.
func New(cfg *Config) *Publisher {
	p := &Publisher{
		writers:   make(map[string]*kafka.Writer),
		metrics:   metrics.DefaultMetrics,
		validator: schema.New(),
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return p
	}

	p.principal = cfg.Principal
	p.topics = cfg.Topics

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	for _, topic := range []string{cfg.Topics.Transcript, cfg.Topics.Suggestion, cfg.Topics.Notification, cfg.Topics.Session} {
		if topic == "" {
			continue
		}
		p.writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.Topics.Transcript).
		Str("topicSuggestion", cfg.Topics.Suggestion).
		Str("topicNotification", cfg.Topics.Notification).
		Str("topicSession", cfg.Topics.Session).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

// PublishTranscript publishes a merged segment.
func (p *Publisher) PublishTranscript(ctx context.Context, ev models.SegmentTranscribed) error {
	ev.EventType = models.EventSegmentTranscribed
	return p.publish(ctx, p.topics.Transcript, ev.EventType, ev.SessionID, ev)
}

// PublishSuggestions publishes appended suggestions.
func (p *Publisher) PublishSuggestions(ctx context.Context, ev models.SuggestionsAppended) error {
	ev.EventType = models.EventSuggestionsAppended
	return p.publish(ctx, p.topics.Suggestion, ev.EventType, ev.SessionID, ev)
}

// PublishNotification publishes a user notification.
func (p *Publisher) PublishNotification(ctx context.Context, ev models.Notification) error {
	ev.EventType = models.EventNotification
	return p.publish(ctx, p.topics.Notification, ev.EventType, ev.SessionID, ev)
}

// PublishSession publishes a session status transition.
func (p *Publisher) PublishSession(ctx context.Context, ev models.SessionStatus) error {
	ev.EventType = models.EventSessionStatus
	return p.publish(ctx, p.topics.Session, ev.EventType, ev.SessionID, ev)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Dropping invalid event")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	writer := p.writers[topic]
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Close closes all Kafka writers.
func (p *Publisher) Close() error {
	var err error
	for topic, w := range p.writers {
		if e := w.Close(); e != nil {
			log.Error().Err(e).Str("topic", topic).Msg("Error closing Kafka writer")
			err = e
		}
	}
	return err
}
