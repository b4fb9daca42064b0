// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_interview"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted  prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsRejected *prometheus.CounterVec
	SessionDuration  prometheus.Histogram

	// Segment metrics
	SegmentsCaptured  *prometheus.CounterVec
	SegmentBytes      prometheus.Histogram
	SegmentsResolved  prometheus.Counter
	SegmentsDiscarded *prometheus.CounterVec

	// Transcription protocol metrics
	TranscriptionStageLatency *prometheus.HistogramVec
	TranscriptionFailures     *prometheus.CounterVec
	TranscriptionPolls        prometheus.Counter
	TranscriptionInFlight     prometheus.Gauge

	// Suggestion metrics
	SuggestionRequests  *prometheus.CounterVec
	SuggestionLatency   prometheus.Histogram
	SuggestionsAppended prometheus.Counter

	// Notification metrics
	Notifications *prometheus.CounterVec

	// gRPC metrics
	GRPCRequests *prometheus.CounterVec
	GRPCLatency  *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers all Prometheus metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of sessions that entered Recording",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently Recording",
		}),
		SessionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rejected_total",
			Help:      "Total number of session starts that failed",
		}, []string{"reason"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of sessions from start to stop",
			Buckets:   []float64{60, 300, 600, 900, 1800, 2700, 3600, 5400},
		}),

		SegmentsCaptured: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_captured_total",
			Help:      "Total number of audio segments emitted by the capture loop",
		}, []string{"final"}),
		SegmentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_bytes",
			Help:      "Encoded size of captured audio segments",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		SegmentsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_resolved_total",
			Help:      "Total number of segments merged into a transcript",
		}),
		SegmentsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_discarded_total",
			Help:      "Total number of segments whose result was not merged",
		}, []string{"reason"}),

		TranscriptionStageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_stage_latency_seconds",
			Help:      "Latency of each transcription protocol stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "stage"}),
		TranscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Total number of segment transcriptions that failed",
		}, []string{"provider", "stage"}),
		TranscriptionPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_polls_total",
			Help:      "Total number of job status polls issued",
		}),
		TranscriptionInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcriptions_in_flight",
			Help:      "Number of segment transcriptions currently running",
		}),

		SuggestionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_requests_total",
			Help:      "Total number of suggestion requests by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		SuggestionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestion_latency_seconds",
			Help:      "Suggestion request latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		SuggestionsAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_appended_total",
			Help:      "Total number of suggested questions appended to session lists",
		}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of user notifications emitted",
		}, []string{"severity", "title"}),

		GRPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC calls by method and status code",
		}, []string{"method", "code"}),
		GRPCLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_latency_seconds",
			Help:      "gRPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a session entering Recording.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session leaving Recording.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionRejected records a failed session start.
func (m *Metrics) RecordSessionRejected(reason string) {
	m.SessionsRejected.WithLabelValues(reason).Inc()
}

// RecordSegmentCaptured records a segment emitted by the capture loop.
func (m *Metrics) RecordSegmentCaptured(bytes int, final bool) {
	label := "false"
	if final {
		label = "true"
	}
	m.SegmentsCaptured.WithLabelValues(label).Inc()
	m.SegmentBytes.Observe(float64(bytes))
}

// RecordSegmentResolved records a segment merged into the transcript.
func (m *Metrics) RecordSegmentResolved() {
	m.SegmentsResolved.Inc()
}

// RecordSegmentDiscarded records a segment whose result was dropped.
func (m *Metrics) RecordSegmentDiscarded(reason string) {
	m.SegmentsDiscarded.WithLabelValues(reason).Inc()
}

// RecordStage records the latency of one transcription protocol stage.
func (m *Metrics) RecordStage(provider, stage string, latencySeconds float64) {
	m.TranscriptionStageLatency.WithLabelValues(provider, stage).Observe(latencySeconds)
}

// RecordTranscriptionFailure records a failed segment transcription.
func (m *Metrics) RecordTranscriptionFailure(provider, stage string) {
	m.TranscriptionFailures.WithLabelValues(provider, stage).Inc()
}

// RecordPoll records a job status poll.
func (m *Metrics) RecordPoll() {
	m.TranscriptionPolls.Inc()
}

// RecordSuggestionRequest records a suggestion request outcome.
func (m *Metrics) RecordSuggestionRequest(trigger string, err error, latencySeconds float64, appended int) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.SuggestionRequests.WithLabelValues(trigger, outcome).Inc()
	m.SuggestionLatency.Observe(latencySeconds)
	m.SuggestionsAppended.Add(float64(appended))
}

// RecordNotification records a user notification.
func (m *Metrics) RecordNotification(severity, title string) {
	m.Notifications.WithLabelValues(severity, title).Inc()
}

// RecordGRPCRequest records a completed gRPC call.
func (m *Metrics) RecordGRPCRequest(method, code string, latencySeconds float64) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
	m.GRPCLatency.WithLabelValues(method).Observe(latencySeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
