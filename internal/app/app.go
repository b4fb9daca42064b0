// Package app wires configuration into the running service: providers,
// the event publisher and the session manager.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"live-interview-service/internal/config"
	"live-interview-service/internal/events"
	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/service/audio"
	"live-interview-service/internal/service/notify"
	"live-interview-service/internal/service/session"
	"live-interview-service/internal/service/stt"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Publisher   *events.Publisher
	Sessions    *session.Manager

	closers []func() error
}

// New constructs the application from cfg. Provider construction errors
// are returned; nothing is left open on failure.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	adapter, closeAdapter, err := NewSTTAdapter(ctx, cfg.Transcription)
	if err != nil {
		return nil, fmt.Errorf("transcription provider: %w", err)
	}
	if closeAdapter != nil {
		a.closers = append(a.closers, closeAdapter)
	}

	opener, err := NewAudioOpener(cfg.Audio)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("audio source: %w", err)
	}

	suggester, err := NewSuggestionClient(cfg.Suggestion)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("suggestion provider: %w", err)
	}

	fetcher, err := NewMetadataFetcher(cfg.Metadata)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("metadata provider: %w", err)
	}

	a.Publisher = events.New(&events.Config{
		Enabled: cfg.Kafka.Enabled,
		Brokers: cfg.Kafka.Brokers,
		Topics: events.Topics{
			Transcript:   cfg.Kafka.TopicTranscript,
			Suggestion:   cfg.Kafka.TopicSuggestion,
			Notification: cfg.Kafka.TopicNotification,
			Session:      cfg.Kafka.TopicSession,
		},
		Principal: cfg.Kafka.Principal,
	})
	a.closers = append(a.closers, a.Publisher.Close)

	var notifier notify.Sink = notify.LogSink{}
	if a.Publisher.Enabled() {
		notifier = notify.Multi{notify.LogSink{}, notify.EventSink{Publisher: a.Publisher}}
	}

	a.Sessions = session.NewManager(SessionConfig(cfg), session.Deps{
		Audio:       opener,
		STT:         stt.NewClient(adapter, cfg.Session.PollInterval),
		Suggestions: suggester,
		Metadata:    fetcher,
		Notifier:    notifier,
		Events:      a.Publisher,
	})

	appLogger.Info().
		Str("sttProvider", adapter.Name()).
		Str("audioSource", cfg.Audio.Source).
		Str("suggestionProvider", cfg.Suggestion.Provider).
		Str("metadataProvider", cfg.Metadata.Provider).
		Bool("kafkaEnabled", a.Publisher.Enabled()).
		Msg("Live interview service application created")
	return a, nil
}

// SessionConfig maps the service configuration onto a session's.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		TickInterval:         cfg.Session.TickInterval,
		SuggestionInterval:   cfg.Session.SuggestionInterval,
		DurationLimitSeconds: cfg.Session.DurationLimitSeconds,
		Audio: audio.Config{
			SegmentInterval: cfg.Session.SegmentInterval,
			DeviceName:      cfg.Audio.Device,
			SampleRate:      cfg.Audio.SampleRateHz,
			Channels:        cfg.Audio.Channels,
			Format:          cfg.Audio.Format,
		},
	}
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logging.Init(logging.Config{
		Level:  a.Cfg.Observability.LogLevel,
		Format: a.Cfg.Observability.LogFormat,
	})
	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", a.Cfg.Observability.LogFormat).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Live interview service starting")
	return nil
}

// Shutdown closes every session, then the providers and the publisher.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Live interview service shutting down")
	if err := a.Sessions.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Sessions did not drain before the deadline")
	}
	a.close()
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
