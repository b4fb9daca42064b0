package app

import (
	"context"
	"fmt"

	"live-interview-service/internal/config"
	"live-interview-service/internal/service/audio"
	"live-interview-service/internal/service/metadata"
	"live-interview-service/internal/service/stt"
	"live-interview-service/internal/service/stt/google"
	"live-interview-service/internal/service/stt/mock"
	"live-interview-service/internal/service/stt/rest"
	"live-interview-service/internal/service/suggestion"
)

// NewSTTAdapter builds the configured transcription adapter. The returned
// close func is nil when the adapter holds nothing open.
func NewSTTAdapter(ctx context.Context, cfg config.TranscriptionConfig) (stt.Adapter, func() error, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.New(mock.Options{ProcessingPolls: 1}), nil, nil
	case "rest":
		if cfg.BaseURL == "" {
			return nil, nil, fmt.Errorf("rest provider requires a base URL")
		}
		return rest.New(rest.Config{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			RequestTimeout: cfg.RequestTimeout,
		}), nil, nil
	case "google":
		gcfg := google.DefaultConfig()
		if cfg.LanguageCode != "" {
			gcfg.LanguageCode = cfg.LanguageCode
		}
		if cfg.SampleRateHz > 0 {
			gcfg.SampleRateHz = int32(cfg.SampleRateHz)
		}
		if cfg.AudioEncoding != "" {
			gcfg.AudioEncoding = cfg.AudioEncoding
		}
		a, err := google.New(ctx, gcfg)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewAudioOpener returns the opener for the configured audio source.
func NewAudioOpener(cfg config.AudioConfig) (audio.Opener, error) {
	switch cfg.Source {
	case "", "system":
		return audio.NewContext, nil
	case "fake":
		if cfg.FakeWAVPath == "" {
			return nil, fmt.Errorf("fake audio source requires a WAV path")
		}
		path, realtime := cfg.FakeWAVPath, cfg.FakeRealtime
		return func() (audio.Context, error) {
			fc, err := audio.NewFakeContext(path, realtime)
			if err != nil {
				return nil, err
			}
			return fc, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// NewSuggestionClient builds the configured suggestion client.
func NewSuggestionClient(cfg config.SuggestionConfig) (suggestion.Client, error) {
	switch cfg.Provider {
	case "", "mock":
		return suggestion.MockClient{}, nil
	case "rest":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("rest provider requires a base URL")
		}
		return suggestion.NewHTTPClient(cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewMetadataFetcher builds the configured metadata fetcher.
func NewMetadataFetcher(cfg config.MetadataConfig) (metadata.Fetcher, error) {
	switch cfg.Provider {
	case "", "mock":
		return metadata.NewStatic(metadata.DemoMeeting), nil
	case "rest":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("rest provider requires a base URL")
		}
		return metadata.NewClient(cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
