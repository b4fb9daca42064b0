// Package config loads service configuration from the environment and an
// optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Session       SessionConfig       `yaml:"session"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Suggestion    SuggestionConfig    `yaml:"suggestion"`
	Metadata      MetadataConfig      `yaml:"metadata"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal string `yaml:"principal"`
	GRPCPort  string `yaml:"grpcPort"`
	HTTPPort  string `yaml:"httpPort"`
}

// SessionConfig holds the timer cadences of a live session.
type SessionConfig struct {
	SegmentInterval      time.Duration `yaml:"segmentInterval"`
	PollInterval         time.Duration `yaml:"pollInterval"`
	SuggestionInterval   time.Duration `yaml:"suggestionInterval"`
	TickInterval         time.Duration `yaml:"tickInterval"`
	DurationLimitSeconds int           `yaml:"durationLimitSeconds"`
}

type AudioConfig struct {
	Source       string `yaml:"source"` // system, fake
	Device       string `yaml:"device"` // device name; empty selects the default
	SampleRateHz int    `yaml:"sampleRateHz"`
	Channels     int    `yaml:"channels"`
	Format       string `yaml:"format"` // flac, wav, pcm
	FakeWAVPath  string `yaml:"fakeWavPath"`
	FakeRealtime bool   `yaml:"fakeRealtime"`
}

type TranscriptionConfig struct {
	Provider       string        `yaml:"provider"` // mock, rest, google
	BaseURL        string        `yaml:"baseUrl"`
	APIKey         string        `yaml:"apiKey"`
	LanguageCode   string        `yaml:"languageCode"`
	SampleRateHz   int           `yaml:"sampleRateHz"`
	AudioEncoding  string        `yaml:"audioEncoding"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type SuggestionConfig struct {
	Provider string        `yaml:"provider"` // mock, rest
	BaseURL  string        `yaml:"baseUrl"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MetadataConfig struct {
	Provider string        `yaml:"provider"` // mock, rest
	BaseURL  string        `yaml:"baseUrl"`
	Timeout  time.Duration `yaml:"timeout"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	TopicTranscript   string   `yaml:"topicTranscript"`
	TopicSuggestion   string   `yaml:"topicSuggestion"`
	TopicNotification string   `yaml:"topicNotification"`
	TopicSession      string   `yaml:"topicSession"`
	Principal         string   `yaml:"principal"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-live-interview",
			GRPCPort:  "50051",
			HTTPPort:  "8080",
		},
		Session: SessionConfig{
			SegmentInterval:      60 * time.Second,
			PollInterval:         3 * time.Second,
			SuggestionInterval:   60 * time.Second,
			TickInterval:         time.Second,
			DurationLimitSeconds: 30 * 60,
		},
		Audio: AudioConfig{
			Source:       "system",
			SampleRateHz: 16000,
			Channels:     1,
			Format:       "flac",
			FakeRealtime: true,
		},
		Transcription: TranscriptionConfig{
			Provider:       "mock",
			BaseURL:        "https://api.assemblyai.com/v2",
			LanguageCode:   "en-US",
			SampleRateHz:   16000,
			AudioEncoding:  "FLAC",
			RequestTimeout: 30 * time.Second,
		},
		Suggestion: SuggestionConfig{
			Provider: "mock",
			Timeout:  30 * time.Second,
		},
		Metadata: MetadataConfig{
			Provider: "mock",
			Timeout:  10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:           []string{"localhost:9092"},
			TopicTranscript:   "interview.transcript.segment",
			TopicSuggestion:   "interview.suggestions",
			TopicNotification: "interview.notifications",
			TopicSession:      "interview.session",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load builds the configuration from defaults and environment variables.
// Values that fail to parse fall back to the default.
func Load() *Config {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile applies a YAML overlay on top of the defaults, then environment
// overrides on top of that.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.GRPCPort = envOrDefault("GRPC_PORT", cfg.Service.GRPCPort)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)

	cfg.Session.SegmentInterval = envOrDefaultDuration("SESSION_SEGMENT_INTERVAL", cfg.Session.SegmentInterval)
	cfg.Session.PollInterval = envOrDefaultDuration("SESSION_POLL_INTERVAL", cfg.Session.PollInterval)
	cfg.Session.SuggestionInterval = envOrDefaultDuration("SESSION_SUGGESTION_INTERVAL", cfg.Session.SuggestionInterval)
	cfg.Session.TickInterval = envOrDefaultDuration("SESSION_TICK_INTERVAL", cfg.Session.TickInterval)
	cfg.Session.DurationLimitSeconds = envOrDefaultInt("SESSION_DURATION_LIMIT_SECONDS", cfg.Session.DurationLimitSeconds)

	cfg.Audio.Source = envOrDefault("AUDIO_SOURCE", cfg.Audio.Source)
	cfg.Audio.Device = envOrDefault("AUDIO_DEVICE", cfg.Audio.Device)
	cfg.Audio.SampleRateHz = envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", cfg.Audio.SampleRateHz)
	cfg.Audio.Channels = envOrDefaultInt("AUDIO_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.Format = envOrDefault("AUDIO_FORMAT", cfg.Audio.Format)
	cfg.Audio.FakeWAVPath = envOrDefault("AUDIO_FAKE_WAV", cfg.Audio.FakeWAVPath)
	cfg.Audio.FakeRealtime = envOrDefaultBool("AUDIO_FAKE_REALTIME", cfg.Audio.FakeRealtime)

	cfg.Transcription.Provider = envOrDefault("STT_PROVIDER", cfg.Transcription.Provider)
	cfg.Transcription.BaseURL = envOrDefault("STT_BASE_URL", cfg.Transcription.BaseURL)
	cfg.Transcription.APIKey = envOrDefault("STT_API_KEY", cfg.Transcription.APIKey)
	cfg.Transcription.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.Transcription.LanguageCode)
	cfg.Transcription.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", cfg.Transcription.SampleRateHz)
	cfg.Transcription.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.Transcription.AudioEncoding)
	cfg.Transcription.RequestTimeout = envOrDefaultDuration("STT_REQUEST_TIMEOUT", cfg.Transcription.RequestTimeout)

	cfg.Suggestion.Provider = envOrDefault("SUGGESTION_PROVIDER", cfg.Suggestion.Provider)
	cfg.Suggestion.BaseURL = envOrDefault("SUGGESTION_BASE_URL", envOrDefault("API_BASE_URL", cfg.Suggestion.BaseURL))
	cfg.Suggestion.Timeout = envOrDefaultDuration("SUGGESTION_TIMEOUT", cfg.Suggestion.Timeout)

	cfg.Metadata.Provider = envOrDefault("METADATA_PROVIDER", cfg.Metadata.Provider)
	cfg.Metadata.BaseURL = envOrDefault("METADATA_BASE_URL", envOrDefault("API_BASE_URL", cfg.Metadata.BaseURL))
	cfg.Metadata.Timeout = envOrDefaultDuration("METADATA_TIMEOUT", cfg.Metadata.Timeout)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.TopicTranscript = envOrDefault("KAFKA_TOPIC_TRANSCRIPT", cfg.Kafka.TopicTranscript)
	cfg.Kafka.TopicSuggestion = envOrDefault("KAFKA_TOPIC_SUGGESTION", cfg.Kafka.TopicSuggestion)
	cfg.Kafka.TopicNotification = envOrDefault("KAFKA_TOPIC_NOTIFICATION", cfg.Kafka.TopicNotification)
	cfg.Kafka.TopicSession = envOrDefault("KAFKA_TOPIC_SESSION", cfg.Kafka.TopicSession)
	// Kafka principal falls back to the service principal
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Observability.MetricsAddr)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
