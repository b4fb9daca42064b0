package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
	"SESSION_SEGMENT_INTERVAL", "SESSION_POLL_INTERVAL", "SESSION_SUGGESTION_INTERVAL",
	"SESSION_TICK_INTERVAL", "SESSION_DURATION_LIMIT_SECONDS",
	"AUDIO_SOURCE", "AUDIO_DEVICE", "AUDIO_SAMPLE_RATE_HZ", "AUDIO_CHANNELS", "AUDIO_FORMAT",
	"AUDIO_FAKE_WAV", "AUDIO_FAKE_REALTIME",
	"STT_PROVIDER", "STT_BASE_URL", "STT_API_KEY", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
	"STT_AUDIO_ENCODING", "STT_REQUEST_TIMEOUT",
	"SUGGESTION_PROVIDER", "SUGGESTION_BASE_URL", "SUGGESTION_TIMEOUT",
	"METADATA_PROVIDER", "METADATA_BASE_URL", "METADATA_TIMEOUT", "API_BASE_URL",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	"KAFKA_TOPIC_TRANSCRIPT", "KAFKA_TOPIC_SUGGESTION", "KAFKA_TOPIC_NOTIFICATION", "KAFKA_TOPIC_SESSION",
}

func clearEnv() {
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "svc-live-interview" {
		t.Errorf("expected default principal 'svc-live-interview', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default grpc port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default http port '8080', got %s", cfg.Service.HTTPPort)
	}

	// Session cadences
	if cfg.Session.SegmentInterval != 60*time.Second {
		t.Errorf("expected default segment interval 60s, got %v", cfg.Session.SegmentInterval)
	}
	if cfg.Session.PollInterval != 3*time.Second {
		t.Errorf("expected default poll interval 3s, got %v", cfg.Session.PollInterval)
	}
	if cfg.Session.SuggestionInterval != 60*time.Second {
		t.Errorf("expected default suggestion interval 60s, got %v", cfg.Session.SuggestionInterval)
	}
	if cfg.Session.TickInterval != time.Second {
		t.Errorf("expected default tick interval 1s, got %v", cfg.Session.TickInterval)
	}
	if cfg.Session.DurationLimitSeconds != 1800 {
		t.Errorf("expected default duration limit 1800, got %d", cfg.Session.DurationLimitSeconds)
	}

	if cfg.Audio.Format != "flac" {
		t.Errorf("expected default audio format 'flac', got %s", cfg.Audio.Format)
	}
	if cfg.Audio.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Audio.SampleRateHz)
	}

	if cfg.Transcription.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.Transcription.LanguageCode)
	}
	if cfg.Transcription.AudioEncoding != "FLAC" {
		t.Errorf("expected default encoding 'FLAC', got %s", cfg.Transcription.AudioEncoding)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Kafka.Principal != "svc-live-interview" {
		t.Errorf("expected kafka principal to default to service principal, got %s", cfg.Kafka.Principal)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SESSION_SEGMENT_INTERVAL", "30s")
	os.Setenv("SESSION_POLL_INTERVAL", "500ms")
	os.Setenv("SESSION_DURATION_LIMIT_SECONDS", "2700")
	os.Setenv("AUDIO_FORMAT", "wav")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	os.Setenv("API_BASE_URL", "https://api.example.com")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected http port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Session.SegmentInterval != 30*time.Second {
		t.Errorf("expected segment interval 30s, got %v", cfg.Session.SegmentInterval)
	}
	if cfg.Session.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", cfg.Session.PollInterval)
	}
	if cfg.Session.DurationLimitSeconds != 2700 {
		t.Errorf("expected duration limit 2700, got %d", cfg.Session.DurationLimitSeconds)
	}
	if cfg.Audio.Format != "wav" {
		t.Errorf("expected audio format 'wav', got %s", cfg.Audio.Format)
	}
	if cfg.Transcription.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.SampleRateHz != 8000 {
		t.Errorf("expected STT sample rate 8000, got %d", cfg.Transcription.SampleRateHz)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Metadata.BaseURL != "https://api.example.com" {
		t.Errorf("expected metadata base url from API_BASE_URL, got %s", cfg.Metadata.BaseURL)
	}
	if cfg.Suggestion.BaseURL != "https://api.example.com" {
		t.Errorf("expected suggestion base url from API_BASE_URL, got %s", cfg.Suggestion.BaseURL)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("SESSION_SEGMENT_INTERVAL", "soon")
	os.Setenv("SESSION_DURATION_LIMIT_SECONDS", "forever")
	os.Setenv("AUDIO_FAKE_REALTIME", "maybe")
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	defer clearEnv()

	cfg := Load()

	if cfg.Session.SegmentInterval != 60*time.Second {
		t.Errorf("expected default segment interval on invalid input, got %v", cfg.Session.SegmentInterval)
	}
	if cfg.Session.DurationLimitSeconds != 1800 {
		t.Errorf("expected default duration limit on invalid input, got %d", cfg.Session.DurationLimitSeconds)
	}
	if !cfg.Audio.FakeRealtime {
		t.Error("expected default fake realtime on invalid input")
	}
	if cfg.Transcription.SampleRateHz != 16000 {
		t.Errorf("expected default STT sample rate on invalid input, got %d", cfg.Transcription.SampleRateHz)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv()

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoadFile_OverlayThenEnv(t *testing.T) {
	clearEnv()
	os.Setenv("STT_PROVIDER", "rest")
	defer clearEnv()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
session:
  segmentInterval: 15s
  durationLimitSeconds: 600
transcription:
  provider: google
  languageCode: de-DE
kafka:
  brokers: ["broker-a:9092"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Session.SegmentInterval != 15*time.Second {
		t.Errorf("expected segment interval 15s from file, got %v", cfg.Session.SegmentInterval)
	}
	if cfg.Session.DurationLimitSeconds != 600 {
		t.Errorf("expected duration limit 600 from file, got %d", cfg.Session.DurationLimitSeconds)
	}
	if cfg.Session.PollInterval != 3*time.Second {
		t.Errorf("expected default poll interval to survive overlay, got %v", cfg.Session.PollInterval)
	}
	if cfg.Transcription.Provider != "rest" {
		t.Errorf("expected env to override file provider, got %s", cfg.Transcription.Provider)
	}
	if cfg.Transcription.LanguageCode != "de-DE" {
		t.Errorf("expected language from file, got %s", cfg.Transcription.LanguageCode)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "broker-a:9092" {
		t.Errorf("expected brokers from file, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("session: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"a", 1},
		{"a,b", 2},
		{" a , , b ", 2},
		{",", 0},
	}
	for _, tt := range tests {
		if got := splitList(tt.input); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d items", tt.input, got, tt.want)
		}
	}
}
