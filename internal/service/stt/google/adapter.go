// Package google provides a Google Cloud Speech-to-Text adapter built on
// long-running recognition operations.
package google

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/google/uuid"

	"live-interview-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode  string
	SampleRateHz  int32
	AudioEncoding string // LINEAR16, FLAC, MULAW, ...
	Punctuation   bool
}

// DefaultConfig returns the settings matching the capture loop defaults.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "FLAC",
		Punctuation:   true,
	}
}

// StagedTTL bounds how long uploaded audio waits for Submit. References
// abandoned between the two stages are pruned on the next Upload.
const StagedTTL = 5 * time.Minute

type stagedAudio struct {
	audio []byte
	at    time.Time
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
//
// Google has no separate upload step for inline audio, so Upload stages the
// bytes in memory and returns a local reference that Submit consumes.
// Submit starts a LongRunningRecognize operation and returns its name; Poll
// resumes the operation by name.
type Adapter struct {
	client *speech.Client
	cfg    Config

	now    func() time.Time
	mu     sync.Mutex
	staged map[string]stagedAudio
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: c,
		cfg:    cfg,
		now:    time.Now,
		staged: make(map[string]stagedAudio),
	}, nil
}

func (a *Adapter) Name() string { return "google" }

// Upload stages the audio for Submit.
func (a *Adapter) Upload(ctx context.Context, audio []byte) (string, error) {
	ref := "staged://" + uuid.NewString()
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	for k, st := range a.staged {
		if now.Sub(st.at) > StagedTTL {
			delete(a.staged, k)
		}
	}
	a.staged[ref] = stagedAudio{audio: audio, at: now}
	return ref, nil
}

func (a *Adapter) take(ref string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.staged[ref]
	delete(a.staged, ref)
	return st.audio, ok
}

func (a *Adapter) stagedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.staged)
}

// Submit starts a long-running recognition for staged audio.
func (a *Adapter) Submit(ctx context.Context, uploadRef string) (string, error) {
	audio, ok := a.take(uploadRef)
	if !ok {
		return "", fmt.Errorf("unknown upload reference %q", uploadRef)
	}

	op, err := a.client.LongRunningRecognize(ctx, a.request(audio))
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

// Poll checks the operation once.
func (a *Adapter) Poll(ctx context.Context, jobID string) (stt.JobStatus, error) {
	op := a.client.LongRunningRecognizeOperation(jobID)
	resp, err := op.Poll(ctx)
	if err != nil {
		if op.Done() {
			// The operation itself finished with an error status.
			return stt.JobStatus{State: stt.JobFailed, Error: err.Error()}, nil
		}
		return stt.JobStatus{}, err
	}
	if !op.Done() {
		return stt.JobStatus{State: stt.JobProcessing}, nil
	}
	return stt.JobStatus{State: stt.JobCompleted, Text: joinResults(resp.GetResults())}, nil
}

// Close drops staged audio and releases the underlying client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	clear(a.staged)
	a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Adapter) request(audio []byte) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz:            a.cfg.SampleRateHz,
			LanguageCode:               a.cfg.LanguageCode,
			EnableAutomaticPunctuation: a.cfg.Punctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// joinResults concatenates the top alternative of every result.
func joinResults(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// parseAudioEncoding converts string to Google's AudioEncoding enum.
// Unknown values fall back to LINEAR16.
func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
