// Package rest provides an STT adapter for HTTP transcription services that
// expose separate upload, job submission and job status endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"live-interview-service/internal/service/stt"
)

// Config holds the endpoint configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Adapter implements stt.Adapter over HTTP:
//
//	POST {base}/upload           raw bytes     -> {"upload_url"}
//	POST {base}/transcript       {"audio_url"} -> {"id"}
//	GET  {base}/transcript/{id}                -> {"status", "text", "error"}
type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a REST adapter.
func New(cfg Config) *Adapter {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        8,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

func (a *Adapter) Name() string { return "rest" }

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Upload posts the raw audio bytes.
func (a *Adapter) Upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return out.UploadURL, nil
}

// Submit creates a transcription job for an uploaded file.
func (a *Adapter) Submit(ctx context.Context, uploadRef string) (string, error) {
	body, err := json.Marshal(submitRequest{AudioURL: uploadRef})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("submit response missing id")
	}
	return out.ID, nil
}

// Poll fetches the job status. Provider status "error" maps to failed.
func (a *Adapter) Poll(ctx context.Context, jobID string) (stt.JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return stt.JobStatus{}, err
	}

	var out statusResponse
	if err := a.do(req, &out); err != nil {
		return stt.JobStatus{}, err
	}
	return parseStatus(out), nil
}

func parseStatus(r statusResponse) stt.JobStatus {
	switch strings.ToLower(r.Status) {
	case "queued":
		return stt.JobStatus{State: stt.JobQueued}
	case "processing":
		return stt.JobStatus{State: stt.JobProcessing}
	case "completed":
		return stt.JobStatus{State: stt.JobCompleted, Text: r.Text}
	case "error", "failed":
		return stt.JobStatus{State: stt.JobFailed, Error: r.Error}
	default:
		return stt.JobStatus{State: stt.JobState(r.Status)}
	}
}

func (a *Adapter) do(req *http.Request, out any) error {
	if a.apiKey != "" {
		req.Header.Set("Authorization", a.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("response parse error: %w", err)
	}
	return nil
}
