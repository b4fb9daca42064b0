// Package stt runs the per-segment speech-to-text protocol: upload the audio,
// submit a transcription job, then poll the job until it completes or fails.
package stt

import "context"

// JobState is the status a provider reports for a transcription job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// JobStatus is one poll result.
type JobStatus struct {
	State JobState
	Text  string // set when State is JobCompleted
	Error string // set when State is JobFailed
}

// Adapter defines the interface for STT providers (REST, Google, mock).
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Upload sends raw audio bytes and returns an opaque upload reference.
	Upload(ctx context.Context, audio []byte) (string, error)

	// Submit starts a transcription job for an upload and returns its id.
	Submit(ctx context.Context, uploadRef string) (string, error)

	// Poll fetches the current status of a job.
	Poll(ctx context.Context, jobID string) (JobStatus, error)
}
