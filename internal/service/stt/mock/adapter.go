// Package mock provides a mock STT adapter for running without a provider.
// Jobs report processing for a configurable number of polls, then complete
// with the next canned utterance.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"live-interview-service/internal/service/stt"
)

// DefaultUtterances provides sample interview answers for simulation.
var DefaultUtterances = []string{
	"I have been working as a backend engineer for about six years",
	"Most of that time was spent on payment systems written in Go",
	"I led the migration from a monolith to a set of smaller services",
	"The hardest part was keeping the ledger consistent during the cutover",
	"I enjoy mentoring and I run our internal code review guild",
}

// Options configures the simulated behavior.
type Options struct {
	ProcessingPolls int  // polls answered with "processing" before completion
	FailUpload      bool // every upload fails
	FailJob         bool // every job ends in "failed"
}

type job struct {
	polls int
	text  string
}

// Adapter implements stt.Adapter with canned responses.
type Adapter struct {
	opts Options

	mu      sync.Mutex
	uploads map[string]int // upload ref -> audio size
	jobs    map[string]*job
	next    int // next utterance
}

// New creates a new mock STT adapter.
func New(opts Options) *Adapter {
	return &Adapter{
		opts:    opts,
		uploads: make(map[string]int),
		jobs:    make(map[string]*job),
	}
}

func (a *Adapter) Name() string { return "mock" }

// Upload stores the audio size and returns a random reference.
func (a *Adapter) Upload(ctx context.Context, audio []byte) (string, error) {
	if a.opts.FailUpload {
		return "", errors.New("mock upload rejected")
	}
	ref := "mock://upload/" + uuid.NewString()
	a.mu.Lock()
	a.uploads[ref] = len(audio)
	a.mu.Unlock()
	return ref, nil
}

// Submit creates a job for a known upload reference.
func (a *Adapter) Submit(ctx context.Context, uploadRef string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.uploads[uploadRef]; !ok {
		return "", fmt.Errorf("unknown upload reference %q", uploadRef)
	}
	delete(a.uploads, uploadRef)

	id := uuid.NewString()
	a.jobs[id] = &job{text: DefaultUtterances[a.next%len(DefaultUtterances)]}
	a.next++
	return id, nil
}

// Poll advances the job by one poll.
func (a *Adapter) Poll(ctx context.Context, jobID string) (stt.JobStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	j, ok := a.jobs[jobID]
	if !ok {
		return stt.JobStatus{}, fmt.Errorf("unknown job %q", jobID)
	}
	j.polls++

	if j.polls <= a.opts.ProcessingPolls {
		if j.polls == 1 {
			return stt.JobStatus{State: stt.JobQueued}, nil
		}
		return stt.JobStatus{State: stt.JobProcessing}, nil
	}

	delete(a.jobs, jobID)
	if a.opts.FailJob {
		return stt.JobStatus{State: stt.JobFailed, Error: "mock transcription failed"}, nil
	}
	return stt.JobStatus{State: stt.JobCompleted, Text: j.text}, nil
}
